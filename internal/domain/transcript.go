package domain

import (
	"bytes"
	"encoding/json"
)

// FragmentKindToolInvocation marks a response fragment as a serialized tool
// invocation. Only fragments of this kind are considered for tool extraction.
const FragmentKindToolInvocation = "toolInvocationSerialized"

// SourceTypeMCP marks a tool invocation as originating from an MCP server.
const SourceTypeMCP = "mcp"

// Transcript is one exported dialog: an ordered sequence of turns.
// Transcripts are immutable snapshots; nothing in this module mutates them.
type Transcript struct {
	RequesterUsername string `json:"requesterUsername,omitempty"`
	ResponderUsername string `json:"responderUsername,omitempty"`
	Requests          []Turn `json:"requests"`
}

// Turn is one user request plus its (possibly absent) assistant response.
type Turn struct {
	RequestID    string          `json:"requestId"`
	Message      *Message        `json:"message,omitempty"`
	Response     []Fragment      `json:"response,omitempty"`
	ResponseID   string          `json:"responseId,omitempty"`
	IsCanceled   bool            `json:"isCanceled,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	VariableData *VariableData   `json:"variableData,omitempty"`
	Result       *Result         `json:"result,omitempty"`
	Followups    json.RawMessage `json:"followups,omitempty"`

	// hasResult/hasFollowups record field presence, which is significant
	// independently of the field values (an empty followups array means
	// "turn finished", an absent one means "still producing").
	hasResult    bool
	hasFollowups bool
}

// Message is a user request message: either a bare string or {"text": ...}.
type Message struct {
	Text string `json:"text"`
}

// VariableData carries the request id used by newer export formats.
type VariableData struct {
	RequestID string `json:"requestId,omitempty"`
}

// Result is the outcome metadata attached to a finished turn.
type Result struct {
	ErrorDetails *ErrorDetails `json:"errorDetails,omitempty"`
	Metadata     *Metadata     `json:"metadata,omitempty"`
}

// ErrorDetails describes a failed or canceled turn.
type ErrorDetails struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Metadata is the host-attached turn metadata.
type Metadata struct {
	SessionID      string          `json:"sessionId,omitempty"`
	AgentID        string          `json:"agentId,omitempty"`
	ModelID        string          `json:"modelId,omitempty"`
	ToolCallRounds []ToolCallRound `json:"toolCallRounds,omitempty"`
}

// ToolCallRound is one round of tool calling inside a response. Only the
// round's text and the number of calls matter to the analyzer.
type ToolCallRound struct {
	Response  string            `json:"response,omitempty"`
	ToolCalls []json.RawMessage `json:"toolCalls,omitempty"`
}

// Fragment is one entry of a turn's response array: either a bare string or
// an object carrying text and/or a serialized tool invocation.
type Fragment struct {
	Kind             string            `json:"kind,omitempty"`
	Value            string            `json:"value,omitempty"`
	ToolID           string            `json:"toolId,omitempty"`
	ToolName         string            `json:"toolName,omitempty"`
	ResultDetails    *ResultDetails    `json:"resultDetails,omitempty"`
	ToolSpecificData *ToolSpecificData `json:"toolSpecificData,omitempty"`
	Source           *Source           `json:"source,omitempty"`
}

// ResultDetails carries the structured input/output of a tool invocation.
type ResultDetails struct {
	Input   json.RawMessage `json:"input,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
	IsError bool            `json:"isError,omitempty"`
}

// ToolSpecificData carries the raw fallback input of a tool invocation.
type ToolSpecificData struct {
	Kind     string          `json:"kind,omitempty"`
	RawInput json.RawMessage `json:"rawInput,omitempty"`
}

// Source describes where a tool invocation came from.
type Source struct {
	Type        string `json:"type,omitempty"`
	ServerLabel string `json:"serverLabel,omitempty"`
	Label       string `json:"label,omitempty"`
}

// Parse decodes an exported transcript. It is total: malformed input of any
// shape degrades to an empty transcript (or to zero values for the malformed
// fields) and never produces an error, so callers treat a broken export the
// same as a dialog that has not started.
func Parse(data []byte) *Transcript {
	t := &Transcript{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return t
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return t
	}
	if raw, ok := root["requesterUsername"]; ok {
		json.Unmarshal(raw, &t.RequesterUsername)
	}
	if raw, ok := root["responderUsername"]; ok {
		json.Unmarshal(raw, &t.ResponderUsername)
	}

	var rawTurns []json.RawMessage
	if err := json.Unmarshal(root["requests"], &rawTurns); err != nil {
		return t
	}
	t.Requests = make([]Turn, 0, len(rawTurns))
	for _, rawTurn := range rawTurns {
		t.Requests = append(t.Requests, parseTurn(rawTurn))
	}
	return t
}

// parseTurn decodes one turn field by field so that a single malformed field
// does not discard the rest of the turn.
func parseTurn(data []byte) Turn {
	var turn Turn
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return turn
	}

	json.Unmarshal(fields["requestId"], &turn.RequestID)
	json.Unmarshal(fields["responseId"], &turn.ResponseID)
	json.Unmarshal(fields["isCanceled"], &turn.IsCanceled)
	json.Unmarshal(fields["timestamp"], &turn.Timestamp)

	if raw, ok := fields["message"]; ok {
		turn.Message = parseMessage(raw)
	}
	if raw, ok := fields["variableData"]; ok {
		var vd VariableData
		if err := json.Unmarshal(raw, &vd); err == nil {
			turn.VariableData = &vd
		}
	}
	if raw, ok := fields["response"]; ok {
		var rawFragments []json.RawMessage
		if err := json.Unmarshal(raw, &rawFragments); err == nil {
			turn.Response = make([]Fragment, 0, len(rawFragments))
			for _, rf := range rawFragments {
				turn.Response = append(turn.Response, parseFragment(rf))
			}
		}
	}
	if raw, ok := fields["result"]; ok {
		turn.hasResult = true
		if !isJSONNull(raw) {
			var res Result
			if err := json.Unmarshal(raw, &res); err == nil {
				turn.Result = &res
			}
		}
	}
	if raw, ok := fields["followups"]; ok {
		turn.hasFollowups = true
		turn.Followups = raw
	}
	return turn
}

// parseMessage accepts either a bare string or an object with a text field.
func parseMessage(data []byte) *Message {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return &Message{Text: s}
	}
	var m Message
	if err := json.Unmarshal(data, &m); err == nil {
		return &m
	}
	return nil
}

// parseFragment accepts either a bare string or a fragment object.
func parseFragment(data []byte) Fragment {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return Fragment{Value: s}
	}
	var f Fragment
	json.Unmarshal(data, &f)
	return f
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// HasResult reports whether the turn carried a non-null result field.
func (t *Turn) HasResult() bool {
	return t.hasResult && t.Result != nil
}

// HasFollowups reports whether the followups field was present at all,
// regardless of its value.
func (t *Turn) HasFollowups() bool {
	return t.hasFollowups
}

// FollowupsEmpty reports whether followups is present, an array, and empty:
// the host's explicit "no further suggestions, turn is done" signal.
func (t *Turn) FollowupsEmpty() bool {
	if !t.hasFollowups {
		return false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(t.Followups, &arr); err != nil {
		return false
	}
	return len(arr) == 0
}

// ErrorDetails returns the turn's error details, or nil.
func (t *Turn) ErrorDetails() *ErrorDetails {
	if t.Result == nil {
		return nil
	}
	return t.Result.ErrorDetails
}

// Meta returns the turn's result metadata, or nil.
func (t *Turn) Meta() *Metadata {
	if t.Result == nil {
		return nil
	}
	return t.Result.Metadata
}
