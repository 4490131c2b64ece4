package domain

import "encoding/json"

// DialogStatus is the lifecycle state of a dialog, derived from its last turn.
type DialogStatus string

const (
	StatusPending    DialogStatus = "pending"
	StatusCompleted  DialogStatus = "completed"
	StatusCanceled   DialogStatus = "canceled"
	StatusInProgress DialogStatus = "in_progress"
	StatusFailed     DialogStatus = "failed"
)

// Text returns the fixed human-readable description for a status.
func (s DialogStatus) Text() string {
	switch s {
	case StatusPending:
		return "Dialog not started"
	case StatusCompleted:
		return "Dialog completed successfully"
	case StatusCanceled:
		return "Dialog was canceled"
	case StatusInProgress:
		return "Dialog in progress"
	case StatusFailed:
		return "Dialog failed with error"
	default:
		return "Unknown dialog status"
	}
}

// StatusDetail expands a DialogStatus into a human-facing record.
type StatusDetail struct {
	Status        DialogStatus `json:"status"`
	StatusText    string       `json:"statusText"`
	HasResult     bool         `json:"hasResult"`
	HasFollowups  bool         `json:"hasFollowups"`
	IsCanceled    bool         `json:"isCanceled"`
	IsFailed      bool         `json:"isFailed"`
	LastRequestID string       `json:"lastRequestId,omitempty"`
	ErrorCode     string       `json:"errorCode,omitempty"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
}

// ToolCall is one MCP tool invocation extracted from a response fragment.
type ToolCall struct {
	ToolID    string          `json:"toolId"`
	ToolName  string          `json:"toolName"`
	RequestID string          `json:"requestId"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	IsError   bool            `json:"isError"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Source    *Source         `json:"source,omitempty"`
}

// Key returns the grouping key for a call: the tool name, falling back to
// the tool id.
func (c ToolCall) Key() string {
	if c.ToolName != "" {
		return c.ToolName
	}
	return c.ToolID
}

// ToolMonitoring aggregates the calls of one tool (or one name filter).
type ToolMonitoring struct {
	ToolName        string     `json:"toolName"`
	TotalCalls      int        `json:"totalCalls"`
	SuccessfulCalls int        `json:"successfulCalls"`
	ErrorCalls      int        `json:"errorCalls"`
	SuccessRate     float64    `json:"successRate"`
	Calls           []ToolCall `json:"calls"`
}

// MonitoringSummary aggregates every tool seen in a transcript.
type MonitoringSummary struct {
	TotalTools         int              `json:"totalTools"`
	TotalCalls         int              `json:"totalCalls"`
	OverallSuccessRate float64          `json:"overallSuccessRate"`
	Tools              []ToolMonitoring `json:"tools"`
}

// UserRequest is one extracted user message.
type UserRequest struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Index     int    `json:"index"`
}

// AIResponse is the assembled assistant response for one turn.
type AIResponse struct {
	RequestID     string `json:"requestId"`
	ResponseID    string `json:"responseId,omitempty"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	Index         int    `json:"index"`
	HasToolCalls  bool   `json:"hasToolCalls"`
	ToolCallCount int    `json:"toolCallCount"`
}

// ConversationTurn pairs a user request with its response by position.
// Response is nil when no response exists at the request's index.
type ConversationTurn struct {
	Index    int         `json:"index"`
	Request  UserRequest `json:"request"`
	Response *AIResponse `json:"response"`
}

// SessionInfo identifies the dialog session shared by a transcript's turns.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	AgentID   string `json:"agentId,omitempty"`
	ModelID   string `json:"modelId,omitempty"`
}
