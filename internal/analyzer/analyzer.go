// Package analyzer classifies exported dialog transcripts. Every method is a
// pure function of its input: no I/O, no hidden state, total over malformed
// transcripts (which read as empty dialogs).
package analyzer

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vburojevic/ccw/internal/domain"
)

// Analyzer derives dialog lifecycle state, conversation history and tool
// statistics from a transcript. Construct one with New and share it freely;
// it holds no state.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// RequestsCount returns the number of turns in the transcript.
func (a *Analyzer) RequestsCount(t *domain.Transcript) int {
	if t == nil {
		return 0
	}
	return len(t.Requests)
}

func lastTurn(t *domain.Transcript) *domain.Turn {
	if t == nil || len(t.Requests) == 0 {
		return nil
	}
	return &t.Requests[len(t.Requests)-1]
}

// Status classifies the dialog from its last turn. Precedence: the legacy
// isCanceled flag wins over error details, errorDetails code "canceled" wins
// over other codes, any other error details mean failure, an empty followups
// array means completion, and everything else is still in progress.
func (a *Analyzer) Status(t *domain.Transcript) domain.DialogStatus {
	last := lastTurn(t)
	if last == nil {
		return domain.StatusPending
	}

	if last.IsCanceled {
		return domain.StatusCanceled
	}

	if details := last.ErrorDetails(); details != nil {
		if details.Code == "canceled" {
			return domain.StatusCanceled
		}
		return domain.StatusFailed
	}

	if last.FollowupsEmpty() {
		return domain.StatusCompleted
	}

	// Followups absent, non-empty or malformed: the turn is still running.
	return domain.StatusInProgress
}

// StatusDetail expands Status into a human-facing record. For an empty
// transcript every boolean is false and no request id is reported.
func (a *Analyzer) StatusDetail(t *domain.Transcript) domain.StatusDetail {
	last := lastTurn(t)
	if last == nil {
		return domain.StatusDetail{
			Status:     domain.StatusPending,
			StatusText: domain.StatusPending.Text(),
		}
	}

	status := a.Status(t)
	detail := domain.StatusDetail{
		Status:        status,
		StatusText:    status.Text(),
		HasResult:     last.HasResult(),
		HasFollowups:  last.HasFollowups(),
		IsCanceled:    last.IsCanceled,
		LastRequestID: last.RequestID,
	}
	if details := last.ErrorDetails(); details != nil {
		detail.IsFailed = true
		detail.ErrorCode = details.Code
		detail.ErrorMessage = details.Message
	}
	return detail
}

// SessionID returns the first non-empty result.metadata.sessionId found in
// turn order, or "". All turns of one dialog are expected to share a single
// session id; this does not verify that, it returns the first hit.
func (a *Analyzer) SessionID(t *domain.Transcript) string {
	if t == nil {
		return ""
	}
	for i := range t.Requests {
		if meta := t.Requests[i].Meta(); meta != nil && meta.SessionID != "" {
			return meta.SessionID
		}
	}
	return ""
}

// SessionInfo returns the session identity plus agent/model ids taken from
// the first turn whose metadata session id matches. When no turn matches
// exactly, a partial record carrying only the session id is returned.
func (a *Analyzer) SessionInfo(t *domain.Transcript) *domain.SessionInfo {
	sessionID := a.SessionID(t)
	if sessionID == "" {
		return nil
	}
	for i := range t.Requests {
		if meta := t.Requests[i].Meta(); meta != nil && meta.SessionID == sessionID {
			return &domain.SessionInfo{
				SessionID: sessionID,
				AgentID:   meta.AgentID,
				ModelID:   meta.ModelID,
			}
		}
	}
	return &domain.SessionInfo{SessionID: sessionID}
}

// UserRequests extracts the user messages in turn order. Turns without a
// usable message are skipped; the recorded index is the turn's position in
// the transcript, not its position in the returned slice.
func (a *Analyzer) UserRequests(t *domain.Transcript) []domain.UserRequest {
	if t == nil {
		return nil
	}
	requests := make([]domain.UserRequest, 0, len(t.Requests))
	for i := range t.Requests {
		turn := &t.Requests[i]
		if turn.Message == nil || turn.Message.Text == "" {
			continue
		}
		requests = append(requests, domain.UserRequest{
			ID:        requestID(turn, i),
			Message:   turn.Message.Text,
			Timestamp: turn.Timestamp,
			Index:     i,
		})
	}
	return requests
}

// requestID prefers the variableData request id, then the turn's own, then a
// positional fallback.
func requestID(turn *domain.Turn, index int) string {
	if turn.VariableData != nil && turn.VariableData.RequestID != "" {
		return turn.VariableData.RequestID
	}
	if turn.RequestID != "" {
		return turn.RequestID
	}
	return fmt.Sprintf("req-%d", index)
}

// AIResponses assembles the assistant response of every turn.
func (a *Analyzer) AIResponses(t *domain.Transcript) []domain.AIResponse {
	if t == nil {
		return nil
	}
	responses := make([]domain.AIResponse, 0, len(t.Requests))
	for i := range t.Requests {
		turn := &t.Requests[i]
		count := countToolCalls(turn)
		id := turn.RequestID
		if id == "" {
			id = fmt.Sprintf("req-%d", i)
		}
		responses = append(responses, domain.AIResponse{
			RequestID:     id,
			ResponseID:    turn.ResponseID,
			Message:       assembleResponseText(turn),
			Timestamp:     turn.Timestamp,
			Index:         i,
			HasToolCalls:  count > 0,
			ToolCallCount: count,
		})
	}
	return responses
}

// assembleResponseText concatenates the turn's response fragments, then any
// toolCallRounds response text not already present verbatim among the parts.
// Parts are joined with a blank line.
func assembleResponseText(turn *domain.Turn) string {
	var parts []string
	for _, fragment := range turn.Response {
		if fragment.Value != "" {
			parts = append(parts, fragment.Value)
		}
	}
	if meta := turn.Meta(); meta != nil {
		for _, round := range meta.ToolCallRounds {
			if round.Response == "" {
				continue
			}
			if !lo.Contains(parts, round.Response) {
				parts = append(parts, round.Response)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// countToolCalls sums the tool calls of every round in the turn's metadata.
func countToolCalls(turn *domain.Turn) int {
	meta := turn.Meta()
	if meta == nil {
		return 0
	}
	count := 0
	for _, round := range meta.ToolCallRounds {
		count += len(round.ToolCalls)
	}
	return count
}

// ConversationHistory pairs requests with responses by position, not by
// identifier matching. A request position with no assembled response yields
// a nil response.
func (a *Analyzer) ConversationHistory(t *domain.Transcript) []domain.ConversationTurn {
	requests := a.UserRequests(t)
	responses := a.AIResponses(t)

	turns := make([]domain.ConversationTurn, 0, len(requests))
	for i, req := range requests {
		var response *domain.AIResponse
		if i < len(responses) {
			response = &responses[i]
		}
		turns = append(turns, domain.ConversationTurn{
			Index:    i,
			Request:  req,
			Response: response,
		})
	}
	return turns
}
