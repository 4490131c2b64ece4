// Package output emits ccw's machine-readable NDJSON events. Every event
// carries a type discriminator and a schemaVersion so agents consuming the
// stream can detect contract changes.
package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vburojevic/ccw/internal/domain"
	"github.com/vburojevic/ccw/internal/ledger"
)

// SchemaVersion is the current NDJSON contract version.
const SchemaVersion = 1

// StatusEvent reports the classification of one transcript.
type StatusEvent struct {
	Type          string              `json:"type"` // "status"
	SchemaVersion int                 `json:"schemaVersion"`
	Status        domain.DialogStatus `json:"status"`
	StatusText    string              `json:"statusText"`
	RequestsCount int                 `json:"requestsCount"`
	Detail        domain.StatusDetail `json:"detail"`
	SessionID     string              `json:"sessionId,omitempty"`
}

// SessionEvent reports one ledger record.
type SessionEvent struct {
	Type          string               `json:"type"` // "session"
	SchemaVersion int                  `json:"schemaVersion"`
	Record        ledger.SessionRecord `json:"record"`
}

// ToolStatsEvent reports tool monitoring aggregates.
type ToolStatsEvent struct {
	Type          string                    `json:"type"` // "tool_stats"
	SchemaVersion int                       `json:"schemaVersion"`
	Tool          *domain.ToolMonitoring    `json:"tool,omitempty"`
	Summary       *domain.MonitoringSummary `json:"summary,omitempty"`
}

// WatchResultEvent is the terminal event of a watch run.
type WatchResultEvent struct {
	Type          string `json:"type"` // "watch_result"
	SchemaVersion int    `json:"schemaVersion"`
	Outcome       string `json:"outcome"` // "completed" | "failed"
	Reason        string `json:"reason,omitempty"`
	TaskID        string `json:"taskId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
}

// ErrorEvent reports a command failure.
type ErrorEvent struct {
	Type          string `json:"type"` // "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// NDJSONWriter serializes events one JSON object per line. Writes are
// serialized so events from the watch goroutine never interleave.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer emitting to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

func (w *NDJSONWriter) write(event interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(event)
}

// WriteStatus emits a status event.
func (w *NDJSONWriter) WriteStatus(detail domain.StatusDetail, requestsCount int, sessionID string) error {
	return w.write(StatusEvent{
		Type:          "status",
		SchemaVersion: SchemaVersion,
		Status:        detail.Status,
		StatusText:    detail.StatusText,
		RequestsCount: requestsCount,
		Detail:        detail,
		SessionID:     sessionID,
	})
}

// WriteSession emits one ledger record.
func (w *NDJSONWriter) WriteSession(rec ledger.SessionRecord) error {
	return w.write(SessionEvent{Type: "session", SchemaVersion: SchemaVersion, Record: rec})
}

// WriteToolMonitoring emits per-tool aggregates.
func (w *NDJSONWriter) WriteToolMonitoring(tool domain.ToolMonitoring) error {
	return w.write(ToolStatsEvent{Type: "tool_stats", SchemaVersion: SchemaVersion, Tool: &tool})
}

// WriteMonitoringSummary emits the all-tools aggregate.
func (w *NDJSONWriter) WriteMonitoringSummary(summary domain.MonitoringSummary) error {
	return w.write(ToolStatsEvent{Type: "tool_stats", SchemaVersion: SchemaVersion, Summary: &summary})
}

// WriteWatchResult emits the terminal outcome of a watch run.
func (w *NDJSONWriter) WriteWatchResult(outcome, reason, taskID, sessionID string) error {
	return w.write(WatchResultEvent{
		Type:          "watch_result",
		SchemaVersion: SchemaVersion,
		Outcome:       outcome,
		Reason:        reason,
		TaskID:        taskID,
		SessionID:     sessionID,
	})
}

// WriteError emits a machine-readable failure.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	event := ErrorEvent{Type: "error", SchemaVersion: SchemaVersion, Code: code, Message: message}
	if len(hint) > 0 {
		event.Hint = hint[0]
	}
	return w.write(event)
}
