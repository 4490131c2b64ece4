// Package ledger keeps a bounded, persisted history of observed dialog
// sessions. The ledger is a best-effort observability aid: upserts persist
// fire-and-forget, so a crash between the in-memory update and the write can
// lose the most recent record.
package ledger

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/ccw/internal/domain"
)

// storageKey is the KV key holding the serialized session history.
const storageKey = "dialogSessions"

// MaxHistorySize is the ledger capacity; older sessions (by LastSeen) are
// pruned past this and their archived transcripts deleted.
const MaxHistorySize = 100

// PreviewLimit caps the stored first-request preview, in runes.
const PreviewLimit = 80

// SessionRecord is one persisted summary of an observed dialog session.
// Timestamps are Unix milliseconds.
type SessionRecord struct {
	SessionID           string              `json:"sessionId"`
	FirstSeen           int64               `json:"firstSeen"`
	LastSeen            int64               `json:"lastSeen"`
	RequestsCount       int                 `json:"requestsCount"`
	Status              domain.DialogStatus `json:"status"`
	FirstRequestPreview string              `json:"firstRequestPreview"`
	AgentID             string              `json:"agentId,omitempty"`
	ModelID             string              `json:"modelId,omitempty"`
	ArchivePath         string              `json:"archivePath,omitempty"`
}

// Ledger is the single writer of the session record map. It is safe for
// concurrent use.
type Ledger struct {
	mu               sync.Mutex
	sessions         map[string]SessionRecord
	currentSessionID string

	kv       KV
	archives Archives
	log      *zap.SugaredLogger
}

// New creates a Ledger backed by kv and archives, loading any previously
// persisted history. archives may be nil when no artifact cleanup is wanted;
// logger may be nil.
func New(kv KV, archives Archives, logger *zap.SugaredLogger) *Ledger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	l := &Ledger{
		sessions: make(map[string]SessionRecord),
		kv:       kv,
		archives: archives,
		log:      logger,
	}
	l.load()
	return l
}

func (l *Ledger) load() {
	if l.kv == nil {
		return
	}
	raw, err := l.kv.Get(storageKey)
	if err != nil {
		l.log.Warnw("failed to load session history", "error", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var records []SessionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		l.log.Warnw("failed to decode session history", "error", err)
		return
	}
	for _, rec := range records {
		l.sessions[rec.SessionID] = rec
	}
	l.log.Debugw("loaded session history", "sessions", len(l.sessions))
}

// Record upserts a session. An existing record keeps its original FirstSeen
// and (when already set) FirstRequestPreview; LastSeen, RequestsCount and
// Status always reflect the new observation, and ArchivePath is kept when
// the new record carries none. The whole history is then persisted, sorted
// by LastSeen descending and truncated to capacity; persist failures are
// logged, not returned.
func (l *Ledger) Record(rec SessionRecord) {
	if rec.SessionID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.sessions[rec.SessionID]; ok {
		merged := existing
		merged.LastSeen = rec.LastSeen
		merged.RequestsCount = rec.RequestsCount
		merged.Status = rec.Status
		if merged.FirstRequestPreview == "" {
			merged.FirstRequestPreview = rec.FirstRequestPreview
		}
		if rec.ArchivePath != "" {
			merged.ArchivePath = rec.ArchivePath
		}
		if rec.AgentID != "" {
			merged.AgentID = rec.AgentID
		}
		if rec.ModelID != "" {
			merged.ModelID = rec.ModelID
		}
		l.sessions[rec.SessionID] = merged
	} else {
		l.sessions[rec.SessionID] = rec
	}

	l.currentSessionID = rec.SessionID
	l.persistLocked()
}

// persistLocked prunes past capacity and writes the remaining history.
// Callers must hold l.mu.
func (l *Ledger) persistLocked() {
	all := lo.Values(l.sessions)
	sort.Slice(all, func(i, j int) bool { return all[i].LastSeen > all[j].LastSeen })

	keep := all
	if len(all) > MaxHistorySize {
		keep = all[:MaxHistorySize]
		for _, dropped := range all[MaxHistorySize:] {
			delete(l.sessions, dropped.SessionID)
			if l.archives != nil && dropped.ArchivePath != "" {
				if err := l.archives.Delete(dropped.ArchivePath); err != nil {
					// Cleanup is best-effort; the archive may already be gone.
					l.log.Debugw("failed to delete pruned archive",
						"session", dropped.SessionID, "path", dropped.ArchivePath, "error", err)
				}
			}
		}
	}

	if l.kv == nil {
		return
	}
	data, err := json.MarshalIndent(keep, "", "  ")
	if err != nil {
		l.log.Warnw("failed to encode session history", "error", err)
		return
	}
	data = append(data, '\n')
	if err := l.kv.Set(storageKey, data); err != nil {
		l.log.Warnw("failed to persist session history", "error", err)
	}
}

// History returns all records sorted by LastSeen descending.
func (l *Ledger) History() []SessionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := lo.Values(l.sessions)
	sort.Slice(records, func(i, j int) bool { return records[i].LastSeen > records[j].LastSeen })
	return records
}

// Session returns the record for an exact session id.
func (l *Ledger) Session(sessionID string) (SessionRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.sessions[sessionID]
	return rec, ok
}

// CurrentSessionID returns the most recently recorded session id.
func (l *Ledger) CurrentSessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentSessionID
}

// SetCurrentSessionID overrides the tracked current session id.
func (l *Ledger) SetCurrentSessionID(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentSessionID = sessionID
}

// Clear empties the ledger and wipes the persisted history. Archived
// transcripts are left in place; callers reclaim that space separately.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sessions = make(map[string]SessionRecord)
	l.currentSessionID = ""
	if l.kv == nil {
		return
	}
	if err := l.kv.Set(storageKey, []byte("[]\n")); err != nil {
		l.log.Warnw("failed to clear persisted session history", "error", err)
	}
}

// Len returns the number of sessions currently held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Preview truncates a first user message to the stored preview length.
func Preview(message string) string {
	runes := []rune(message)
	if len(runes) <= PreviewLimit {
		return message
	}
	return string(runes[:PreviewLimit])
}
