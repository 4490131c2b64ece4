package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/ccw/internal/config"
	"github.com/vburojevic/ccw/internal/domain"
	"github.com/vburojevic/ccw/internal/ledger"
)

func ledgerRecord(id string, lastSeen int64) ledger.SessionRecord {
	return ledger.SessionRecord{
		SessionID: id,
		FirstSeen: lastSeen,
		LastSeen:  lastSeen,
		Status:    domain.StatusCompleted,
	}
}

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format:  format,
		Quiet:   false,
		Verbose: false,
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  config.Default(),
	}, stdout, stderr
}

// writeTranscript drops a transcript fixture into a temp dir.
func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// decodeLines parses every NDJSON line written to a buffer.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}
	return out
}

const fixtureTranscript = `{
	"requesterUsername": "dev",
	"requests": [
		{
			"requestId": "r0",
			"message": "add retry logic",
			"response": [
				"Working on it.",
				{"kind": "toolInvocationSerialized", "toolName": "search_entries", "source": {"type": "mcp"},
				 "resultDetails": {"input": {"q": "retry"}}}
			],
			"result": {"metadata": {"sessionId": "s-99", "agentId": "copilot", "modelId": "gpt-4"}}
		},
		{
			"requestId": "r1",
			"message": "now commit it",
			"response": [
				"Done.",
				{"kind": "toolInvocationSerialized", "toolName": "update_entry_fields", "source": {"type": "mcp"},
				 "resultDetails": {"input": {"id": 1}}}
			],
			"result": {"metadata": {"sessionId": "s-99"}},
			"followups": []
		}
	]
}`

func TestAnalyzeCmd_Run(t *testing.T) {
	t.Run("ndjson output", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "status", events[0]["type"])
		assert.Equal(t, "completed", events[0]["status"])
		assert.EqualValues(t, 2, events[0]["requestsCount"])
		assert.Equal(t, "s-99", events[0]["sessionId"])
	})

	t.Run("text output", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &AnalyzeCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		out := stdout.String()
		assert.Contains(t, out, "Status: completed")
		assert.Contains(t, out, "Requests: 2")
		assert.Contains(t, out, "Last request: r1")
	})

	t.Run("session flag adds identity", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &AnalyzeCmd{File: writeTranscript(t, fixtureTranscript), Session: true}

		require.NoError(t, cmd.Run(globals))

		out := stdout.String()
		assert.Contains(t, out, "Session: s-99")
		assert.Contains(t, out, "Agent: copilot")
		assert.Contains(t, out, "Model: gpt-4")
	})

	t.Run("malformed export reads as pending", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: writeTranscript(t, "{broken")}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "pending", events[0]["status"])
	})

	t.Run("missing file is an error event", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &AnalyzeCmd{File: "/nonexistent/export.json"}

		err := cmd.Run(globals)
		require.Error(t, err)

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "error", events[0]["type"])
		assert.Equal(t, "READ_FAILED", events[0]["code"])
	})

	t.Run("reads from stdin", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		globals.Stdin = strings.NewReader(fixtureTranscript)
		cmd := &AnalyzeCmd{File: "-"}

		require.NoError(t, cmd.Run(globals))
		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "completed", events[0]["status"])
	})
}

func TestRequestsCmd_Run(t *testing.T) {
	t.Run("lists every request", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RequestsCmd{File: writeTranscript(t, fixtureTranscript), Index: -1}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 2)
		assert.Equal(t, "add retry logic", events[0]["message"])
		assert.Equal(t, "now commit it", events[1]["message"])
	})

	t.Run("first only", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RequestsCmd{File: writeTranscript(t, fixtureTranscript), First: true, Index: -1}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "add retry logic", events[0]["message"])
	})

	t.Run("by index", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RequestsCmd{File: writeTranscript(t, fixtureTranscript), Index: 1}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "now commit it", events[0]["message"])
	})

	t.Run("missing index is an error", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RequestsCmd{File: writeTranscript(t, fixtureTranscript), Index: 9}

		err := cmd.Run(globals)
		require.Error(t, err)

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "NO_SUCH_REQUEST", events[0]["code"])
	})

	t.Run("first on empty transcript is an error", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &RequestsCmd{File: writeTranscript(t, `{"requests": []}`), First: true, Index: -1}

		err := cmd.Run(globals)
		require.Error(t, err)

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "NO_REQUESTS", events[0]["code"])
	})
}

func TestConversationCmd_Run(t *testing.T) {
	t.Run("ndjson pairs", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ConversationCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 2)
		req, ok := events[0]["request"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "add retry logic", req["message"])
		resp, ok := events[0]["response"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Working on it.", resp["message"])
	})

	t.Run("text blocks", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ConversationCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		out := stdout.String()
		assert.Contains(t, out, "--- Turn 0 ---")
		assert.Contains(t, out, "User: add retry logic")
		assert.Contains(t, out, "Assistant: Working on it.")
	})
}

func TestToolsCmd_Run(t *testing.T) {
	t.Run("summary over all tools", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ToolsCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "tool_stats", events[0]["type"])
		summary, ok := events[0]["summary"].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, 2, summary["totalTools"])
		assert.EqualValues(t, 2, summary["totalCalls"])
	})

	t.Run("single tool filter", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &ToolsCmd{File: writeTranscript(t, fixtureTranscript), Tool: "search"}

		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		tool, ok := events[0]["tool"].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, 1, tool["totalCalls"])
	})

	t.Run("text table", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &ToolsCmd{File: writeTranscript(t, fixtureTranscript)}

		require.NoError(t, cmd.Run(globals))

		out := stdout.String()
		assert.Contains(t, out, "search_entries")
		assert.Contains(t, out, "update_entry_fields")
		assert.Contains(t, out, "100.00% success")
	})
}

// ledgerGlobals points the ledger stores at temp directories.
func ledgerGlobals(t *testing.T, format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	globals, stdout, stderr := testGlobals(format)
	globals.Config.Storage.StateDir = filepath.Join(t.TempDir(), "state")
	globals.Config.Storage.ArchiveDir = filepath.Join(t.TempDir(), "archives")
	return globals, stdout, stderr
}

func TestHistoryCmd_Run(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		globals, stdout, _ := ledgerGlobals(t, "text")
		cmd := &HistoryCmd{}

		require.NoError(t, cmd.Run(globals))
		assert.Contains(t, stdout.String(), "No recorded sessions")
	})

	t.Run("lists recorded sessions newest first", func(t *testing.T) {
		globals, stdout, _ := ledgerGlobals(t, "ndjson")

		sessions, _, err := openLedger(globals)
		require.NoError(t, err)
		sessions.Record(ledgerRecord("s-old", 100))
		sessions.Record(ledgerRecord("s-new", 200))

		cmd := &HistoryCmd{}
		require.NoError(t, cmd.Run(globals))

		events := decodeLines(t, stdout)
		require.Len(t, events, 2)
		first, _ := events[0]["record"].(map[string]interface{})
		second, _ := events[1]["record"].(map[string]interface{})
		assert.Equal(t, "s-new", first["sessionId"])
		assert.Equal(t, "s-old", second["sessionId"])
	})

	t.Run("limit truncates the listing", func(t *testing.T) {
		globals, stdout, _ := ledgerGlobals(t, "ndjson")

		sessions, _, err := openLedger(globals)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			sessions.Record(ledgerRecord(strings.Repeat("x", i+1), int64(i)))
		}

		cmd := &HistoryCmd{Limit: 2}
		require.NoError(t, cmd.Run(globals))
		assert.Len(t, decodeLines(t, stdout), 2)
	})
}

func TestClearCmd_Run(t *testing.T) {
	globals, stdout, _ := ledgerGlobals(t, "text")

	sessions, _, err := openLedger(globals)
	require.NoError(t, err)
	sessions.Record(ledgerRecord("s-1", 1))

	cmd := &ClearCmd{}
	require.NoError(t, cmd.Run(globals))
	assert.Contains(t, stdout.String(), "Session history cleared")

	// A fresh ledger over the same state dir sees nothing.
	reloaded, _, err := openLedger(globals)
	require.NoError(t, err)
	assert.Empty(t, reloaded.History())
}

func TestSchemaCmd_Run(t *testing.T) {
	t.Run("all definitions by default", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &SchemaCmd{}

		require.NoError(t, cmd.Run(globals))

		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
		defs, ok := doc["definitions"].(map[string]interface{})
		require.True(t, ok)
		for _, name := range []string{"status", "session", "tool_stats", "watch_result", "error"} {
			assert.Contains(t, defs, name)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		globals, stdout, _ := testGlobals("ndjson")
		cmd := &SchemaCmd{Type: []string{"status", " ERROR "}}

		require.NoError(t, cmd.Run(globals))

		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
		defs := doc["definitions"].(map[string]interface{})
		assert.Len(t, defs, 2)
		assert.Contains(t, defs, "status")
		assert.Contains(t, defs, "error")
	})
}

func TestOutputErrorCommon(t *testing.T) {
	t.Run("text goes to stderr with code and hint", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("text")

		err := outputErrorCommon(globals, "READ_FAILED", "no such file", "check the path")
		require.Error(t, err)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Error [READ_FAILED]: no such file (hint: check the path)")
	})

	t.Run("ndjson goes to stdout", func(t *testing.T) {
		globals, stdout, stderr := testGlobals("ndjson")

		err := outputErrorCommon(globals, "NO_REQUESTS", "empty transcript")
		require.Error(t, err)
		assert.Empty(t, stderr.String())
		events := decodeLines(t, stdout)
		require.Len(t, events, 1)
		assert.Equal(t, "NO_REQUESTS", events[0]["code"])
	})
}
