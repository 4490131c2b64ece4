package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n"} {
		tr := Parse([]byte(input))
		require.NotNil(t, tr)
		assert.Empty(t, tr.Requests)
	}
}

func TestParseMalformedInput(t *testing.T) {
	t.Run("invalid JSON degrades to empty transcript", func(t *testing.T) {
		tr := Parse([]byte("{not json"))
		require.NotNil(t, tr)
		assert.Empty(t, tr.Requests)
	})

	t.Run("requests with wrong type degrades to empty transcript", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": "nope"}`))
		require.NotNil(t, tr)
		assert.Empty(t, tr.Requests)
	})

	t.Run("malformed turn keeps its siblings", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [42, {"requestId": "r1"}]}`))
		require.Len(t, tr.Requests, 2)
		assert.Equal(t, "", tr.Requests[0].RequestID)
		assert.Equal(t, "r1", tr.Requests[1].RequestID)
	})

	t.Run("malformed field keeps the rest of the turn", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"requestId": "r1", "timestamp": "soon", "isCanceled": true}]}`))
		require.Len(t, tr.Requests, 1)
		assert.Equal(t, "r1", tr.Requests[0].RequestID)
		assert.Zero(t, tr.Requests[0].Timestamp)
		assert.True(t, tr.Requests[0].IsCanceled)
	})
}

func TestParseUsernames(t *testing.T) {
	tr := Parse([]byte(`{"requesterUsername": "dev", "responderUsername": "GitHub Copilot", "requests": []}`))
	assert.Equal(t, "dev", tr.RequesterUsername)
	assert.Equal(t, "GitHub Copilot", tr.ResponderUsername)
}

func TestParseMessageShapes(t *testing.T) {
	t.Run("bare string", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"message": "fix the bug"}]}`))
		require.NotNil(t, tr.Requests[0].Message)
		assert.Equal(t, "fix the bug", tr.Requests[0].Message.Text)
	})

	t.Run("object with text", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"message": {"text": "fix the bug"}}]}`))
		require.NotNil(t, tr.Requests[0].Message)
		assert.Equal(t, "fix the bug", tr.Requests[0].Message.Text)
	})

	t.Run("unusable message is nil", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"message": 7}]}`))
		assert.Nil(t, tr.Requests[0].Message)
	})
}

func TestParseFragmentShapes(t *testing.T) {
	tr := Parse([]byte(`{"requests": [{
		"response": [
			"plain text",
			{"value": "object text"},
			{"kind": "toolInvocationSerialized", "toolName": "search", "source": {"type": "mcp"}}
		]
	}]}`))

	require.Len(t, tr.Requests[0].Response, 3)
	assert.Equal(t, "plain text", tr.Requests[0].Response[0].Value)
	assert.Equal(t, "object text", tr.Requests[0].Response[1].Value)
	assert.Equal(t, FragmentKindToolInvocation, tr.Requests[0].Response[2].Kind)
	require.NotNil(t, tr.Requests[0].Response[2].Source)
	assert.Equal(t, SourceTypeMCP, tr.Requests[0].Response[2].Source.Type)
}

func TestFollowupsPresence(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"requestId": "r1"}]}`))
		turn := &tr.Requests[0]
		assert.False(t, turn.HasFollowups())
		assert.False(t, turn.FollowupsEmpty())
	})

	t.Run("present and empty", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"followups": []}]}`))
		turn := &tr.Requests[0]
		assert.True(t, turn.HasFollowups())
		assert.True(t, turn.FollowupsEmpty())
	})

	t.Run("present and non-empty", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"followups": [{"message": "next?"}]}]}`))
		turn := &tr.Requests[0]
		assert.True(t, turn.HasFollowups())
		assert.False(t, turn.FollowupsEmpty())
	})

	t.Run("present but not an array", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"followups": "done"}]}`))
		turn := &tr.Requests[0]
		assert.True(t, turn.HasFollowups())
		assert.False(t, turn.FollowupsEmpty())
	})
}

func TestResultPresence(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{}]}`))
		assert.False(t, tr.Requests[0].HasResult())
		assert.Nil(t, tr.Requests[0].ErrorDetails())
		assert.Nil(t, tr.Requests[0].Meta())
	})

	t.Run("null is treated as absent", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"result": null}]}`))
		assert.False(t, tr.Requests[0].HasResult())
	})

	t.Run("error details", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"result": {"errorDetails": {"code": "canceled", "message": "stopped"}}}]}`))
		turn := &tr.Requests[0]
		assert.True(t, turn.HasResult())
		require.NotNil(t, turn.ErrorDetails())
		assert.Equal(t, "canceled", turn.ErrorDetails().Code)
		assert.Equal(t, "stopped", turn.ErrorDetails().Message)
	})

	t.Run("metadata", func(t *testing.T) {
		tr := Parse([]byte(`{"requests": [{"result": {"metadata": {
			"sessionId": "s-1", "agentId": "copilot", "modelId": "gpt",
			"toolCallRounds": [{"response": "done", "toolCalls": [{}, {}]}]
		}}}]}`))
		meta := tr.Requests[0].Meta()
		require.NotNil(t, meta)
		assert.Equal(t, "s-1", meta.SessionID)
		assert.Equal(t, "copilot", meta.AgentID)
		assert.Equal(t, "gpt", meta.ModelID)
		require.Len(t, meta.ToolCallRounds, 1)
		assert.Equal(t, "done", meta.ToolCallRounds[0].Response)
		assert.Len(t, meta.ToolCallRounds[0].ToolCalls, 2)
	})
}

func TestDialogStatusText(t *testing.T) {
	assert.Equal(t, "Dialog not started", StatusPending.Text())
	assert.Equal(t, "Dialog completed successfully", StatusCompleted.Text())
	assert.Equal(t, "Dialog was canceled", StatusCanceled.Text())
	assert.Equal(t, "Dialog in progress", StatusInProgress.Text())
	assert.Equal(t, "Dialog failed with error", StatusFailed.Text())
	assert.Equal(t, "Unknown dialog status", DialogStatus("bogus").Text())
}

func TestToolCallKey(t *testing.T) {
	assert.Equal(t, "search", ToolCall{ToolID: "id-1", ToolName: "search"}.Key())
	assert.Equal(t, "id-1", ToolCall{ToolID: "id-1"}.Key())
}
