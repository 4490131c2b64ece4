package cli

import (
	"encoding/json"
	"strings"
)

// SchemaCmd outputs JSON Schema for ccw output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (status,session,tool_stats,watch_result,error). Default: all"`
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	schemas := map[string]interface{}{
		"status":       statusSchema(),
		"session":      sessionSchema(),
		"tool_stats":   toolStatsSchema(),
		"watch_result": watchResultSchema(),
		"error":        errorSchema(),
	}

	// Determine which schemas to output
	typesToOutput := c.Type
	if len(typesToOutput) == 0 {
		typesToOutput = []string{"status", "session", "tool_stats", "watch_result", "error"}
	}

	// Build output
	output := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "CopilotChatWatcher Output Schemas",
		"description": "JSON Schema definitions for all ccw NDJSON output types",
		"definitions": map[string]interface{}{},
	}

	defs := output["definitions"].(map[string]interface{})
	for _, t := range typesToOutput {
		t = strings.ToLower(strings.TrimSpace(t))
		if schema, ok := schemas[t]; ok {
			defs[t] = schema
		}
	}

	// Output as JSON
	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func statusSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Dialog Status",
		"description": "Classified completion state of an exported chat transcript",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "status",
			},
			"schemaVersion": map[string]interface{}{
				"type":        "integer",
				"description": "Event schema version",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"pending", "in_progress", "completed", "canceled", "failed"},
				"description": "Completion state of the last turn",
			},
			"statusText": map[string]interface{}{
				"type":        "string",
				"description": "Human-readable status label",
			},
			"requestsCount": map[string]interface{}{
				"type":        "integer",
				"description": "Number of turns in the transcript",
			},
			"errorMessage": map[string]interface{}{
				"type":        "string",
				"description": "Error message when the last turn failed",
			},
		},
		"required": []string{"type", "schemaVersion", "status", "requestsCount"},
	}
}

func sessionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Session Record",
		"description": "One recorded dialog session from the ledger",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "session",
			},
			"schemaVersion": map[string]interface{}{
				"type":        "integer",
				"description": "Event schema version",
			},
			"sessionId": map[string]interface{}{
				"type":        "string",
				"description": "Stable session identifier from the export",
			},
			"firstSeen": map[string]interface{}{
				"type":        "integer",
				"description": "Unix milliseconds when the session was first recorded",
			},
			"lastSeen": map[string]interface{}{
				"type":        "integer",
				"description": "Unix milliseconds of the most recent update",
			},
			"requestsCount": map[string]interface{}{
				"type":        "integer",
				"description": "Turn count at the last update",
			},
			"status": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"pending", "in_progress", "completed", "canceled", "failed"},
				"description": "Status at the last update",
			},
			"firstRequestPreview": map[string]interface{}{
				"type":        "string",
				"description": "First user request, truncated for listings",
			},
			"agentId": map[string]interface{}{
				"type":        "string",
				"description": "Responder agent identifier, if present in the export",
			},
			"modelId": map[string]interface{}{
				"type":        "string",
				"description": "Model identifier, if present in the export",
			},
			"archivePath": map[string]interface{}{
				"type":        "string",
				"description": "Path of the archived raw export, if archived",
			},
		},
		"required": []string{"type", "schemaVersion", "sessionId", "firstSeen", "lastSeen", "status"},
	}
}

func toolStatsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Tool Statistics",
		"description": "Invocation statistics for one MCP tool",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "tool_stats",
			},
			"schemaVersion": map[string]interface{}{
				"type":        "integer",
				"description": "Event schema version",
			},
			"toolName": map[string]interface{}{
				"type":        "string",
				"description": "Tool name, or id when no name is recorded",
			},
			"totalCalls": map[string]interface{}{
				"type":        "integer",
				"description": "Total matching invocations",
			},
			"successfulCalls": map[string]interface{}{
				"type":        "integer",
				"description": "Invocations marked complete without error",
			},
			"errorCalls": map[string]interface{}{
				"type":        "integer",
				"description": "Invocations marked as errored",
			},
			"successRate": map[string]interface{}{
				"type":        "number",
				"description": "Success percentage, rounded to two decimals",
			},
		},
		"required": []string{"type", "schemaVersion", "toolName", "totalCalls"},
	}
}

func watchResultSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Watch Result",
		"description": "Terminal outcome of a watch run",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "watch_result",
			},
			"schemaVersion": map[string]interface{}{
				"type":        "integer",
				"description": "Event schema version",
			},
			"outcome": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"completed", "failed"},
				"description": "Whether the watched task finished or was abandoned",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Failure reason when outcome is failed",
			},
			"taskId": map[string]interface{}{
				"type":        "string",
				"description": "Task identifier the run was bound to, if any",
			},
			"sessionId": map[string]interface{}{
				"type":        "string",
				"description": "Session id observed during the run, if any",
			},
		},
		"required": []string{"type", "schemaVersion", "outcome"},
	}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"title":       "Error",
		"description": "Error message from ccw",
		"properties": map[string]interface{}{
			"type": map[string]interface{}{
				"type":  "string",
				"const": "error",
			},
			"code": map[string]interface{}{
				"type":        "string",
				"description": "Error code (e.g., READ_FAILED, NO_REQUESTS)",
				"enum": []string{
					"READ_FAILED",
					"NO_REQUESTS",
					"NO_SUCH_REQUEST",
					"LEDGER_FAILED",
					"MISSING_TASK_ID",
				},
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "Human-readable error description",
			},
			"hint": map[string]interface{}{
				"type":        "string",
				"description": "Suggested next step, when one exists",
			},
		},
		"required": []string{"type", "code", "message"},
	}
}
