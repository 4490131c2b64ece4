package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
)

// ConversationCmd prints the paired request/response history.
type ConversationCmd struct {
	File string `short:"f" required:"" help:"Path to exported chat JSON ('-' for stdin)"`
}

// Run executes the conversation command
func (c *ConversationCmd) Run(globals *Globals) error {
	raw, err := loadTranscript(globals, c.File)
	if err != nil {
		return outputErrorCommon(globals, "READ_FAILED", err.Error())
	}

	an := analyzer.New()
	history := an.ConversationHistory(domain.Parse(raw))

	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		for _, turn := range history {
			if err := enc.Encode(turn); err != nil {
				return err
			}
		}
		return nil
	}

	for _, turn := range history {
		fmt.Fprintf(globals.Stdout, "--- Turn %d ---\n", turn.Index)
		fmt.Fprintf(globals.Stdout, "User: %s\n", turn.Request.Message)
		if turn.Response == nil {
			fmt.Fprintln(globals.Stdout, "Assistant: (no response)")
			continue
		}
		fmt.Fprintf(globals.Stdout, "Assistant: %s\n", turn.Response.Message)
		if turn.Response.HasToolCalls {
			fmt.Fprintf(globals.Stdout, "Tool calls: %d\n", turn.Response.ToolCallCount)
		}
	}
	return nil
}
