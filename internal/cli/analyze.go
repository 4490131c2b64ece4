package cli

import (
	"fmt"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
	"github.com/vburojevic/ccw/internal/output"
)

// AnalyzeCmd classifies one exported transcript and prints its status.
type AnalyzeCmd struct {
	File    string `short:"f" required:"" help:"Path to exported chat JSON ('-' for stdin)"`
	Session bool   `help:"Include session identity in the output"`
}

// Run executes the analyze command
func (c *AnalyzeCmd) Run(globals *Globals) error {
	raw, err := loadTranscript(globals, c.File)
	if err != nil {
		return outputErrorCommon(globals, "READ_FAILED", err.Error())
	}

	an := analyzer.New()
	transcript := domain.Parse(raw)
	detail := an.StatusDetail(transcript)
	requestsCount := an.RequestsCount(transcript)
	sessionID := an.SessionID(transcript)

	globals.Debug("analyzed transcript: status=%s requests=%d", detail.Status, requestsCount)

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteStatus(detail, requestsCount, sessionID)
	}

	fmt.Fprintf(globals.Stdout, "Status: %s (%s)\n", detail.Status, detail.StatusText)
	fmt.Fprintf(globals.Stdout, "Requests: %d\n", requestsCount)
	if detail.LastRequestID != "" {
		fmt.Fprintf(globals.Stdout, "Last request: %s\n", detail.LastRequestID)
	}
	if detail.IsFailed {
		fmt.Fprintf(globals.Stdout, "Error: [%s] %s\n", detail.ErrorCode, detail.ErrorMessage)
	}
	if c.Session || globals.Verbose {
		if info := an.SessionInfo(transcript); info != nil {
			fmt.Fprintf(globals.Stdout, "Session: %s\n", info.SessionID)
			if info.AgentID != "" {
				fmt.Fprintf(globals.Stdout, "Agent: %s\n", info.AgentID)
			}
			if info.ModelID != "" {
				fmt.Fprintf(globals.Stdout, "Model: %s\n", info.ModelID)
			}
		}
	}
	return nil
}
