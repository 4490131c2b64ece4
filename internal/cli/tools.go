package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
	"github.com/vburojevic/ccw/internal/output"
)

// ToolsCmd shows MCP tool invocation statistics for a transcript.
type ToolsCmd struct {
	File string `short:"f" required:"" help:"Path to exported chat JSON ('-' for stdin)"`
	Tool string `short:"t" help:"Filter to tools whose name or id contains this string"`
}

// Run executes the tools command
func (c *ToolsCmd) Run(globals *Globals) error {
	raw, err := loadTranscript(globals, c.File)
	if err != nil {
		return outputErrorCommon(globals, "READ_FAILED", err.Error())
	}

	an := analyzer.New()
	transcript := domain.Parse(raw)

	if c.Tool != "" {
		monitoring := an.MonitorTool(transcript, c.Tool)
		if globals.Format == "ndjson" {
			return output.NewNDJSONWriter(globals.Stdout).WriteToolMonitoring(monitoring)
		}
		return renderToolTable(globals, []domain.ToolMonitoring{monitoring})
	}

	summary := an.MonitoringSummary(transcript)
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteMonitoringSummary(summary)
	}
	if err := renderToolTable(globals, summary.Tools); err != nil {
		return err
	}
	fmt.Fprintf(globals.Stdout, "Total: %d tools, %d calls, %.2f%% success\n",
		summary.TotalTools, summary.TotalCalls, summary.OverallSuccessRate)
	return nil
}

func renderToolTable(globals *Globals, tools []domain.ToolMonitoring) error {
	table := tablewriter.NewTable(globals.Stdout)
	table.Header("Tool", "Calls", "OK", "Errors", "Success")
	for _, tool := range tools {
		table.Append([]string{
			tool.ToolName,
			fmt.Sprintf("%d", tool.TotalCalls),
			fmt.Sprintf("%d", tool.SuccessfulCalls),
			fmt.Sprintf("%d", tool.ErrorCalls),
			fmt.Sprintf("%.2f%%", tool.SuccessRate),
		})
	}
	return table.Render()
}
