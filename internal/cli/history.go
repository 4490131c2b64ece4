package cli

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/ccw/internal/output"
)

// HistoryCmd lists recorded dialog sessions, newest first.
type HistoryCmd struct {
	Limit int `short:"n" default:"0" help:"Show at most this many sessions (0 = all)"`
}

// Run executes the history command
func (c *HistoryCmd) Run(globals *Globals) error {
	sessions, _, err := openLedger(globals)
	if err != nil {
		return outputErrorCommon(globals, "LEDGER_FAILED", err.Error())
	}

	records := sessions.History()
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		for _, rec := range records {
			if err := w.WriteSession(rec); err != nil {
				return err
			}
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(globals.Stdout, "No recorded sessions")
		return nil
	}

	table := tablewriter.NewTable(globals.Stdout)
	table.Header("Session", "Status", "Requests", "Last seen", "First request")
	for _, rec := range records {
		table.Append([]string{
			rec.SessionID,
			string(rec.Status),
			fmt.Sprintf("%d", rec.RequestsCount),
			time.UnixMilli(rec.LastSeen).Format(time.RFC3339),
			rec.FirstRequestPreview,
		})
	}
	return table.Render()
}

// ClearCmd empties the session ledger. Archived transcripts stay on disk;
// remove the archive directory to reclaim that space.
type ClearCmd struct{}

// Run executes the clear command
func (c *ClearCmd) Run(globals *Globals) error {
	sessions, _, err := openLedger(globals)
	if err != nil {
		return outputErrorCommon(globals, "LEDGER_FAILED", err.Error())
	}
	sessions.Clear()
	if !globals.Quiet && globals.Format != "ndjson" {
		fmt.Fprintln(globals.Stdout, "Session history cleared")
	}
	return nil
}
