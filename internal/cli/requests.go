package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
)

// RequestsCmd lists the user requests extracted from a transcript. With
// --first or --index it returns a single request, which is what chat-side
// tools use to re-read the task statement.
type RequestsCmd struct {
	File  string `short:"f" required:"" help:"Path to exported chat JSON ('-' for stdin)"`
	First bool   `help:"Print only the first request"`
	Index int    `short:"i" default:"-1" help:"Print only the request at this turn index"`
}

// Run executes the requests command
func (c *RequestsCmd) Run(globals *Globals) error {
	raw, err := loadTranscript(globals, c.File)
	if err != nil {
		return outputErrorCommon(globals, "READ_FAILED", err.Error())
	}

	an := analyzer.New()
	requests := an.UserRequests(domain.Parse(raw))

	if c.First {
		if len(requests) == 0 {
			return outputErrorCommon(globals, "NO_REQUESTS", "transcript contains no user requests")
		}
		return c.emit(globals, requests[:1])
	}
	if c.Index >= 0 {
		for _, req := range requests {
			if req.Index == c.Index {
				return c.emit(globals, []domain.UserRequest{req})
			}
		}
		return outputErrorCommon(globals, "NO_SUCH_REQUEST",
			fmt.Sprintf("no user request at index %d", c.Index))
	}
	return c.emit(globals, requests)
}

func (c *RequestsCmd) emit(globals *Globals, requests []domain.UserRequest) error {
	if globals.Format == "ndjson" {
		enc := json.NewEncoder(globals.Stdout)
		for _, req := range requests {
			if err := enc.Encode(req); err != nil {
				return err
			}
		}
		return nil
	}
	for _, req := range requests {
		fmt.Fprintf(globals.Stdout, "[%d] %s\n%s\n", req.Index, req.ID, req.Message)
		fmt.Fprintln(globals.Stdout)
	}
	return nil
}
