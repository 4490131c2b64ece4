// Package cli wires the ccw commands. Commands are a thin adapter over the
// pure analysis core: they parse flags, load transcripts, call the analyzer,
// ledger or monitor engine, and render the result as text or NDJSON.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/vburojevic/ccw/internal/config"
	"github.com/vburojevic/ccw/internal/ledger"
)

// CLI is the top-level command tree.
type CLI struct {
	Format  string `help:"Output format: ndjson, text or auto (text on a TTY)" enum:"ndjson,text,auto" default:"${config_format}"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`
	Verbose bool   `short:"v" help:"Enable verbose debug logging"`

	Analyze      AnalyzeCmd      `cmd:"" help:"Classify an exported chat transcript"`
	Requests     RequestsCmd     `cmd:"" help:"List user requests from a transcript"`
	Conversation ConversationCmd `cmd:"" help:"Show paired request/response history"`
	Tools        ToolsCmd        `cmd:"" help:"Show MCP tool call statistics"`
	History      HistoryCmd      `cmd:"" help:"List recorded dialog sessions"`
	Clear        ClearCmd        `cmd:"" help:"Clear recorded dialog session history"`
	Watch        WatchCmd        `cmd:"" help:"Monitor a transcript and drive a task to completion"`
	Schema       SchemaCmd       `cmd:"" help:"Output JSON Schema for ccw NDJSON events"`
	Completion   CompletionCmd   `cmd:"" help:"Generate shell completions"`
	Update       UpdateCmd       `cmd:"" help:"Show how to upgrade ccw"`
}

// Globals carries the cross-command state handed to every Run method.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Config  *config.Config

	logger *watchLogger
}

// NewGlobalsWithConfig builds Globals from parsed flags with config
// fallbacks. The "auto" format resolves to text on a TTY and ndjson
// otherwise, so agents piping ccw get machine-readable output by default.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Config:  cfg,
	}
	if g.Format == "" || g.Format == "auto" {
		if f, ok := g.Stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			g.Format = "text"
		} else {
			g.Format = "ndjson"
		}
	}
	g.logger = newWatchLogger(g)
	return g
}

// Debug logs a verbose diagnostic line. No-op unless --verbose.
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Debug(format, args...)
	}
}

// loadTranscript reads an exported transcript from a path, or from stdin
// when the path is "-".
func loadTranscript(g *Globals, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("transcript file is required")
	}
	if path == "-" {
		return io.ReadAll(g.Stdin)
	}
	return os.ReadFile(path)
}

// openLedger builds the ledger over its file stores, resolving directories
// from config with ~/.ccw fallbacks.
func openLedger(g *Globals) (*ledger.Ledger, *ledger.FileArchives, error) {
	stateDir := g.Config.Storage.StateDir
	if stateDir == "" {
		var err error
		stateDir, err = ledger.DefaultStateDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve state dir: %w", err)
		}
	}
	archiveDir := g.Config.Storage.ArchiveDir
	if archiveDir == "" {
		var err error
		archiveDir, err = ledger.DefaultArchiveDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve archive dir: %w", err)
		}
	}

	kv, err := ledger.NewFileKV(stateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	archives, err := ledger.NewFileArchives(archiveDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive store: %w", err)
	}
	return ledger.New(kv, archives, g.logger.Sugared()), archives, nil
}
