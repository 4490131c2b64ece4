package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
	"github.com/vburojevic/ccw/internal/ledger"
	"github.com/vburojevic/ccw/internal/monitor"
	"github.com/vburojevic/ccw/internal/output"
)

// WatchCmd polls an exported transcript and drives a task to completion.
// The export file is re-read on every poll; --refresh-cmd can regenerate it
// first. Task corroboration and nudging are delegated to shell commands so
// any record system or chat host can be plugged in.
type WatchCmd struct {
	File       string `short:"f" required:"" help:"Path to the exported chat JSON, re-read on every poll"`
	RefreshCmd string `help:"Shell command run before each poll to refresh the export"`
	TaskID     string `help:"Task identifier passed to the oracle command"`
	TaskRef    string `help:"Short task reference used in messages (defaults to the task id)"`
	OracleCmd  string `help:"Shell command whose zero exit status means the task is complete (gets CCW_TASK_ID)"`
	NudgeCmd   string `help:"Shell command that posts the continue nudge (gets CCW_NUDGE_TEXT and the text on stdin)"`

	CheckInterval  time.Duration `help:"Polling interval" default:"${config_check_interval}"`
	PauseThreshold time.Duration `help:"Stall threshold without transcript changes" default:"${config_pause_threshold}"`
	MaxWaitTime    time.Duration `help:"Total processing budget per task" default:"${config_max_wait_time}"`
	CommitTool     string        `help:"Tool whose successful invocation marks the task committed" default:"${config_commit_tool}"`
	NoTaskCheck    bool          `help:"Disable periodic oracle task-status checks"`
	NoRecord       bool          `help:"Do not record sessions or archive transcripts"`
}

// watchResult is the terminal outcome delivered by the engine callbacks.
type watchResult struct {
	outcome string
	reason  string
}

// Run executes the watch command
func (c *WatchCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	if c.TaskID == "" && c.OracleCmd != "" {
		return outputErrorCommon(globals, "MISSING_TASK_ID", "--oracle-cmd requires --task-id")
	}

	var sessions *ledger.Ledger
	var archives *ledger.FileArchives
	if !c.NoRecord {
		var err error
		sessions, archives, err = openLedger(globals)
		if err != nil {
			return outputErrorCommon(globals, "LEDGER_FAILED", err.Error())
		}
	}

	an := analyzer.New()
	results := make(chan watchResult, 1)
	deliver := func(r watchResult) {
		select {
		case results <- r:
		default:
		}
	}

	cfg := monitor.Config{
		CheckInterval:    c.CheckInterval,
		PauseThreshold:   c.PauseThreshold,
		MaxWaitTime:      c.MaxWaitTime,
		CommitTool:       c.CommitTool,
		NudgeText:        globals.Config.Monitor.NudgeText,
		TaskCheckEnabled: !c.NoTaskCheck && globals.Config.Monitor.TaskCheck,
	}

	var sessionID string
	callbacks := monitor.Callbacks{
		OnCompleted: func() { deliver(watchResult{outcome: "completed"}) },
		OnFailed:    func(reason string) { deliver(watchResult{outcome: "failed", reason: reason}) },
		OnSnapshot: func(raw []byte, t *domain.Transcript, status domain.DialogStatus) {
			if sessions == nil {
				return
			}
			if id := recordSnapshot(globals, an, sessions, archives, raw, t, status); id != "" {
				sessionID = id
			}
		},
	}

	opts := monitor.Options{Logger: globals.logger.Sugared()}
	if c.OracleCmd != "" {
		opts.Oracle = &commandOracle{command: c.OracleCmd}
	}
	if c.NudgeCmd != "" {
		opts.Nudge = &commandNudge{command: c.NudgeCmd}
	}

	source := &fileSource{path: c.File, refreshCmd: c.RefreshCmd, globals: globals}
	engine := monitor.New(cfg, source, callbacks, opts)

	if !globals.Quiet && globals.Format != "ndjson" {
		fmt.Fprintf(globals.Stderr, "Watching %s (interval %s, stall threshold %s)\n",
			c.File, cfg.CheckInterval, cfg.PauseThreshold)
		fmt.Fprintln(globals.Stderr, "Press Ctrl+C to stop")
	}

	if c.TaskID != "" {
		engine.BeginTask(ctx, monitor.Task{ID: c.TaskID, Ref: c.TaskRef})
	} else {
		engine.Start()
	}
	defer engine.Stop()

	select {
	case <-ctx.Done():
		engine.Stop()
		if !globals.Quiet && globals.Format != "ndjson" {
			fmt.Fprintln(globals.Stderr, "Stopped")
		}
		return nil
	case result := <-results:
		return c.emitResult(globals, result, sessionID)
	}
}

func (c *WatchCmd) emitResult(globals *Globals, result watchResult, sessionID string) error {
	if globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).
			WriteWatchResult(result.outcome, result.reason, c.TaskID, sessionID)
	} else {
		if result.outcome == "completed" {
			fmt.Fprintln(globals.Stdout, "Task completed")
		} else {
			fmt.Fprintf(globals.Stdout, "Task failed: %s\n", result.reason)
		}
	}
	if result.outcome == "failed" {
		return errors.New(result.reason)
	}
	return nil
}

// recordSnapshot feeds one classified transcript into the session ledger,
// archiving the raw export under the session id. Returns the session id
// when one was found.
func recordSnapshot(globals *Globals, an *analyzer.Analyzer, sessions *ledger.Ledger,
	archives *ledger.FileArchives, raw []byte, t *domain.Transcript, status domain.DialogStatus) string {

	info := an.SessionInfo(t)
	if info == nil {
		return ""
	}

	archivePath := ""
	if archives != nil {
		archivePath = archives.Path(info.SessionID)
		if err := archives.Write(archivePath, raw); err != nil {
			globals.Debug("failed to archive transcript: %v", err)
			archivePath = ""
		}
	}

	preview := ""
	if requests := an.UserRequests(t); len(requests) > 0 {
		preview = ledger.Preview(requests[0].Message)
	}

	now := time.Now().UnixMilli()
	sessions.Record(ledger.SessionRecord{
		SessionID:           info.SessionID,
		FirstSeen:           now,
		LastSeen:            now,
		RequestsCount:       an.RequestsCount(t),
		Status:              status,
		FirstRequestPreview: preview,
		AgentID:             info.AgentID,
		ModelID:             info.ModelID,
		ArchivePath:         archivePath,
	})
	return info.SessionID
}

// fileSource acquires transcript snapshots by re-reading an export file,
// optionally refreshing it with a shell command first. A failed refresh is
// logged and the stale file is still read.
type fileSource struct {
	path       string
	refreshCmd string
	globals    *Globals
}

func (s *fileSource) Acquire(ctx context.Context) ([]byte, error) {
	if s.refreshCmd != "" {
		cmd := exec.CommandContext(ctx, "sh", "-c", s.refreshCmd)
		cmd.Env = append(os.Environ(), "CCW_EXPORT_PATH="+s.path)
		if err := cmd.Run(); err != nil {
			s.globals.Debug("refresh command failed: %v", err)
		}
	}
	return os.ReadFile(s.path)
}

// commandOracle corroborates task completion through a shell command: exit
// status zero means complete, a non-zero exit means not complete, anything
// else (command missing, context canceled) is an error.
type commandOracle struct {
	command string
}

func (o *commandOracle) IsTaskComplete(ctx context.Context, taskID string) (bool, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", o.command)
	cmd.Env = append(os.Environ(), "CCW_TASK_ID="+taskID)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

// commandNudge posts the continue nudge through a shell command.
type commandNudge struct {
	command string
}

func (n *commandNudge) SendMessage(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", n.command)
	cmd.Env = append(os.Environ(), "CCW_NUDGE_TEXT="+text)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
