// Package monitor drives a long-running task to completion by polling an
// exported dialog transcript, classifying it, and deciding whether to keep
// waiting, nudge the dialog forward, or finish. One engine instance owns one
// task at a time and runs a single-threaded, timer-driven loop.
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/ccw/internal/analyzer"
	"github.com/vburojevic/ccw/internal/domain"
)

// SummarizationMarker is the host text injected when it compacts the dialog
// history. While present in fresh content the stall threshold is doubled.
const SummarizationMarker = "Summarized conversation history"

// statusCheckEvery is the tick cadence of oracle task-status checks.
const statusCheckEvery = 3

// Config controls one engine instance.
type Config struct {
	// CheckInterval is the polling period.
	CheckInterval time.Duration
	// PauseThreshold is how long the transcript may stay byte-identical
	// before the engine treats the dialog as stalled.
	PauseThreshold time.Duration
	// MaxWaitTime bounds the total processing time of one task.
	MaxWaitTime time.Duration
	// CommitTool names the tool whose successful invocation marks the task
	// as actually committed. Empty means completion is taken at face value.
	CommitTool string
	// NudgeText is posted into the dialog when it looks finished but the
	// commit tool never ran.
	NudgeText string
	// TaskCheckEnabled turns periodic oracle corroboration on.
	TaskCheckEnabled bool
}

// Recommended returns the settings tuned for MCP-heavy dialogs: frequent
// polls, a stall threshold generous enough for slow tool rounds, and a ten
// minute overall budget.
func Recommended() Config {
	return Config{
		CheckInterval:    4 * time.Second,
		PauseThreshold:   45 * time.Second,
		MaxWaitTime:      10 * time.Minute,
		CommitTool:       "update_entry_fields",
		NudgeText:        "Continue",
		TaskCheckEnabled: true,
	}
}

func (c Config) withDefaults() Config {
	def := Recommended()
	if c.CheckInterval <= 0 {
		c.CheckInterval = def.CheckInterval
	}
	if c.PauseThreshold <= 0 {
		c.PauseThreshold = def.PauseThreshold
	}
	if c.MaxWaitTime <= 0 {
		c.MaxWaitTime = def.MaxWaitTime
	}
	if c.NudgeText == "" {
		c.NudgeText = def.NudgeText
	}
	return c
}

// Task is the unit of work being corroborated against the oracle.
type Task struct {
	// ID is the oracle-facing task identifier.
	ID string
	// Ref is a short human-facing reference used in messages.
	Ref string
}

// TranscriptSource produces the freshest transcript snapshot. A nil slice
// with a nil error means no snapshot is currently available.
type TranscriptSource interface {
	Acquire(ctx context.Context) ([]byte, error)
}

// TaskOracle corroborates task completion out of band. Errors are treated
// as "not complete" so monitoring never finishes early on a flaky oracle.
type TaskOracle interface {
	IsTaskComplete(ctx context.Context, taskID string) (bool, error)
}

// NudgeSink posts a synthetic message back into the dialog.
type NudgeSink interface {
	SendMessage(ctx context.Context, text string) error
}

// Callbacks receive terminal outcomes and per-tick snapshots. All callbacks
// are invoked from the engine's polling goroutine.
type Callbacks struct {
	// OnCompleted fires once when the task is considered done.
	OnCompleted func()
	// OnFailed fires once with a human-readable reason.
	OnFailed func(reason string)
	// OnSnapshot fires on every tick that acquired a transcript, letting
	// callers feed the session ledger without coupling it to the engine.
	OnSnapshot func(raw []byte, t *domain.Transcript, status domain.DialogStatus)
}

// Options carries the optional collaborators of an engine.
type Options struct {
	Oracle TaskOracle
	Nudge  NudgeSink
	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

// Engine is the polling completion state machine.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	callbacks Callbacks
	source    TranscriptSource
	oracle    TaskOracle
	nudge     NudgeSink
	clk       clock.Clock
	log       *zap.SugaredLogger
	an        *analyzer.Analyzer

	monitoring         bool
	tickInFlight       bool
	ticker             *clock.Ticker
	stopCh             chan struct{}
	currentTask        *Task
	lastContent        []byte
	lastChange         time.Time
	lastProgress       time.Time
	processingStart    time.Time
	statusCheckCounter int
	summarization      bool
	chatStatus         domain.DialogStatus
}

// New creates an engine. source is required; everything in opts is optional
// (a real clock and a nop logger are used when absent).
func New(cfg Config, source TranscriptSource, callbacks Callbacks, opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		cfg:       cfg.withDefaults(),
		callbacks: callbacks,
		source:    source,
		oracle:    opts.Oracle,
		nudge:     opts.Nudge,
		clk:       clk,
		log:       logger,
		an:        analyzer.New(),
	}
}

// BeginTask registers the task, pre-checks the oracle so already-processed
// work is skipped without monitoring, and starts polling.
func (e *Engine) BeginTask(ctx context.Context, task Task) {
	e.mu.Lock()
	e.currentTask = &task
	e.processingStart = e.clk.Now()
	e.mu.Unlock()

	if e.oracle != nil && e.cfg.TaskCheckEnabled {
		if e.taskComplete(ctx, task.ID) {
			e.log.Infow("task already processed, skipping", "task", task.ID)
			e.complete()
			return
		}
	}
	e.Start()
}

// Start begins polling. It is a no-op when already monitoring.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.monitoring {
		e.mu.Unlock()
		e.log.Debug("monitoring already started")
		return
	}
	e.monitoring = true
	now := e.clk.Now()
	e.lastChange = now
	e.lastProgress = now
	e.summarization = false
	e.statusCheckCounter = 0
	e.lastContent = nil
	if e.processingStart.IsZero() {
		e.processingStart = now
	}
	ticker := e.clk.Ticker(e.cfg.CheckInterval)
	stopCh := make(chan struct{})
	e.ticker = ticker
	e.stopCh = stopCh
	e.mu.Unlock()

	e.log.Infow("monitoring started",
		"check_interval", e.cfg.CheckInterval, "pause_threshold", e.cfg.PauseThreshold)

	go e.loop(ticker, stopCh)
}

func (e *Engine) loop(ticker *clock.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// Stop halts polling. Safe to call repeatedly and from any state; in-flight
// I/O from the last tick completes and its outcome is ignored.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.monitoring {
		return
	}
	e.monitoring = false
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.log.Info("monitoring stopped")
}

// UpdateConfig swaps the configuration, restarting the poller when it was
// running so the new interval takes effect.
func (e *Engine) UpdateConfig(cfg Config) {
	wasMonitoring := e.IsActive()
	if wasMonitoring {
		e.Stop()
	}
	e.mu.Lock()
	e.cfg = cfg.withDefaults()
	e.mu.Unlock()
	if wasMonitoring {
		e.Start()
	}
}

// IsActive reports whether the engine is currently polling.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.monitoring
}

// CurrentTask returns the task being driven, if any.
func (e *Engine) CurrentTask() *Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentTask == nil {
		return nil
	}
	task := *e.currentTask
	return &task
}

// Status returns a human-readable one-liner about the engine.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.monitoring {
		return "Stopped"
	}
	msg := fmt.Sprintf("Active (%s since last change)", FormatDuration(e.clk.Now().Sub(e.lastChange)))
	if e.currentTask != nil {
		ref := e.currentTask.Ref
		if ref == "" {
			ref = e.currentTask.ID
		}
		msg += " - task " + ref
	}
	chatStatus := string(e.chatStatus)
	if chatStatus == "" {
		chatStatus = "unknown"
	}
	return msg + " | chat status: " + chatStatus
}

// tick runs one poll iteration. A re-entrancy flag protects against an
// overrunning previous tick, and no panic may escape past the tick boundary
// so the timer keeps running until an explicit Stop.
func (e *Engine) tick() {
	e.mu.Lock()
	if !e.monitoring || e.tickInFlight {
		e.mu.Unlock()
		return
	}
	e.tickInFlight = true
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("tick panicked", "panic", r)
		}
		e.mu.Lock()
		e.tickInFlight = false
		e.mu.Unlock()
	}()

	e.check(context.Background())
}

func (e *Engine) check(ctx context.Context) {
	e.mu.Lock()
	task := e.currentTask
	oracleDue := false
	if task != nil && e.oracle != nil && e.cfg.TaskCheckEnabled {
		e.statusCheckCounter++
		if e.statusCheckCounter >= statusCheckEvery {
			e.statusCheckCounter = 0
			oracleDue = true
		}
	}
	e.mu.Unlock()

	// Periodic oracle corroboration short-circuits the transcript logic:
	// when the task is already recorded as done there is nothing to watch.
	if oracleDue {
		if e.taskComplete(ctx, task.ID) {
			e.log.Infow("task processed during monitoring", "task", task.ID)
			e.Stop()
			e.complete()
			return
		}
	}

	raw, err := e.source.Acquire(ctx)
	if err != nil {
		e.log.Warnw("transcript acquisition failed, skipping tick", "error", err)
		return
	}
	if raw == nil {
		e.log.Debug("no transcript snapshot available, skipping tick")
		return
	}

	transcript := domain.Parse(raw)
	status := e.an.Status(transcript)

	e.mu.Lock()
	e.chatStatus = status
	e.lastProgress = e.clk.Now()
	e.mu.Unlock()

	if e.callbacks.OnSnapshot != nil {
		e.callbacks.OnSnapshot(raw, transcript, status)
	}

	switch status {
	case domain.StatusCanceled:
		e.log.Info("dialog canceled by user, stopping")
		e.Stop()
		e.fail("processing canceled by user")

	case domain.StatusCompleted:
		e.handleCompleted(ctx, transcript, task, raw)

	default:
		e.mu.Lock()
		unchanged := e.lastContent != nil && bytes.Equal(raw, e.lastContent)
		if !unchanged {
			now := e.clk.Now()
			e.lastContent = raw
			e.lastChange = now
			e.summarization = strings.Contains(string(raw), SummarizationMarker)
			e.mu.Unlock()
			if e.summarizationDetected() {
				e.log.Debug("history summarization detected, extending stall threshold")
			}
			return
		}
		e.mu.Unlock()
		e.handleStall(ctx, task)
	}
}

// handleCompleted decides whether a completed-looking dialog is really done:
// the designated commit tool must have at least one successful invocation,
// otherwise the completion is transient and the dialog gets nudged forward.
func (e *Engine) handleCompleted(ctx context.Context, transcript *domain.Transcript, task *Task, raw []byte) {
	committed := true
	if e.cfg.CommitTool != "" {
		calls := e.an.ToolCalls(transcript, e.cfg.CommitTool)
		successful := e.an.SuccessfulToolCalls(transcript, e.cfg.CommitTool)
		e.log.Debugw("commit tool check",
			"tool", e.cfg.CommitTool, "calls", len(calls), "successful", len(successful))
		committed = len(successful) > 0
	}

	if committed {
		if task != nil && e.oracle != nil && e.cfg.TaskCheckEnabled {
			// Informational only: the commit evidence in the transcript wins.
			if e.taskComplete(ctx, task.ID) {
				e.log.Infow("task confirmed processed", "task", task.ID)
			} else {
				e.log.Warnw("task not yet visible as processed, check the result", "task", task.ID)
			}
		}
		e.Stop()
		e.complete()
		return
	}

	e.log.Infow("dialog completed without commit tool, nudging", "tool", e.cfg.CommitTool)
	if e.nudge != nil {
		if err := e.nudge.SendMessage(ctx, e.cfg.NudgeText); err != nil {
			e.log.Warnw("failed to send nudge", "error", err)
		}
	}
	e.mu.Lock()
	now := e.clk.Now()
	e.lastContent = raw
	e.lastChange = now
	e.mu.Unlock()
}

// handleStall evaluates an unchanged transcript against the pause
// threshold. With an incomplete task the engine retries until MaxWaitTime;
// with no task to corroborate, silence is taken as completion.
func (e *Engine) handleStall(ctx context.Context, task *Task) {
	e.mu.Lock()
	now := e.clk.Now()
	threshold := effectiveThreshold(e.cfg.PauseThreshold, e.summarization)
	stalled := now.Sub(e.lastChange) >= threshold
	e.mu.Unlock()
	if !stalled {
		return
	}

	if task != nil && e.oracle != nil && e.cfg.TaskCheckEnabled {
		if !e.taskComplete(ctx, task.ID) {
			e.mu.Lock()
			elapsed := now.Sub(e.processingStart)
			e.mu.Unlock()

			if elapsed >= e.cfg.MaxWaitTime {
				e.log.Warnw("maximum wait time exceeded, forcing stop",
					"task", task.ID, "elapsed", FormatDuration(elapsed))
				e.Stop()
				e.fail(fmt.Sprintf("maximum wait time exceeded (%s) for task %s",
					FormatDuration(e.cfg.MaxWaitTime), taskRef(task)))
				return
			}

			e.mu.Lock()
			e.lastChange = now
			wasSummarization := e.summarization
			e.summarization = false
			e.mu.Unlock()

			if wasSummarization {
				e.log.Debug("stall timer reset after summarization")
			}
			e.log.Infow("dialog quiet but task unprocessed, continuing",
				"task", task.ID,
				"elapsed", FormatDuration(elapsed),
				"remaining", FormatDuration(remainingWait(elapsed, e.cfg.MaxWaitTime)))
			return
		}
	}

	e.log.Infow("dialog inactive past threshold, treating as completed",
		"threshold", FormatDuration(effectiveThreshold(e.cfg.PauseThreshold, e.summarizationDetected())))
	e.Stop()
	e.complete()
}

// taskComplete asks the oracle, reading any error as "not complete" so a
// flaky oracle keeps monitoring alive rather than finishing early.
func (e *Engine) taskComplete(ctx context.Context, taskID string) bool {
	done, err := e.oracle.IsTaskComplete(ctx, taskID)
	if err != nil {
		e.log.Warnw("task status check failed, assuming unprocessed", "task", taskID, "error", err)
		return false
	}
	return done
}

func (e *Engine) summarizationDetected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summarization
}

func (e *Engine) complete() {
	if e.callbacks.OnCompleted != nil {
		e.callbacks.OnCompleted()
	}
}

func (e *Engine) fail(reason string) {
	if e.callbacks.OnFailed != nil {
		e.callbacks.OnFailed(reason)
	}
}

func taskRef(task *Task) string {
	if task.Ref != "" {
		return task.Ref
	}
	return task.ID
}
