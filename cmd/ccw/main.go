package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/ccw/internal/cli"
	"github.com/vburojevic/ccw/internal/config"
)

const quickStart = `ccw - Copilot chat transcript watcher for AI agents

Quick start:
  ccw analyze -f export.json            Classify the transcript status
  ccw requests -f export.json --first   Print the original task statement
  ccw watch -f export.json              Poll the export until completion

For help:
  ccw --help                            All commands and flags
  ccw schema                            Machine-readable output schemas
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing
	// These will be overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format":          cfg.Format,
		"config_check_interval":  cfg.Monitor.CheckInterval.String(),
		"config_pause_threshold": cfg.Monitor.PauseThreshold.String(),
		"config_max_wait_time":   cfg.Monitor.MaxWaitTime.String(),
		"config_commit_tool":     cfg.Monitor.CommitTool,
	}

	ctx := kong.Parse(&c,
		kong.Name("ccw"),
		kong.Description("CopilotChatWatcher: Analyze and watch exported Copilot chat transcripts\n\nAI agents: run 'ccw schema' for machine-readable output documentation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
