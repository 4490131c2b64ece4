package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "auto", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 4*time.Second, cfg.Monitor.CheckInterval)
	assert.Equal(t, 45*time.Second, cfg.Monitor.PauseThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Monitor.MaxWaitTime)
	assert.Equal(t, "update_entry_fields", cfg.Monitor.CommitTool)
	assert.Equal(t, "Continue", cfg.Monitor.NudgeText)
	assert.True(t, cfg.Monitor.TaskCheck)
	assert.Empty(t, cfg.Storage.StateDir)
	assert.Empty(t, cfg.Storage.ArchiveDir)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, 4*time.Second, cfg.Monitor.CheckInterval)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
format: text
quiet: true
verbose: true
monitor:
  check_interval: 2s
  pause_threshold: 30s
  max_wait_time: 5m
  commit_tool: commit_changes
  nudge_text: "Keep going"
  task_check: false
storage:
  state_dir: /var/lib/ccw/state
  archive_dir: /var/lib/ccw/archives
`
		configPath := filepath.Join(tmpDir, "ccw.yaml")
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "text", cfg.Format)
		assert.True(t, cfg.Quiet)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, 2*time.Second, cfg.Monitor.CheckInterval)
		assert.Equal(t, 30*time.Second, cfg.Monitor.PauseThreshold)
		assert.Equal(t, 5*time.Minute, cfg.Monitor.MaxWaitTime)
		assert.Equal(t, "commit_changes", cfg.Monitor.CommitTool)
		assert.Equal(t, "Keep going", cfg.Monitor.NudgeText)
		assert.False(t, cfg.Monitor.TaskCheck)
		assert.Equal(t, "/var/lib/ccw/state", cfg.Storage.StateDir)
		assert.Equal(t, "/var/lib/ccw/archives", cfg.Storage.ArchiveDir)
	})

	t.Run("unset fields keep their defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "ccw.yaml")
		err := os.WriteFile(configPath, []byte("format: ndjson\n"), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, 45*time.Second, cfg.Monitor.PauseThreshold)
		assert.Equal(t, "update_entry_fields", cfg.Monitor.CommitTool)
	})
}

func TestConfigEnvironmentVariables(t *testing.T) {
	origFormat := os.Getenv("CCW_FORMAT")
	origInterval := os.Getenv("CCW_CHECK_INTERVAL")
	defer func() {
		os.Setenv("CCW_FORMAT", origFormat)
		os.Setenv("CCW_CHECK_INTERVAL", origInterval)
	}()

	os.Setenv("CCW_FORMAT", "text")
	os.Setenv("CCW_CHECK_INTERVAL", "7s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 7*time.Second, cfg.Monitor.CheckInterval)
}
