package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Monitor MonitorConfig `mapstructure:"monitor"`
	Storage StorageConfig `mapstructure:"storage"`
}

// MonitorConfig holds the watch command defaults
type MonitorConfig struct {
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	PauseThreshold time.Duration `mapstructure:"pause_threshold"`
	MaxWaitTime    time.Duration `mapstructure:"max_wait_time"`
	CommitTool     string        `mapstructure:"commit_tool"`
	NudgeText      string        `mapstructure:"nudge_text"`
	TaskCheck      bool          `mapstructure:"task_check"`
}

// StorageConfig holds the ledger storage locations. Empty values resolve to
// directories under ~/.ccw at runtime.
type StorageConfig struct {
	StateDir   string `mapstructure:"state_dir"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "auto",
		Quiet:   false,
		Verbose: false,
		Monitor: MonitorConfig{
			CheckInterval:  4 * time.Second,
			PauseThreshold: 45 * time.Second,
			MaxWaitTime:    10 * time.Minute,
			CommitTool:     "update_entry_fields",
			NudgeText:      "Continue",
			TaskCheck:      true,
		},
	}
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("ccw")
	v.SetConfigType("yaml")

	// Add config paths (in order of precedence, lowest first)
	// 1. System-wide config
	v.AddConfigPath("/etc/ccw/")
	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "ccw"))
	}
	// 3. Home directory (as .ccw.yaml)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".ccw")
	}
	// 4. Current directory
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("CCW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind specific environment variables
	v.BindEnv("format", "CCW_FORMAT")
	v.BindEnv("quiet", "CCW_QUIET")
	v.BindEnv("verbose", "CCW_VERBOSE")
	v.BindEnv("monitor.check_interval", "CCW_CHECK_INTERVAL")
	v.BindEnv("monitor.pause_threshold", "CCW_PAUSE_THRESHOLD")
	v.BindEnv("monitor.max_wait_time", "CCW_MAX_WAIT_TIME")
	v.BindEnv("monitor.commit_tool", "CCW_COMMIT_TOOL")

	// Set defaults
	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("monitor.check_interval", cfg.Monitor.CheckInterval)
	v.SetDefault("monitor.pause_threshold", cfg.Monitor.PauseThreshold)
	v.SetDefault("monitor.max_wait_time", cfg.Monitor.MaxWaitTime)
	v.SetDefault("monitor.commit_tool", cfg.Monitor.CommitTool)
	v.SetDefault("monitor.nudge_text", cfg.Monitor.NudgeText)
	v.SetDefault("monitor.task_check", cfg.Monitor.TaskCheck)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, err
		}
		// Config file not found; use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that was loaded
func ConfigFile() string {
	v := viper.New()

	v.SetConfigName("ccw")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	// Try .ccw
	v.SetConfigName(".ccw")
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	return ""
}
