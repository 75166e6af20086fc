// Package config holds the shape of configuration the four cores
// accept. Loading/defaults are out of core per spec.md §1, but the
// Config value and its defaults are specified here so the CLI has
// something concrete to load into, the way zjrosen-perles/cmd/root.go
// loads its config.Config.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration value every command loads
// before touching the supervisor, router, or executor.
type Config struct {
	NumAgents int           `mapstructure:"num_agents"`
	Roles     []string      `mapstructure:"roles"`
	SpecsDir  string        `mapstructure:"specs_dir"`

	SessionPrefix string `mapstructure:"session_prefix"`

	Timeouts Timeouts `mapstructure:"timeouts"`
	Router   RouterConfig `mapstructure:"router"`
	Preview  PreviewConfig `mapstructure:"preview"`
}

// Timeouts mirrors spec.md §5's documented defaults.
type Timeouts struct {
	ReadyLaunch      time.Duration `mapstructure:"ready_launch"`
	ReadyRelaunch    time.Duration `mapstructure:"ready_relaunch"`
	ExitWait         time.Duration `mapstructure:"exit_wait"`
	PollDelay        time.Duration `mapstructure:"poll_delay"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
	TaskCompletion   time.Duration `mapstructure:"task_completion"`
}

// RouterConfig mirrors the messaging router's tunables.
type RouterConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	MessageTTL   time.Duration `mapstructure:"message_ttl"`
}

// PreviewConfig mirrors the pane preview engine's tunables.
type PreviewConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	InputDebounce time.Duration `mapstructure:"input_debounce"`
}

// Defaults returns spec.md's documented defaults.
func Defaults() Config {
	return Config{
		NumAgents:     1,
		Roles:         []string{"general"},
		SpecsDir:      ".macot/specs",
		SessionPrefix: "macot",
		Timeouts: Timeouts{
			ReadyLaunch:      30 * time.Second,
			ReadyRelaunch:    60 * time.Second,
			ExitWait:         3 * time.Second,
			PollDelay:        30 * time.Second,
			GracefulShutdown: 10 * time.Second,
			TaskCompletion:   600 * time.Second,
		},
		Router: RouterConfig{
			PollInterval: 1 * time.Second,
			MaxAttempts:  100,
			MessageTTL:   24 * time.Hour,
		},
		Preview: PreviewConfig{
			PollInterval:  250 * time.Millisecond,
			InputDebounce: 500 * time.Millisecond,
		},
	}
}

// Validate raises ConfigError-class failures (spec.md §7): num_agents
// <= 0, no roles, empty specs_dir, or empty session_prefix. It does not
// check role names against a known set and does not check that any
// directory exists on disk.
func (c Config) Validate() error {
	if c.NumAgents <= 0 {
		return fmt.Errorf("config: num_agents must be > 0, got %d", c.NumAgents)
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("config: at least one role must be configured")
	}
	if c.SpecsDir == "" {
		return fmt.Errorf("config: specs_dir must be set")
	}
	if c.SessionPrefix == "" {
		return fmt.Errorf("config: session_prefix must be set")
	}
	return nil
}
