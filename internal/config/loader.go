package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	viperlib "github.com/spf13/viper"
)

// Load reads configuration the way zjrosen-perles/cmd/root.go does:
// an explicit --config path if given, else `.macot/config.yaml` in
// the current directory, else `~/.config/macot/config.yaml`. Missing
// config files are not an error — Defaults() is returned with no
// error, mirroring the teacher's "continue with defaults" fallback.
func Load(explicitPath string) (Config, error) {
	v := viperlib.New()
	v.SetConfigType("yaml")

	d := Defaults()
	v.SetDefault("num_agents", d.NumAgents)
	v.SetDefault("roles", d.Roles)
	v.SetDefault("specs_dir", d.SpecsDir)
	v.SetDefault("session_prefix", d.SessionPrefix)
	v.SetDefault("timeouts.ready_launch", d.Timeouts.ReadyLaunch)
	v.SetDefault("timeouts.ready_relaunch", d.Timeouts.ReadyRelaunch)
	v.SetDefault("timeouts.exit_wait", d.Timeouts.ExitWait)
	v.SetDefault("timeouts.poll_delay", d.Timeouts.PollDelay)
	v.SetDefault("timeouts.graceful_shutdown", d.Timeouts.GracefulShutdown)
	v.SetDefault("timeouts.task_completion", d.Timeouts.TaskCompletion)
	v.SetDefault("router.poll_interval", d.Router.PollInterval)
	v.SetDefault("router.max_attempts", d.Router.MaxAttempts)
	v.SetDefault("router.message_ttl", d.Router.MessageTTL)
	v.SetDefault("preview.poll_interval", d.Preview.PollInterval)
	v.SetDefault("preview.input_debounce", d.Preview.InputDebounce)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else if _, err := os.Stat(".macot/config.yaml"); err == nil {
		v.SetConfigFile(".macot/config.yaml")
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "macot"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viperlib.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
