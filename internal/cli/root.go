// Package cli wires the command surface named in spec.md §6 to the
// four core subsystems. The argument parser/dispatcher itself is out
// of core; this package is the external collaborator that owns it,
// built with cobra the way zjrosen-perles/cmd and
// andymwolf-agentium/cmd/controller wire subcommands to a root.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcus/macot/internal/config"
)

// Exit codes from spec.md §6.
const (
	ExitOK               = 0
	ExitConfigError      = 1
	ExitSessionNotFound  = 2
	ExitAgentInitFailed  = 3
	ExitTaskAssignFailed = 4
	ExitReportFailed     = 5
	ExitUnknown          = 10
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
	log       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "macot",
	Short:         "multi-agent control tower",
	Long:          "macot orchestrates a fleet of interactive AI coding agents inside a terminal multiplexer.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .macot/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging to debug.log")

	rootCmd.AddCommand(startCmd, downCmd, towerCmd, launchCmd, statusCmd, sessionsCmd, resetCmd)
}

func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "macot: config error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	if err := loaded.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "macot: config error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	cfg = loaded
	log = newLogger(debugFlag).With("run_id", uuid.NewString())
}

// newLogger opens a file-backed slog logger, never writing to stderr:
// stderr/stdout belong to the multiplexer's own pane content and a
// stray log line there would corrupt the TUI, exactly as
// cmd/sidecar/main.go's openLogFile avoided stdout/stderr.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	f, err := os.OpenFile("debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Logging must never block startup; fall back to an io.Discard
		// handler rather than risk writing to stderr.
		return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetVersion sets the version string, called from cmd/macot's main
// with build-time ldflags.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "macot:", err)
		if ec, ok := err.(exitCoder); ok {
			return ec.ExitCode()
		}
		return ExitUnknown
	}
	return ExitOK
}

// exitCoder lets a command's returned error carry a specific exit
// code (spec.md §6's exit-code table) without cobra itself knowing
// about the taxonomy.
type exitCoder interface {
	error
	ExitCode() int
}

type codedError struct {
	code int
	err  error
}

func (e codedError) Error() string { return e.err.Error() }
func (e codedError) Unwrap() error { return e.err }
func (e codedError) ExitCode() int { return e.code }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return codedError{code: code, err: err}
}
