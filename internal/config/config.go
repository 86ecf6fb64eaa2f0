// Package config provides configuration management for gnuplot-shell.
package config

import "time"

// Config holds all configuration options for the shell.
type Config struct {
	// Gnuplot subprocess
	GnuplotPath string   `json:"gnuplot_path"` // empty = platform default binary
	GnuplotArgs []string `json:"gnuplot_args"`

	// Command synchronization
	DefaultTimeout time.Duration `json:"default_timeout"` // <= 0 = wait forever
	SyncMode       string        `json:"sync_mode"`       // printerr, echo

	// Termination escalation
	GraceExit time.Duration `json:"grace_exit"`
	GraceTerm time.Duration `json:"grace_term"`

	// Modes
	ScriptPath string `json:"script_path"` // batch mode: run this script and exit
	OutputPath string `json:"output_path"` // file backend: transcribe commands instead of running gnuplot
	TUIEnabled bool   `json:"tui"`
	Check      bool   `json:"check"`

	// Observability
	MetricsAddr  string `json:"metrics_addr"` // empty = disabled
	StatsEnabled bool   `json:"stats"`
	Verbose      bool   `json:"verbose"`
	LogFormat    string `json:"log_format"` // json, text
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Subprocess
		GnuplotPath: "", // resolved to the platform default

		// Synchronization
		DefaultTimeout: 0, // wait forever
		SyncMode:       "printerr",

		// Termination
		GraceExit: 1 * time.Second,
		GraceTerm: 4 * time.Second,

		// Modes
		TUIEnabled: true,

		// Observability
		MetricsAddr:  "",
		StatsEnabled: true,
		Verbose:      false,
		LogFormat:    "text",
	}
}
