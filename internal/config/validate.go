package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Sync mode must be valid
	validSync := map[string]bool{"printerr": true, "echo": true}
	if !validSync[cfg.SyncMode] {
		errs = append(errs, ValidationError{
			Field:   "sync",
			Message: fmt.Sprintf("must be 'printerr' or 'echo' (got %q)", cfg.SyncMode),
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Escalation delays must be positive
	if cfg.GraceExit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "grace_exit",
			Message: "must be positive",
		})
	}
	if cfg.GraceTerm <= 0 {
		errs = append(errs, ValidationError{
			Field:   "grace_term",
			Message: "must be positive",
		})
	}

	// The file backend never launches gnuplot, so subprocess options
	// are meaningless there.
	if cfg.OutputPath != "" {
		if cfg.GnuplotPath != "" {
			errs = append(errs, ValidationError{
				Field:   "out",
				Message: "-out writes a script; -gnuplot has no effect with it",
			})
		}
		if len(cfg.GnuplotArgs) > 0 {
			errs = append(errs, ValidationError{
				Field:   "out",
				Message: "-out writes a script; -arg has no effect with it",
			})
		}
		if cfg.Check {
			errs = append(errs, ValidationError{
				Field:   "check",
				Message: "-check needs a running gnuplot, not -out",
			})
		}
	}

	// A custom path must not carry arguments; those go through -arg.
	if strings.ContainsAny(cfg.GnuplotPath, " \t") {
		errs = append(errs, ValidationError{
			Field:   "gnuplot",
			Message: "must be a bare binary path; pass arguments with -arg",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EffectiveMode reports which of the mutually exclusive run modes the
// configuration selects.
type Mode int

const (
	// ModeInteractive runs the console against a live gnuplot.
	ModeInteractive Mode = iota

	// ModeScript runs a script file and exits.
	ModeScript

	// ModeFile transcribes commands to a script without gnuplot.
	ModeFile

	// ModeCheck starts gnuplot, queries its version and exits.
	ModeCheck
)

func (m Mode) String() string {
	switch m {
	case ModeInteractive:
		return "interactive"
	case ModeScript:
		return "script"
	case ModeFile:
		return "file"
	case ModeCheck:
		return "check"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// EffectiveMode resolves the run mode. Check wins over a script
// argument; a script wins over the interactive console.
func EffectiveMode(cfg *Config) Mode {
	switch {
	case cfg.Check:
		return ModeCheck
	case cfg.OutputPath != "":
		return ModeFile
	case cfg.ScriptPath != "":
		return ModeScript
	default:
		return ModeInteractive
	}
}
