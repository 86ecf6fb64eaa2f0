package config

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GnuplotPath != "" {
		t.Errorf("GnuplotPath = %q, want empty (platform default)", cfg.GnuplotPath)
	}
	if cfg.DefaultTimeout != 0 {
		t.Errorf("DefaultTimeout = %v, want 0 (wait forever)", cfg.DefaultTimeout)
	}
	if cfg.SyncMode != "printerr" {
		t.Errorf("SyncMode = %q, want printerr", cfg.SyncMode)
	}
	if cfg.GraceExit != time.Second || cfg.GraceTerm != 4*time.Second {
		t.Errorf("grace delays = %v/%v, want 1s/4s", cfg.GraceExit, cfg.GraceTerm)
	}
	if !cfg.TUIEnabled {
		t.Error("TUIEnabled should default to true")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // substring of the error, "" = valid
	}{
		{
			name:   "echo sync mode",
			mutate: func(c *Config) { c.SyncMode = "echo" },
		},
		{
			name:    "unknown sync mode",
			mutate:  func(c *Config) { c.SyncMode = "osascript" },
			wantErr: "sync",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
		{
			name:    "zero grace exit",
			mutate:  func(c *Config) { c.GraceExit = 0 },
			wantErr: "grace_exit",
		},
		{
			name:    "negative grace term",
			mutate:  func(c *Config) { c.GraceTerm = -time.Second },
			wantErr: "grace_term",
		},
		{
			name:   "file backend",
			mutate: func(c *Config) { c.OutputPath = "session.gp" },
		},
		{
			name: "file backend with gnuplot path",
			mutate: func(c *Config) {
				c.OutputPath = "session.gp"
				c.GnuplotPath = "/usr/bin/gnuplot"
			},
			wantErr: "-gnuplot has no effect",
		},
		{
			name: "file backend with check",
			mutate: func(c *Config) {
				c.OutputPath = "session.gp"
				c.Check = true
			},
			wantErr: "check",
		},
		{
			name:    "path with embedded arguments",
			mutate:  func(c *Config) { c.GnuplotPath = "gnuplot -p" },
			wantErr: "bare binary path",
		},
		{
			name:   "negative timeout means forever",
			mutate: func(c *Config) { c.DefaultTimeout = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCombinesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyncMode = "bogus"
	cfg.LogFormat = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate = nil, want combined errors")
	}
	for _, want := range []string{"sync", "log_format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error %q missing %q", err, want)
		}
	}
}

// =============================================================================
// EffectiveMode
// =============================================================================

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   Mode
	}{
		{"defaults", func(c *Config) {}, ModeInteractive},
		{"script argument", func(c *Config) { c.ScriptPath = "plots.gp" }, ModeScript},
		{"output path", func(c *Config) { c.OutputPath = "out.gp" }, ModeFile},
		{"check", func(c *Config) { c.Check = true }, ModeCheck},
		{
			"check wins over script",
			func(c *Config) { c.Check = true; c.ScriptPath = "plots.gp" },
			ModeCheck,
		},
		{
			"output wins over script",
			func(c *Config) { c.OutputPath = "out.gp"; c.ScriptPath = "plots.gp" },
			ModeFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if got := EffectiveMode(cfg); got != tt.want {
				t.Errorf("EffectiveMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	for m, want := range map[Mode]string{
		ModeInteractive: "interactive",
		ModeScript:      "script",
		ModeFile:        "file",
		ModeCheck:       "check",
	} {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}
