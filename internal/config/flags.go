package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// argList is a custom flag type for repeatable -arg flags.
type argList []string

func (a *argList) String() string {
	return strings.Join(*a, ", ")
}

func (a *argList) Set(value string) error {
	*a = append(*a, value)
	return nil
}

// ParseFlags parses command-line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()
	var args argList

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `gnuplot-shell - synchronized gnuplot subprocess driver

Usage:
  gnuplot-shell [flags] [script.gp]

With no script, an interactive console is started. With a script
argument the script is sent to gnuplot and the shell exits.

Gnuplot:
`)
		printFlagCategory([]string{"gnuplot", "arg"})

		fmt.Fprintf(os.Stderr, "\nSynchronization:\n")
		printFlagCategory([]string{"timeout", "sync"})

		fmt.Fprintf(os.Stderr, "\nTermination:\n")
		printFlagCategory([]string{"grace-exit", "grace-term"})

		fmt.Fprintf(os.Stderr, "\nModes:\n")
		printFlagCategory([]string{"out", "tui", "check"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "stats", "v", "log-format"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Interactive console
  gnuplot-shell

  # Run a script and exit
  gnuplot-shell -timeout 30s plots.gp

  # Transcribe commands to a script without running gnuplot
  gnuplot-shell -out session.gp

`)
	}

	// Gnuplot
	flag.StringVar(&cfg.GnuplotPath, "gnuplot", cfg.GnuplotPath, "Path to the gnuplot binary (default: platform binary on PATH)")
	flag.Var(&args, "arg", "Extra gnuplot command-line argument (can repeat)")

	// Synchronization
	flag.DurationVar(&cfg.DefaultTimeout, "timeout", cfg.DefaultTimeout, "Default command timeout (0 = wait forever)")
	flag.StringVar(&cfg.SyncMode, "sync", cfg.SyncMode, `Token announcement: "printerr" or "echo"`)

	// Termination
	flag.DurationVar(&cfg.GraceExit, "grace-exit", cfg.GraceExit, "Wait for voluntary exit after closing stdin")
	flag.DurationVar(&cfg.GraceTerm, "grace-term", cfg.GraceTerm, "Wait after SIGTERM before killing")

	// Modes
	flag.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Write commands to this script file instead of running gnuplot")
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable the interactive console (use -tui=false for a plain prompt)")
	flag.BoolVar(&cfg.Check, "check", cfg.Check, "Start gnuplot, query its version and exit")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	flag.BoolVar(&cfg.StatsEnabled, "stats", cfg.StatsEnabled, "Track command latency statistics for the exit summary")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	flag.Parse()

	cfg.GnuplotArgs = args

	// Positional argument: script to run in batch mode
	if rest := flag.Args(); len(rest) >= 1 {
		cfg.ScriptPath = rest[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s\n    \t%s", f.Name, f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}
