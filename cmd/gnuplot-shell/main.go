// Package main provides the gnuplot-shell CLI entry point.
//
// gnuplot-shell drives a gnuplot subprocess through synchronized pipes:
// interactively through a console, in batch from a script, or by
// transcribing commands to a script file without running gnuplot.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drakk3/gnuplotting/internal/config"
	"github.com/drakk3/gnuplotting/internal/gnuplot"
	"github.com/drakk3/gnuplotting/internal/logging"
	"github.com/drakk3/gnuplotting/internal/metrics"
	"github.com/drakk3/gnuplotting/internal/preflight"
	"github.com/drakk3/gnuplotting/internal/stats"
	"github.com/drakk3/gnuplotting/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/gnuplot-shell
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("gnuplot-shell %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	mode := config.EffectiveMode(cfg)

	// Initialize logger
	// The interactive console owns the terminal, so logs are discarded
	// there to avoid corrupting its rendering.
	var logger *slog.Logger
	if mode == config.ModeInteractive && cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"mode", mode.String(),
		"gnuplot", binaryPath(cfg),
		"timeout", cfg.DefaultTimeout,
		"metrics_addr", cfg.MetricsAddr,
	)

	switch mode {
	case config.ModeCheck:
		return runCheck(cfg, logger)
	case config.ModeFile:
		return runFile(cfg, logger)
	case config.ModeScript:
		return runScript(cfg, logger)
	default:
		return runInteractive(cfg, logger)
	}
}

// =============================================================================
// Check Mode
// =============================================================================

// runCheck runs the preflight checks, starts gnuplot, queries its
// version and exits.
func runCheck(cfg *config.Config, logger *slog.Logger) int {
	result := preflight.RunAll(binaryPath(cfg), cfg.ScriptPath)
	preflight.PrintResults(result)
	if !result.Passed {
		return 1
	}

	proc, err := startProcess(cfg, logger, gnuplot.Callbacks{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer proc.Terminate()

	ver, err := proc.Version()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying version: %v\n", err)
		return 1
	}

	fmt.Printf("gnuplot %s (%s)\n", ver, binaryPath(cfg))
	proc.Quit()
	return 0
}

// =============================================================================
// File Mode
// =============================================================================

// runFile transcribes commands to a script file without running gnuplot.
// Commands come from the script argument if given, otherwise from stdin.
func runFile(cfg *config.Config, logger *slog.Logger) int {
	backend, err := gnuplot.CreateFile(cfg.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var in io.Reader = os.Stdin
	if cfg.ScriptPath != "" {
		f, err := os.Open(cfg.ScriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	count := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := backend.Cmd(scanner.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			backend.Terminate()
			return 1
		}
		count++
	}

	if err := backend.Terminate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger.Info("script_written", "path", cfg.OutputPath, "lines", count)
	return 0
}

// =============================================================================
// Script Mode
// =============================================================================

// runScript sends a script to gnuplot as one synchronized batch and
// exits when it completes.
func runScript(cfg *config.Config, logger *slog.Logger) int {
	sessionStart := time.Now()
	data, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	recorder := newRecorder(cfg)
	proc, err := startProcess(cfg, logger, gnuplot.Callbacks{
		OnCommand: func(cause string, elapsed time.Duration, err error) {
			if recorder != nil {
				recorder.Record(elapsed, err)
			}
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer proc.Terminate()

	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = gnuplot.Forever
	}

	out, err := proc.Send(lines, timeout, syncPairFor(cfg.SyncMode))
	if out != "" {
		fmt.Println(out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	proc.Quit()
	printSummary(recorder, cfg, "", sessionStart)
	return 0
}

// =============================================================================
// Interactive Mode
// =============================================================================

// runInteractive starts gnuplot and hands the terminal to the console
// (or a plain prompt with -tui=false).
func runInteractive(cfg *config.Config, logger *slog.Logger) int {
	sessionStart := time.Now()
	recorder := newRecorder(cfg)
	handler := logging.NewOutputHandler(logger, cfg.Verbose)

	var collector *metrics.Collector
	var server *metrics.Server
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector(metrics.CollectorConfig{GnuplotPath: binaryPath(cfg)})
		server = metrics.NewServer(cfg.MetricsAddr, logger)
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting metrics server: %v\n", err)
			return 1
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	// The console program does not exist yet when the process starts, so
	// unsync notifications go through a pointer set once it does.
	var program atomic.Pointer[tea.Program]

	proc, err := startProcess(cfg, logger, gnuplot.Callbacks{
		OnCommand: func(cause string, elapsed time.Duration, err error) {
			if recorder != nil {
				recorder.Record(elapsed, err)
			}
			if collector != nil {
				collector.CommandCompleted(elapsed, err)
			}
		},
		OnUnsync: func(text string) {
			if recorder != nil {
				recorder.RecordUnsync()
			}
			if collector != nil {
				collector.UnsyncLine()
			}
			handler.HandleLine(text)
			tui.SendNotice(program.Load(), text)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if collector != nil {
		collector.ProcessStarted()
		defer collector.ProcessStopped()
	}

	ver, err := proc.Version()
	if err != nil {
		logger.Warn("version_query_failed", "error", err)
	}
	if collector != nil && ver != "" {
		collector.SetVersion(binaryPath(cfg), ver)
	}

	if cfg.TUIEnabled {
		runConsole(proc, recorder, ver, &program)
	} else {
		runPlainPrompt(proc, cfg)
	}

	proc.Quit()
	proc.Terminate()
	printSummary(recorder, cfg, ver, sessionStart)
	return 0
}

// runConsole runs the Bubble Tea console until it quits.
func runConsole(proc *gnuplot.Process, recorder *stats.Recorder, ver string, program *atomic.Pointer[tea.Program]) {
	model := tui.New(tui.Config{
		Executor: proc,
		Recorder: recorder,
		Version:  ver,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	program.Store(p)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			tui.SendQuit(p)
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Console error: %v\n", err)
	}
}

// runPlainPrompt is the -tui=false fallback: a line-oriented prompt on
// stdin, ended by EOF or an exit command.
func runPlainPrompt(proc *gnuplot.Process, cfg *config.Config) {
	printBanner(cfg)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("gnuplot> ")
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "exit" || command == "quit" {
			break
		}
		if command != "" {
			out, err := proc.Cmd(command)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else if out != "" {
				fmt.Println(out)
			}
		}
		fmt.Print("gnuplot> ")
	}
	fmt.Println()
}

// =============================================================================
// Helpers
// =============================================================================

// startProcess spawns gnuplot from the configuration.
func startProcess(cfg *config.Config, logger *slog.Logger, cbs gnuplot.Callbacks) (*gnuplot.Process, error) {
	return gnuplot.New(gnuplot.Options{
		Path:           cfg.GnuplotPath,
		Args:           cfg.GnuplotArgs,
		DefaultTimeout: cfg.DefaultTimeout,
		Logger:         logger,
		Callbacks:      cbs,
		GraceExit:      cfg.GraceExit,
		GraceTerm:      cfg.GraceTerm,
	})
}

// binaryPath returns the configured gnuplot binary, or the platform
// default when unset.
func binaryPath(cfg *config.Config) string {
	if cfg.GnuplotPath != "" {
		return cfg.GnuplotPath
	}
	return gnuplot.DefaultBinary
}

// syncPairFor maps the configured sync mode onto a token pair.
func syncPairFor(mode string) gnuplot.SyncPair {
	if mode == "echo" {
		return gnuplot.SyncPair{Begin: gnuplot.SyncOSEcho, Done: gnuplot.SyncOSEcho}
	}
	return gnuplot.DefaultSync
}

// newRecorder returns a recorder when statistics are enabled.
func newRecorder(cfg *config.Config) *stats.Recorder {
	if !cfg.StatsEnabled {
		return nil
	}
	return stats.NewRecorder()
}

// printSummary prints the exit summary when statistics were collected.
func printSummary(recorder *stats.Recorder, cfg *config.Config, ver string, start time.Time) {
	if recorder == nil {
		return
	}
	fmt.Print(stats.FormatExitSummary(recorder.Snapshot(), stats.SummaryConfig{
		GnuplotPath: binaryPath(cfg),
		Version:     ver,
		Duration:    time.Since(start),
		MetricsAddr: cfg.MetricsAddr,
	}))
}

// printBanner prints the startup banner for the plain prompt.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                          gnuplot-shell                            ║")
	fmt.Println("║            Synchronized gnuplot subprocess driver                 ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Gnuplot:     %s\n", binaryPath(cfg))
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("Type gnuplot commands. exit, quit or Ctrl+D to leave.")
	fmt.Println()
}
