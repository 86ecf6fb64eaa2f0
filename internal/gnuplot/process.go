// Package gnuplot drives a long-lived gnuplot process through its
// standard input/output pipes, turning the line-oriented, unsynchronized
// text protocol into a request/response API with timeouts.
//
// gnuplot echoes commands, interleaves error text and has no native
// request-id mechanism. Each command batch is therefore bracketed by two
// print commands emitting unique sentinel tokens, and a single background
// worker captures the bytes between them as that batch's output.
package gnuplot

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/drakk3/gnuplotting/internal/reader"
	"github.com/drakk3/gnuplotting/internal/token"
)

// Timeout sentinels for Send.
const (
	// NoWait skips synchronization entirely: no tokens are emitted, no
	// read is requested, and Send returns immediately with no result.
	// Used for commands expected to hang (quit, shell) and during
	// shutdown.
	NoWait time.Duration = 0

	// Forever waits indefinitely for the done token.
	Forever time.Duration = -1
)

// Event identifies a terminal event to wait for, e.g.
// {Target: "qt_0", Name: "Close"}. Target is "<term>" or "<term>_<id>";
// available event names are those of gnuplot's `bind` command.
type Event struct {
	Target string
	Name   string
}

// Callbacks contains optional hooks for process observability.
// All hooks are invoked synchronously from the calling goroutine.
type Callbacks struct {
	// OnCommand is called after every synchronized Send with the
	// command description, the elapsed time and the outcome.
	OnCommand func(cause string, elapsed time.Duration, err error)

	// OnUnsync is called when output is found before the begin token:
	// leftovers of a prior improperly-terminated command.
	OnUnsync func(text string)
}

// Options configures a new Process.
type Options struct {
	// Path is the gnuplot executable, DefaultBinary if empty. Resolved
	// through the PATH.
	Path string

	// Args are extra arguments passed to the executable.
	Args []string

	// DefaultTimeout bounds Cmd and the other convenience calls.
	// Zero means wait forever.
	DefaultTimeout time.Duration

	// Logger for engine events. Defaults to slog.Default().
	Logger *slog.Logger

	// Callbacks for observability hooks.
	Callbacks Callbacks

	// GraceExit is how long Terminate waits for a natural exit after
	// closing the pipes before signaling. Default 1s.
	GraceExit time.Duration

	// GraceTerm is how long Terminate waits after SIGTERM before
	// force-killing. Default 4s.
	GraceTerm time.Duration
}

// Process owns a running gnuplot subprocess: its stdin, its combined
// stdout+stderr stream, and the background reader worker.
type Process struct {
	id     int64
	logger *slog.Logger
	gen    *token.Generator

	defaultTimeout time.Duration
	callbacks      Callbacks
	graceExit      time.Duration
	graceTerm      time.Duration

	cmd     *exec.Cmd
	stdin   io.Closer
	readEnd io.Closer
	worker  *reader.Worker

	// in buffers stdin writes; writeMu keeps one Send's
	// begin/lines/done batch from interleaving with another's.
	in      *bufio.Writer
	writeMu sync.Mutex

	// exited is closed once the subprocess has been reaped.
	exited  chan struct{}
	waitErr error

	termOnce sync.Once
	termErr  error
}

// New spawns a gnuplot process and starts its reader worker.
func New(opts Options) (*Process, error) {
	path := opts.Path
	if path == "" {
		path = DefaultBinary
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("gnuplot: executable %q: %w", path, err)
	}

	cmd := exec.Command(resolved, opts.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("gnuplot: stdin pipe: %w", err)
	}

	// One pipe carries stdout and stderr combined: error text and token
	// prints (printerr writes to stderr) land on the same stream the
	// worker reads.
	pr, pw, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("gnuplot: output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		stdin.Close()
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("gnuplot: start %q: %w", resolved, err)
	}

	// The child holds the write end now; keeping the parent's copy open
	// would defeat EOF detection after the child exits.
	pw.Close()

	p := newFromPipes(stdin, pr, opts)
	p.cmd = cmd

	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	p.logger.Info("gnuplot_started",
		"id", p.id,
		"pid", cmd.Process.Pid,
		"path", resolved,
	)
	return p, nil
}

// newFromPipes wires a Process around existing pipes. Used by New and,
// without a subprocess, by tests.
func newFromPipes(stdin io.WriteCloser, output io.ReadCloser, opts Options) *Process {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	graceExit := opts.GraceExit
	if graceExit <= 0 {
		graceExit = time.Second
	}
	graceTerm := opts.GraceTerm
	if graceTerm <= 0 {
		graceTerm = 4 * time.Second
	}

	defaultTimeout := opts.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = Forever
	}

	id := token.NextInstanceID()
	p := &Process{
		id:             id,
		logger:         logger.With("gnuplot_id", id),
		gen:            token.NewGenerator(id),
		defaultTimeout: defaultTimeout,
		callbacks:      opts.Callbacks,
		graceExit:      graceExit,
		graceTerm:      graceTerm,
		stdin:          stdin,
		readEnd:        output,
		in:             bufio.NewWriter(stdin),
		exited:         make(chan struct{}),
	}
	p.worker = reader.NewWorker(output, lineSep, p.logger)
	p.worker.Start()
	return p
}

// ID returns the program-unique id of this process instance.
func (p *Process) ID() int64 {
	return p.id
}

// Interactive reports that this backend supports synchronized
// request/response interaction.
func (p *Process) Interactive() bool {
	return true
}

// Terminate shuts the process down: closes stdin (EOF to gnuplot),
// closes the output stream, stops the reader worker, then escalates from
// waiting for a natural exit to SIGTERM to SIGKILL across the grace
// periods. Safe to call multiple times; later calls observe the process
// already gone and do nothing.
func (p *Process) Terminate() error {
	p.termOnce.Do(func() {
		p.termErr = p.terminate()
	})
	return p.termErr
}

func (p *Process) terminate() error {
	p.logger.Debug("gnuplot_terminating")

	// Pipe-close errors are ignored: the pipes may already be gone if
	// the process died first, and Terminate must stay idempotent.
	p.writeMu.Lock()
	p.in.Flush()
	p.stdin.Close()
	p.writeMu.Unlock()
	p.readEnd.Close()

	// The closed read end unblocks any in-flight read, so Stop's join
	// cannot hang.
	p.worker.Stop()

	if p.cmd == nil {
		return nil
	}

	if p.waitExit(p.graceExit) {
		p.logExit("eof")
		return nil
	}

	p.cmd.Process.Signal(syscall.SIGTERM)
	if p.waitExit(p.graceTerm) {
		p.logExit("sigterm")
		return nil
	}

	p.logger.Warn("gnuplot_force_kill", "pid", p.cmd.Process.Pid)
	p.cmd.Process.Kill()
	<-p.exited
	p.logExit("sigkill")
	return nil
}

// waitExit waits up to d for the subprocess to be reaped.
func (p *Process) waitExit(d time.Duration) bool {
	select {
	case <-p.exited:
		return true
	case <-time.After(d):
		return false
	}
}

func (p *Process) logExit(how string) {
	p.logger.Info("gnuplot_exited", "how", how, "wait_error", p.waitErr)
}
