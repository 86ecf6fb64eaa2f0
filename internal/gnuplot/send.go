package gnuplot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drakk3/gnuplotting/internal/future"
	"github.com/drakk3/gnuplotting/internal/reader"
)

// SyncMode selects how a synchronization token is announced to the
// subprocess.
type SyncMode int

const (
	// SyncPrintErr makes gnuplot print the token with its native
	// printerr command. The default.
	SyncPrintErr SyncMode = iota

	// SyncOSEcho prints the token with the operating system's echo,
	// only meaningful while a shell passthrough is active.
	SyncOSEcho
)

// printLine returns the command line that makes gnuplot emit the token.
func (m SyncMode) printLine(tok string) (string, error) {
	switch m {
	case SyncPrintErr:
		return "printerr '" + tok + "'", nil
	case SyncOSEcho:
		return "echo '" + tok + "'", nil
	default:
		return "", fmt.Errorf("%w: unknown sync mode %d", ErrBadArgument, m)
	}
}

// SyncPair selects the announcement mechanism for the begin and done
// tokens independently.
type SyncPair struct {
	Begin SyncMode
	Done  SyncMode
}

// DefaultSync announces both tokens with printerr.
var DefaultSync = SyncPair{SyncPrintErr, SyncPrintErr}

// interactiveFlush is the number of blank lines appended by ICmd to page
// through interactive output such as help screens.
const interactiveFlush = 50

// Send sends lines to gnuplot for evaluation.
//
// With timeout NoWait the lines are written without synchronization
// tokens and Send returns immediately with no result. Otherwise the
// batch is bracketed with a fresh begin/done token pair, and Send blocks
// until the done token is observed or timeout elapses (Forever waits
// indefinitely).
//
// Returns the output between the tokens ("" if none). A *TimeoutError
// means gnuplot never printed the done token in time; a *Error means the
// output matched gnuplot's error report.
func (p *Process) Send(lines []string, timeout time.Duration, sync SyncPair) (string, error) {
	beginFormat := sync.Begin
	doneFormat := sync.Done
	// Validate the sync selection before any I/O.
	if _, err := beginFormat.printLine(""); err != nil {
		return "", err
	}
	if _, err := doneFormat.printLine(""); err != nil {
		return "", err
	}

	if timeout == NoWait {
		return "", p.writeBatch("", lines, "")
	}
	if timeout < 0 {
		timeout = Forever
	}

	pair := p.gen.CommandPair()
	printBegin, _ := beginFormat.printLine(pair.Begin)
	printDone, _ := doneFormat.printLine(pair.Done)
	cause := "sending " + pair.Begin

	start := time.Now()
	if err := p.writeBatch(printBegin, lines, printDone); err != nil {
		return "", err
	}

	out, err := p.worker.Request(pair.Begin, pair.Done, timeout)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, future.ErrTimeout) {
			terr := &TimeoutError{Cause: cause, Timeout: timeout}
			p.observe(cause, elapsed, terr)
			return "", terr
		}
		if errors.Is(err, reader.ErrStopped) {
			err = fmt.Errorf("gnuplot: process terminated: %w", err)
		}
		p.observe(cause, elapsed, err)
		return "", err
	}

	if out.Unsync != "" {
		p.logger.Warn("unsync_output", "text", out.Unsync)
		if p.callbacks.OnUnsync != nil {
			p.callbacks.OnUnsync(out.Unsync)
		}
	}
	if out.Text != "" {
		p.logger.Debug("sync_output", "text", out.Text)
	}

	if gperr := parseError(out.Text); gperr != nil {
		p.observe(cause, elapsed, gperr)
		return "", gperr
	}

	p.observe(cause, elapsed, nil)
	return out.Text, nil
}

// writeBatch writes one begin/lines/done batch under the write mutex so
// concurrent senders cannot interleave partial batches, then flushes.
func (p *Process) writeBatch(first string, lines []string, last string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if first != "" {
		p.writeLine(first)
	}
	for _, line := range lines {
		p.writeLine(line)
	}
	if last != "" {
		p.writeLine(last)
	}
	if err := p.in.Flush(); err != nil {
		return fmt.Errorf("gnuplot: write: %w", err)
	}
	return nil
}

func (p *Process) writeLine(line string) {
	p.logger.Debug("sending_line", "line", line)
	p.in.WriteString(line)
	p.in.WriteString(lineSep)
}

func (p *Process) observe(cause string, elapsed time.Duration, err error) {
	if p.callbacks.OnCommand != nil {
		p.callbacks.OnCommand(cause, elapsed, err)
	}
}

// Cmd sends a single command, optionally followed by inline data lines,
// using the default timeout and sync mode.
func (p *Process) Cmd(command string, inlineData ...string) (string, error) {
	return p.CmdTimeout(p.defaultTimeout, command, inlineData...)
}

// CmdTimeout is Cmd with an explicit timeout.
func (p *Process) CmdTimeout(timeout time.Duration, command string, inlineData ...string) (string, error) {
	lines := append([]string{command}, inlineData...)
	return p.Send(lines, timeout, DefaultSync)
}

// ICmd runs an interactive command such as help, appending a screenful
// of blank lines so gnuplot's pager does not block waiting for input.
func (p *Process) ICmd(command string, args ...string) (string, error) {
	if len(args) > 0 {
		command += " " + strings.Join(args, " ")
	}
	flush := make([]string, interactiveFlush)
	return p.Cmd(command, flush...)
}

// Help returns gnuplot's internal help for the given topics.
func (p *Process) Help(topics ...string) (string, error) {
	return p.ICmd("help", topics...)
}

// Show runs gnuplot's show command for the given topics.
func (p *Process) Show(topics ...string) (string, error) {
	return p.ICmd("show", topics...)
}

// Shell executes shell commands through gnuplot's shell passthrough.
// There is no portable way to leave the shell, so callers must end
// shellCmds with an exit-like command.
func (p *Process) Shell(shellCmds ...string) (string, error) {
	res, err := p.Cmd("shell", shellCmds...)
	if err != nil {
		return "", err
	}
	// Empty shell commands leave a trailing separator behind.
	return strings.TrimRight(res, lineSep), nil
}

// Version asks the running process for its version string.
func (p *Process) Version() (string, error) {
	return p.Cmd("printerr GPVAL_VERSION")
}

// Quit sends the quit command without waiting for a reply. It does not
// release any resources; use Terminate for that.
func (p *Process) Quit() error {
	_, err := p.CmdTimeout(NoWait, "quit")
	return err
}
