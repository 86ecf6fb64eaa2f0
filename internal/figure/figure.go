// Package figure batches terminal settings and plot elements for one
// window (or output file) and submits them as a single synchronized
// command group, so concurrent figures never interleave their state.
package figure

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drakk3/gnuplotting/internal/gnuplot"
)

// figureIDs numbers figures so each addresses its own terminal window.
var figureIDs atomic.Int64

// Context is the command surface a figure draws on.
type Context interface {
	Cmd(command string, inlineData ...string) (string, error)
	CmdTimeout(timeout time.Duration, command string, inlineData ...string) (string, error)
	Send(lines []string, timeout time.Duration, sync gnuplot.SyncPair) (string, error)

	// Interactive reports whether the backend can answer queries such
	// as the current terminal type.
	Interactive() bool
}

// Waiter is the optional event surface. The process driver satisfies
// it; the file backend does not.
type Waiter interface {
	Wait(events []gnuplot.Event, timeout time.Duration) error
}

// Settings that must go through their dedicated setters so the figure's
// own record of them stays accurate across Reset.
var protectedSettings = map[string]bool{
	"term":     true,
	"terminal": true,
	"title":    true,
	"output":   true,
}

// Options configures a new figure. The zero value targets the current
// terminal of an interactive backend.
type Options struct {
	// Term is the terminal name, e.g. "qt" or "pngcairo". When empty
	// it is inferred from the backend's current terminal.
	Term string

	// Title is the window or plot title.
	Title string

	// TermOptions are extra terminal options appended to the set term
	// line, e.g. "size 800,600".
	TermOptions string

	// Output is the output file, for file-producing terminals.
	Output string
}

// Figure accumulates settings and plot elements until Submit.
// Safe for concurrent use, though a figure is usually driven by one
// goroutine.
type Figure struct {
	ctx Context
	id  int64

	mu       sync.Mutex
	term     string
	title    string
	termOpts string
	output   string
	settings []string
	plots    []string
	splots   []string
}

// New creates a figure on ctx. When opts.Term is empty the current
// terminal is queried from the backend; non-interactive backends must
// name a terminal explicitly.
func New(ctx Context, opts Options) (*Figure, error) {
	term := opts.Term
	if term == "" {
		var err error
		term, err = currentTerm(ctx)
		if err != nil {
			return nil, err
		}
	}

	f := &Figure{
		ctx:  ctx,
		id:   figureIDs.Add(1) - 1,
		term: term,
	}
	if opts.Title != "" {
		f.SetTitle(opts.Title)
	}
	if opts.TermOptions != "" {
		f.SetTermOptions(opts.TermOptions)
	}
	if opts.Output != "" {
		f.SetOutput(opts.Output)
	}
	return f, nil
}

// currentTerm asks the backend which terminal is active.
func currentTerm(ctx Context) (string, error) {
	if !ctx.Interactive() {
		return "", fmt.Errorf("figure: terminal must be named on a non-interactive backend")
	}
	out, err := ctx.Cmd("show term")
	if err != nil {
		return "", err
	}
	const marker = "terminal type is "
	idx := strings.Index(out, marker)
	if idx < 0 {
		return "", fmt.Errorf("figure: cannot infer terminal from %q", out)
	}
	fields := strings.Fields(out[idx+len(marker):])
	if len(fields) == 0 {
		return "", fmt.Errorf("figure: cannot infer terminal from %q", out)
	}
	return fields[0], nil
}

// ID returns the figure's window number.
func (f *Figure) ID() int64 { return f.id }

// Term returns the figure's terminal name.
func (f *Figure) Term() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.term
}

// Title returns the figure's title.
func (f *Figure) Title() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title
}

// Output returns the figure's output file.
func (f *Figure) Output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output
}

// termLine renders the set term argument addressing this figure's
// window.
func (f *Figure) termLine() string {
	line := fmt.Sprintf("%s %d", f.term, f.id)
	if f.termOpts != "" {
		line += " " + f.termOpts
	}
	return line
}

// SetTitle records the title and queues the matching set command.
func (f *Figure) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
	f.settings = append(f.settings, fmt.Sprintf("set title %q", title))
}

// SetTermOptions records extra terminal options; they take effect on
// the next Submit through the figure's set term line.
func (f *Figure) SetTermOptions(opts string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.termOpts = opts
}

// SetOutput records the output file and queues the matching set
// command.
func (f *Figure) SetOutput(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output = path
	f.settings = append(f.settings, fmt.Sprintf("set output %q", path))
}

// Set queues an arbitrary set command. Terminal, title and output have
// dedicated setters and are rejected here so the figure's record of
// them cannot drift.
func (f *Figure) Set(setting string, args ...string) error {
	if protectedSettings[setting] {
		return fmt.Errorf("figure: %q has a dedicated setter", setting)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueSetting("set", setting, args)
	return nil
}

// Unset queues an unset command.
func (f *Figure) Unset(setting string, args ...string) error {
	if protectedSettings[setting] {
		return fmt.Errorf("figure: %q has a dedicated setter", setting)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueSetting("unset", setting, args)
	return nil
}

func (f *Figure) queueSetting(verb, setting string, args []string) {
	parts := append([]string{verb, setting}, args...)
	f.settings = append(f.settings, strings.Join(parts, " "))
}

// Element is one plot expression with its per-element clauses. Only
// Data is required; the rest render in gnuplot's clause order.
type Element struct {
	// Data is the function or datafile expression, e.g. "sin(x)" or
	// `"points.dat"`.
	Data string

	// For renders an iteration clause. Applied only on the first
	// element of a plot command.
	For string

	// SampleRange renders a range clause; the first element of the
	// first plot gets the sample keyword.
	SampleRange string

	// Axes selects the axes pair, e.g. "x1y2".
	Axes string

	// Using selects datafile columns.
	Using string

	// With selects the plot style, e.g. "lines".
	With string

	// Title labels the element in the key.
	Title string
}

// render produces the element's clause string. first marks the first
// element of the command; firstPlot additionally marks an empty plot
// list, which is where the sample keyword belongs.
func (e Element) render(first, firstPlot bool) string {
	var b strings.Builder
	if e.For != "" && first {
		b.WriteString("for " + e.For + " ")
	}
	if e.SampleRange != "" {
		if first && firstPlot {
			b.WriteString("sample ")
		}
		b.WriteString(e.SampleRange + " ")
	}
	b.WriteString(e.Data)
	if e.Axes != "" {
		b.WriteString(" axes " + e.Axes)
	}
	if e.Using != "" {
		b.WriteString(" using " + e.Using)
	}
	if e.With != "" {
		b.WriteString(" with " + e.With)
	}
	if e.Title != "" {
		b.WriteString(fmt.Sprintf(" title %q", e.Title))
	}
	return b.String()
}

// Plot queues 2D plot elements.
func (f *Figure) Plot(elements ...Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range elements {
		f.plots = append(f.plots, e.render(i == 0, len(f.plots) == 0))
	}
}

// SPlot queues 3D plot elements.
func (f *Figure) SPlot(elements ...Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range elements {
		f.splots = append(f.splots, e.render(i == 0, len(f.splots) == 0))
	}
}

// Flush discards the selected queues without submitting them.
func (f *Figure) Flush(settings, plots, splots bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushLocked(settings, plots, splots)
}

func (f *Figure) flushLocked(settings, plots, splots bool) {
	if settings {
		f.settings = nil
	}
	if plots {
		f.plots = nil
	}
	if splots {
		f.splots = nil
	}
}

// Reset discards all queues and queues a reset followed by the
// figure's recorded output and title, so the next Submit starts from a
// clean slate that still looks like this figure.
func (f *Figure) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Figure) resetLocked() {
	f.flushLocked(true, true, true)
	f.settings = append(f.settings, "reset")
	if f.output != "" {
		f.settings = append(f.settings, fmt.Sprintf("set output %q", f.output))
	}
	if f.title != "" {
		f.settings = append(f.settings, fmt.Sprintf("set title %q", f.title))
	}
}

// SubmitOptions tunes one Submit call. The zero value submits with the
// backend's default timeout, flushes all queues on success and does
// not wait for the window.
type SubmitOptions struct {
	// Timeout bounds the whole submission; zero means the backend's
	// default, negative waits forever.
	Timeout time.Duration

	// Wait blocks until the figure's window is closed after drawing.
	// Requires a backend that implements Waiter.
	Wait bool

	// WaitTimeout bounds the window wait; zero or negative waits
	// forever.
	WaitTimeout time.Duration

	// KeepSettings, KeepPlots and KeepSPlots retain the corresponding
	// queue after a successful submit, for incremental redrawing.
	KeepSettings bool
	KeepPlots    bool
	KeepSPlots   bool

	// Reset queues a reset after a successful submit.
	Reset bool
}

// Submit addresses the figure's terminal and sends the queued settings
// and plot commands as one batch, restoring the previously active
// terminal afterwards. Returns whatever output gnuplot produced.
func (f *Figure) Submit(opts SubmitOptions) (string, error) {
	f.mu.Lock()
	lines := make([]string, 0, len(f.settings)+2)
	lines = append(lines, "set term "+f.termLine())
	lines = append(lines, f.settings...)
	if len(f.plots) > 0 {
		lines = append(lines, "plot "+strings.Join(f.plots, ", "))
	}
	if len(f.splots) > 0 {
		lines = append(lines, "splot "+strings.Join(f.splots, ", "))
	}
	f.mu.Unlock()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = gnuplot.Forever
	}

	if _, err := f.ctx.CmdTimeout(gnuplot.NoWait, "set term push"); err != nil {
		return "", err
	}
	defer f.ctx.CmdTimeout(gnuplot.NoWait, "set term pop")

	res, err := f.ctx.Send(lines, timeout, gnuplot.DefaultSync)
	if err != nil {
		return res, err
	}

	if opts.Wait {
		if err := f.Wait(opts.WaitTimeout); err != nil {
			return res, err
		}
	}

	f.mu.Lock()
	f.flushLocked(!opts.KeepSettings, !opts.KeepPlots, !opts.KeepSPlots)
	if opts.Reset {
		f.resetLocked()
	}
	f.mu.Unlock()
	return res, nil
}

// Draw is Submit with default options.
func (f *Figure) Draw() (string, error) {
	return f.Submit(SubmitOptions{})
}

// Wait blocks until this figure's window is closed, or timeout elapses
// when positive.
func (f *Figure) Wait(timeout time.Duration) error {
	w, ok := f.ctx.(Waiter)
	if !ok {
		return fmt.Errorf("figure: backend cannot wait for window events")
	}
	if timeout <= 0 {
		timeout = gnuplot.Forever
	}
	f.mu.Lock()
	target := fmt.Sprintf("%s_%d", f.term, f.id)
	f.mu.Unlock()
	return w.Wait([]gnuplot.Event{{Target: target, Name: "Close"}}, timeout)
}
