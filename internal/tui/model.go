package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drakk3/gnuplotting/internal/stats"
)

// maxScrollback bounds the number of console lines kept in memory.
const maxScrollback = 500

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to refresh the statistics footer.
type TickMsg time.Time

// ResultMsg carries the outcome of one submitted command.
type ResultMsg struct {
	Command string
	Output  string
	Err     error
	Elapsed time.Duration
}

// NoticeMsg prints a line into the scrollback, used for unsync output
// arriving from the driver.
type NoticeMsg struct {
	Text string
}

// QuitMsg signals the console should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Executor is the command surface the console drives. The process
// driver satisfies it.
type Executor interface {
	Cmd(command string, inlineData ...string) (string, error)
}

type lineKind int

const (
	lineEcho lineKind = iota
	lineOutput
	lineError
	lineNotice
)

type consoleLine struct {
	kind lineKind
	text string
}

// Model is the console state.
type Model struct {
	exec     Executor
	recorder *stats.Recorder // optional
	version  string

	// Prompt state
	input   []rune
	cursor  int
	history []string
	histIdx int    // == len(history) while editing a fresh line
	stash   string // fresh line saved while browsing history
	busy    bool

	lines []consoleLine

	startTime time.Time
	width     int
	height    int
	quitting  bool
}

// Config holds console configuration.
type Config struct {
	// Executor runs submitted commands. Required.
	Executor Executor

	// Recorder feeds the statistics footer. Optional.
	Recorder *stats.Recorder

	// Version is shown in the header, e.g. gnuplot's version string.
	Version string
}

// New creates a console model.
func New(cfg Config) Model {
	return Model{
		exec:      cfg.Executor,
		recorder:  cfg.Recorder,
		version:   cfg.Version,
		startTime: time.Now(),
		width:     80,
		height:    24,
		lines: []consoleLine{
			{lineNotice, "type gnuplot commands; exit or ctrl+d to leave"},
		},
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init starts the statistics ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		return m, tickCmd()

	case ResultMsg:
		m.busy = false
		if msg.Err != nil {
			m.append(lineError, msg.Err.Error())
		} else if msg.Output != "" {
			m.append(lineOutput, msg.Output)
		}
		return m, nil

	case NoticeMsg:
		m.append(lineNotice, msg.Text)
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+l":
		m.lines = nil
		return m, nil

	case "enter":
		return m.submit()

	case "backspace":
		if m.cursor > 0 {
			m.input = append(m.input[:m.cursor-1], m.input[m.cursor:]...)
			m.cursor--
		}
		return m, nil

	case "left":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "right":
		if m.cursor < len(m.input) {
			m.cursor++
		}
		return m, nil

	case "home", "ctrl+a":
		m.cursor = 0
		return m, nil

	case "end", "ctrl+e":
		m.cursor = len(m.input)
		return m, nil

	case "up":
		return m.browseHistory(-1), nil

	case "down":
		return m.browseHistory(1), nil
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		runes := msg.Runes
		if msg.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		m.input = append(m.input[:m.cursor], append(runes, m.input[m.cursor:]...)...)
		m.cursor += len(runes)
	}
	return m, nil
}

// submit sends the current line to the executor asynchronously. One
// command is in flight at a time; the prompt stays locked until the
// result comes back.
func (m Model) submit() (tea.Model, tea.Cmd) {
	command := strings.TrimSpace(string(m.input))
	if command == "" || m.busy {
		return m, nil
	}

	m.input = nil
	m.cursor = 0
	m.history = append(m.history, command)
	m.histIdx = len(m.history)
	m.stash = ""

	if command == "exit" || command == "quit" {
		m.quitting = true
		return m, tea.Quit
	}

	m.append(lineEcho, "gnuplot> "+command)
	m.busy = true

	exec := m.exec
	return m, func() tea.Msg {
		start := time.Now()
		out, err := exec.Cmd(command)
		return ResultMsg{
			Command: command,
			Output:  out,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}

// browseHistory moves through submitted commands. dir is -1 for older,
// +1 for newer.
func (m Model) browseHistory(dir int) Model {
	if len(m.history) == 0 {
		return m
	}

	next := m.histIdx + dir
	if next < 0 || next > len(m.history) {
		return m
	}

	if m.histIdx == len(m.history) {
		m.stash = string(m.input)
	}

	m.histIdx = next
	if next == len(m.history) {
		m.input = []rune(m.stash)
	} else {
		m.input = []rune(m.history[next])
	}
	m.cursor = len(m.input)
	return m
}

// append adds text to the scrollback, splitting multi-line output.
func (m *Model) append(kind lineKind, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		m.lines = append(m.lines, consoleLine{kind, line})
	}
	if len(m.lines) > maxScrollback {
		m.lines = m.lines[len(m.lines)-maxScrollback:]
	}
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after one second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// External helpers
// =============================================================================

// SendNotice pushes unsync output into the console scrollback.
func SendNotice(p *tea.Program, text string) {
	if p != nil {
		p.Send(NoticeMsg{Text: text})
	}
}

// SendQuit asks the console to exit.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the console started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Input returns the current prompt content.
func (m Model) Input() string {
	return string(m.input)
}

// Busy reports whether a command is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
}

// formatMs formats a duration as milliseconds.
func formatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
