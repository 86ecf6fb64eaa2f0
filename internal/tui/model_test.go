package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drakk3/gnuplotting/internal/stats"
)

// fakeExecutor replays canned outputs and records submitted commands.
type fakeExecutor struct {
	commands []string
	outputs  map[string]string
	err      error
}

func (f *fakeExecutor) Cmd(command string, inlineData ...string) (string, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return "", f.err
	}
	return f.outputs[command], nil
}

func newTestModel(exec Executor) Model {
	m := New(Config{Executor: exec, Version: "5.4"})
	m.width = 80
	m.height = 24
	return m
}

func typeString(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, key tea.KeyType) Model {
	next, _ := m.Update(tea.KeyMsg{Type: key})
	return next.(Model)
}

// =============================================================================
// Input editing
// =============================================================================

func TestTypingEditsPrompt(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	m = typeString(m, "plot sin(x)")
	if m.Input() != "plot sin(x)" {
		t.Errorf("Input = %q, want %q", m.Input(), "plot sin(x)")
	}

	m = press(m, tea.KeyBackspace)
	if m.Input() != "plot sin(x" {
		t.Errorf("Input after backspace = %q", m.Input())
	}
}

func TestCursorMovement(t *testing.T) {
	m := newTestModel(&fakeExecutor{})
	m = typeString(m, "st grid")

	// Jump home, insert the missing 'e'.
	m = press(m, tea.KeyHome)
	m = press(m, tea.KeyRight)
	m = typeString(m, "e")

	if m.Input() != "set grid" {
		t.Errorf("Input = %q, want %q", m.Input(), "set grid")
	}
}

// =============================================================================
// Submit
// =============================================================================

func TestSubmitRunsCommand(t *testing.T) {
	exec := &fakeExecutor{outputs: map[string]string{"print pi": "3.14159"}}
	m := newTestModel(exec)

	m = typeString(m, "print pi")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if !m.Busy() {
		t.Error("model should be busy after submit")
	}
	if cmd == nil {
		t.Fatal("submit returned no command")
	}

	msg := cmd()
	res, ok := msg.(ResultMsg)
	if !ok {
		t.Fatalf("command produced %T, want ResultMsg", msg)
	}
	if res.Output != "3.14159" {
		t.Errorf("Output = %q, want 3.14159", res.Output)
	}
	if len(exec.commands) != 1 || exec.commands[0] != "print pi" {
		t.Errorf("executor saw %q, want [print pi]", exec.commands)
	}

	next, _ = m.Update(res)
	m = next.(Model)
	if m.Busy() {
		t.Error("model still busy after result")
	}
	if !strings.Contains(m.View(), "3.14159") {
		t.Error("view does not show the command output")
	}
}

func TestSubmitEmptyLineIgnored(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if cmd != nil {
		t.Error("empty submit should produce no command")
	}
	if m.Busy() {
		t.Error("empty submit should not lock the prompt")
	}
}

func TestSubmitWhileBusyIgnored(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	m = typeString(m, "plot sin(x)")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	m = typeString(m, "plot cos(x)")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if cmd != nil {
		t.Error("second submit while busy should produce no command")
	}
}

func TestExitCommandQuits(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	m = typeString(m, "exit")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if !m.quitting {
		t.Error("exit should set quitting")
	}
	if cmd == nil {
		t.Error("exit should return tea.Quit")
	}
}

func TestResultErrorShownInScrollback(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	next, _ := m.Update(ResultMsg{Command: "bogus", Err: errors.New("invalid command, line 0")})
	m = next.(Model)

	if !strings.Contains(m.View(), "invalid command") {
		t.Error("view does not show the command error")
	}
}

// =============================================================================
// History
// =============================================================================

func TestHistoryBrowsing(t *testing.T) {
	exec := &fakeExecutor{}
	m := newTestModel(exec)

	for _, c := range []string{"set grid", "plot sin(x)"} {
		m = typeString(m, c)
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = next.(Model)
		next, _ = m.Update(ResultMsg{Command: c})
		m = next.(Model)
	}

	m = press(m, tea.KeyUp)
	if m.Input() != "plot sin(x)" {
		t.Errorf("after up: Input = %q, want plot sin(x)", m.Input())
	}
	m = press(m, tea.KeyUp)
	if m.Input() != "set grid" {
		t.Errorf("after up up: Input = %q, want set grid", m.Input())
	}
	m = press(m, tea.KeyDown)
	if m.Input() != "plot sin(x)" {
		t.Errorf("after down: Input = %q, want plot sin(x)", m.Input())
	}
}

func TestHistoryStashesFreshLine(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	m = typeString(m, "set grid")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	next, _ = m.Update(ResultMsg{Command: "set grid"})
	m = next.(Model)

	m = typeString(m, "half typed")
	m = press(m, tea.KeyUp)
	if m.Input() != "set grid" {
		t.Fatalf("after up: Input = %q", m.Input())
	}
	m = press(m, tea.KeyDown)
	if m.Input() != "half typed" {
		t.Errorf("fresh line lost while browsing: Input = %q", m.Input())
	}
}

// =============================================================================
// Scrollback and view
// =============================================================================

func TestNoticeMsgAppended(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	next, _ := m.Update(NoticeMsg{Text: "stray warning from gnuplot"})
	m = next.(Model)

	if !strings.Contains(m.View(), "stray warning from gnuplot") {
		t.Error("view does not show the notice")
	}
}

func TestScrollbackBounded(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	for i := 0; i < maxScrollback+100; i++ {
		m.append(lineOutput, "line")
	}
	if len(m.lines) != maxScrollback {
		t.Errorf("scrollback = %d lines, want %d", len(m.lines), maxScrollback)
	}
}

func TestViewShowsVersionAndStats(t *testing.T) {
	rec := stats.NewRecorder()
	rec.Record(0, nil)

	m := New(Config{Executor: &fakeExecutor{}, Recorder: rec, Version: "5.4"})
	m.width = 100
	m.height = 24

	view := m.View()
	if !strings.Contains(view, "gnuplot 5.4") {
		t.Error("view missing version header")
	}
	if !strings.Contains(view, "cmds") {
		t.Error("view missing stats footer")
	}
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)

	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", m.width, m.height)
	}
}

func TestQuitMsg(t *testing.T) {
	m := newTestModel(&fakeExecutor{})

	next, cmd := m.Update(QuitMsg{})
	m = next.(Model)

	if !m.quitting || cmd == nil {
		t.Error("QuitMsg should quit the program")
	}
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
}
