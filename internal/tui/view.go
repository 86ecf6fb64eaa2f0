package tui

import (
	"fmt"
	"strings"
)

// View renders the console.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	prompt := m.renderPrompt()

	// Lines available for scrollback: total minus header, prompt and
	// the footer with its top border.
	avail := m.height - 4
	if avail < 1 {
		avail = 1
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderScrollback(avail))
	b.WriteString(prompt)
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}

func (m Model) renderHeader() string {
	title := "gnuplot-shell"
	if m.version != "" {
		title += "  gnuplot " + m.version
	}
	right := mutedStyle.Render(formatDuration(m.Elapsed()))

	left := headerStyle.Render(title)
	pad := m.width - visibleWidth(left) - visibleWidth(right) - 1
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

func (m Model) renderScrollback(avail int) string {
	start := 0
	if len(m.lines) > avail {
		start = len(m.lines) - avail
	}

	var b strings.Builder
	for _, line := range m.lines[start:] {
		b.WriteString(m.renderLine(line))
		b.WriteString("\n")
	}
	// Pad so the prompt stays pinned above the footer.
	for i := len(m.lines) - start; i < avail; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLine(line consoleLine) string {
	text := truncate(line.text, m.width)
	switch line.kind {
	case lineEcho:
		return echoStyle.Render(text)
	case lineError:
		return errorStyle.Render(text)
	case lineNotice:
		return noticeStyle.Render(text)
	default:
		return outputStyle.Render(text)
	}
}

func (m Model) renderPrompt() string {
	prompt := promptStyle.Render("gnuplot>") + busyIndicator(m.busy)

	before := string(m.input[:m.cursor])
	under := " "
	after := ""
	if m.cursor < len(m.input) {
		under = string(m.input[m.cursor])
		after = string(m.input[m.cursor+1:])
	}

	return prompt + baseStyle.Render(before) + cursorStyle.Render(under) + baseStyle.Render(after)
}

func (m Model) renderFooter() string {
	if m.recorder == nil {
		return footerStyle.Width(m.width).Render(
			dimStyle.Render("ctrl+d exit  ctrl+l clear"))
	}

	s := m.recorder.Snapshot()
	segments := []string{
		renderKeyValue("cmds", fmt.Sprintf("%d", s.Commands)),
		renderKeyValue("errs", errorRateStyle(s.ErrorRate()).Render(
			fmt.Sprintf("%d (%s)", s.Errors+s.Timeouts, formatPercent(s.ErrorRate())))),
	}
	if s.Commands > 0 {
		segments = append(segments,
			renderKeyValue("p50", formatMs(s.LatencyP50)),
			renderKeyValue("p95", formatMs(s.LatencyP95)),
		)
	}
	if s.UnsyncLines > 0 {
		segments = append(segments,
			renderKeyValue("unsync", noticeStyle.Render(fmt.Sprintf("%d", s.UnsyncLines))))
	}
	segments = append(segments, dimStyle.Render("ctrl+d exit"))

	return footerStyle.Width(m.width).Render(strings.Join(segments, "   "))
}

// truncate cuts a line to the terminal width, marking the cut.
func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// visibleWidth approximates the printed width of a styled string by
// counting runes outside ANSI escape sequences.
func visibleWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			width++
		}
	}
	return width
}
