package logging

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single log line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the maximum number of lines kept for the exit summary.
	MaxBufferedLines = 100
)

// OutputHandler processes gnuplot output that arrived outside any
// synchronization window. It buffers recent lines for the exit summary
// and logs them at a level matching their content.
type OutputHandler struct {
	logger  *slog.Logger
	verbose bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewOutputHandler creates a handler writing through logger. With
// verbose false, only lines that look like problems are logged.
func NewOutputHandler(logger *slog.Logger, verbose bool) *OutputHandler {
	return &OutputHandler{
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleReader reads from an io.Reader and processes each line.
// This should be run in a goroutine.
func (h *OutputHandler) HandleReader(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxLineLength)
	scanner.Buffer(buf, MaxLineLength)

	for scanner.Scan() {
		h.HandleLine(scanner.Text())
	}
}

// HandleLine processes a single line of output. Multi-line text is
// split so the ring buffer holds individual lines.
func (h *OutputHandler) HandleLine(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		h.handleOne(line)
	}
}

func (h *OutputHandler) handleOne(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	h.logLine(line)
}

// logLine logs the line at a level based on its content.
func (h *OutputHandler) logLine(line string) {
	level := h.classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(nil, level, "gnuplot_output", "line", line)
}

// classifyLine determines the log level for a line based on content.
func (h *OutputHandler) classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	// gnuplot error report fragments
	if strings.Contains(lower, "line ") && strings.Contains(lower, ":") &&
		(strings.Contains(lower, "invalid") ||
			strings.Contains(lower, "undefined") ||
			strings.Contains(lower, "error")) {
		return slog.LevelWarn
	}

	if strings.Contains(lower, "warning:") ||
		strings.Contains(lower, "cannot open") ||
		strings.Contains(lower, "unknown or ambiguous terminal") {
		return slog.LevelWarn
	}

	return slog.LevelDebug
}

// RecentLines returns the most recent lines from the buffer.
func (h *OutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}
	return lines
}

// ErrorPatterns are common problem markers extracted for the exit summary.
var ErrorPatterns = []string{
	"invalid command",
	"undefined variable",
	"undefined function",
	"cannot open",
	"unknown or ambiguous terminal",
	"warning:",
}

// CountErrors counts occurrences of error patterns in the buffer.
func (h *OutputHandler) CountErrors() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range h.buffer {
		if line == "" {
			continue
		}
		for _, pattern := range ErrorPatterns {
			if strings.Contains(line, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
