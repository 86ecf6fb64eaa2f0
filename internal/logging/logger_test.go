package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},        // Default
		{"invalid", slog.LevelInfo}, // Default for unknown
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := parseLevel(tc.input)
			if result != tc.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON", "", "invalid"} {
		t.Run(format, func(t *testing.T) {
			if logger := NewLogger(format, "info", false); logger == nil {
				t.Error("NewLogger returned nil")
			}
		})
	}
}

func TestNewLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLoggerWithWriter(&buf, "json", "info")
	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "{") || !strings.Contains(output, `"key"`) {
		t.Errorf("Expected JSON format, got: %s", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected message in output, got: %s", output)
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "warn")

	logger.Info("info msg")
	logger.Warn("warn msg")

	output := buf.String()
	if strings.Contains(output, "info msg") {
		t.Error("Warn level should not log info messages")
	}
	if !strings.Contains(output, "warn msg") {
		t.Error("Warn level should log warn messages")
	}
}

func TestSetDefault(t *testing.T) {
	originalDefault := slog.Default()
	defer slog.SetDefault(originalDefault)

	var buf bytes.Buffer
	SetDefault(NewLoggerWithWriter(&buf, "text", "info"))

	slog.Info("from default logger")
	if !strings.Contains(buf.String(), "from default logger") {
		t.Error("SetDefault did not set the default logger")
	}
}

// =============================================================================
// OutputHandler
// =============================================================================

func newTestHandler(verbose bool) (*OutputHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "debug")
	return NewOutputHandler(logger, verbose), &buf
}

func TestOutputHandler_HandleLine(t *testing.T) {
	h, _ := newTestHandler(true)

	h.HandleLine("stray line")

	lines := h.RecentLines(1)
	if len(lines) != 1 || lines[0] != "stray line" {
		t.Errorf("RecentLines = %v, want [stray line]", lines)
	}
}

func TestOutputHandler_SplitsMultilineText(t *testing.T) {
	h, _ := newTestHandler(true)

	h.HandleLine("first\nsecond\nthird")

	lines := h.RecentLines(3)
	if len(lines) != 3 || lines[0] != "first" || lines[2] != "third" {
		t.Errorf("RecentLines = %v, want the three split lines", lines)
	}
}

func TestOutputHandler_Truncation(t *testing.T) {
	h, _ := newTestHandler(true)

	h.HandleLine(strings.Repeat("x", MaxLineLength+100))

	lines := h.RecentLines(1)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "...(truncated)") {
		t.Error("Long line should end with '...(truncated)'")
	}
}

func TestOutputHandler_CircularBuffer(t *testing.T) {
	h, _ := newTestHandler(false)

	for i := 0; i < MaxBufferedLines+50; i++ {
		h.HandleLine(strings.Repeat("x", i+1))
	}

	lines := h.RecentLines(MaxBufferedLines + 10)
	if len(lines) > MaxBufferedLines {
		t.Errorf("Got %d lines, max should be %d", len(lines), MaxBufferedLines)
	}
}

func TestOutputHandler_RecentLinesOrder(t *testing.T) {
	h, _ := newTestHandler(false)

	for _, l := range []string{"a", "b", "c", "d", "e"} {
		h.HandleLine(l)
	}

	lines := h.RecentLines(3)
	if len(lines) != 3 || lines[0] != "c" || lines[1] != "d" || lines[2] != "e" {
		t.Errorf("RecentLines = %v, want [c d e]", lines)
	}
}

func TestOutputHandler_ClassifyLine(t *testing.T) {
	h, _ := newTestHandler(true)

	testCases := []struct {
		line     string
		expected slog.Level
	}{
		{`         line 0: invalid command`, slog.LevelWarn},
		{`         line 12: undefined variable: foo`, slog.LevelWarn},
		{`warning: Cannot contact display`, slog.LevelWarn},
		{`cannot open file "missing.dat"`, slog.LevelWarn},
		{"unknown or ambiguous terminal type", slog.LevelWarn},
		{"terminal type is qt 0", slog.LevelDebug},
		{"some random output", slog.LevelDebug},
	}

	for _, tc := range testCases {
		if level := h.classifyLine(tc.line); level != tc.expected {
			t.Errorf("classifyLine(%q) = %v, want %v", tc.line, level, tc.expected)
		}
	}
}

func TestOutputHandler_VerboseLogging(t *testing.T) {
	t.Run("verbose logs everything", func(t *testing.T) {
		h, buf := newTestHandler(true)
		h.HandleLine("plain output")
		if !strings.Contains(buf.String(), "plain output") {
			t.Error("Verbose mode should log plain lines")
		}
	})

	t.Run("non-verbose drops plain lines", func(t *testing.T) {
		h, buf := newTestHandler(false)
		h.HandleLine("plain output")
		if strings.Contains(buf.String(), "plain output") {
			t.Error("Non-verbose mode should not log plain lines")
		}
	})

	t.Run("non-verbose still logs problems", func(t *testing.T) {
		h, buf := newTestHandler(false)
		h.HandleLine("warning: something odd")
		if !strings.Contains(buf.String(), "something odd") {
			t.Error("Non-verbose mode should still log warnings")
		}
	})
}

func TestOutputHandler_CountErrors(t *testing.T) {
	h, _ := newTestHandler(false)

	h.HandleLine("         line 0: invalid command")
	h.HandleLine("         line 3: invalid command")
	h.HandleLine(`cannot open file "missing.dat"`)
	h.HandleLine("ordinary output")

	counts := h.CountErrors()
	if counts["invalid command"] != 2 {
		t.Errorf("invalid command count = %d, want 2", counts["invalid command"])
	}
	if counts["cannot open"] != 1 {
		t.Errorf("cannot open count = %d, want 1", counts["cannot open"])
	}
}

func TestOutputHandler_HandleReader(t *testing.T) {
	h, _ := newTestHandler(true)

	h.HandleReader(strings.NewReader("line1\nline2\nline3\n"))

	if lines := h.RecentLines(3); len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
}
