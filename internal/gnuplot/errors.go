package gnuplot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrBadArgument is returned for invalid timeouts, sync modes and event
// lists, before any I/O takes place.
var ErrBadArgument = errors.New("gnuplot: bad argument")

// Error is an error reported by the gnuplot process itself: the output
// between the synchronization tokens matched the error pattern.
type Error struct {
	// Cause is the command gnuplot quoted as failing, if present.
	Cause string

	// Line is the line number gnuplot reported, -1 if absent.
	Line int

	// Msg is the error message.
	Msg string
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Line >= 0 {
		s += fmt.Sprintf(", line %d", e.Line)
	}
	if e.Cause != "" {
		s += "\n\tGiven: " + e.Cause
	}
	return s
}

// TimeoutError is returned when no done token arrived within the
// requested bound. The process may have crashed or be wedged; recovery
// requires a fresh process.
type TimeoutError struct {
	// Cause describes the command that was awaiting a response.
	Cause string

	// Timeout is the elapsed bound.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gnuplot did not respond within %s, "+
		"it may have crashed or been left in a weird state\n\tCause: %s",
		e.Timeout, e.Cause)
}

// errorPatterns match the multi-line error report gnuplot prints: the
// quoted failing command, an optional caret line, then "line N: message".
var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?ms)(?:gnuplot>\s+(?P<cmd>[^\n]+)\s)?(?:\s+\^\n)?\s+line\s+(?P<line>[0-9]+):\s+(?P<msg>[^\n]+)\s+$`),
}

// parseError scans a result buffer for the error pattern. A nil return
// means success, even if the buffer is non-empty.
func parseError(output string) *Error {
	for _, pat := range errorPatterns {
		m := pat.FindStringSubmatch(output)
		if m == nil {
			continue
		}

		e := &Error{Line: -1}
		for i, name := range pat.SubexpNames() {
			switch name {
			case "cmd":
				e.Cause = m[i]
			case "line":
				if n, err := strconv.Atoi(m[i]); err == nil {
					e.Line = n
				}
			case "msg":
				e.Msg = m[i]
			}
		}
		return e
	}
	return nil
}
