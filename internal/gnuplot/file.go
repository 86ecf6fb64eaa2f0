package gnuplot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// File is the write-only backend: commands are transcribed to a script
// instead of a running process. There is no synchronization, no timeout
// handling and no error detection; Send always succeeds with an empty
// result.
type File struct {
	out     *bufio.Writer
	closer  io.Closer
	mu      sync.Mutex
	chkOnce sync.Once
	chkErr  error
}

// NewFile wraps an open writer, typically a script file.
func NewFile(w io.WriteCloser) *File {
	return &File{
		out:    bufio.NewWriter(w),
		closer: w,
	}
}

// CreateFile creates (or truncates) a script file at path.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("gnuplot: create script %q: %w", path, err)
	}
	return NewFile(f), nil
}

// Interactive reports that this backend cannot return command output.
func (f *File) Interactive() bool {
	return false
}

// Send writes the lines to the backing writer. timeout and sync are
// accepted for interface compatibility and ignored.
func (f *File) Send(lines []string, _ time.Duration, _ SyncPair) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, line := range lines {
		f.out.WriteString(line)
		f.out.WriteString(lineSep)
	}
	if err := f.out.Flush(); err != nil {
		return "", fmt.Errorf("gnuplot: write script: %w", err)
	}
	return "", nil
}

// Cmd writes a single command with optional inline data lines.
func (f *File) Cmd(command string, inlineData ...string) (string, error) {
	return f.Send(append([]string{command}, inlineData...), NoWait, DefaultSync)
}

// CmdTimeout is Cmd; the timeout is ignored on a file backend.
func (f *File) CmdTimeout(_ time.Duration, command string, inlineData ...string) (string, error) {
	return f.Cmd(command, inlineData...)
}

// Terminate flushes and closes the backing writer. Idempotent.
func (f *File) Terminate() error {
	f.chkOnce.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.out.Flush()
		f.chkErr = f.closer.Close()
	})
	return f.chkErr
}
