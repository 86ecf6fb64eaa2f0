// Package reader implements the single background worker that owns the
// read end of the gnuplot process's combined output stream.
//
// gnuplot has no request-id mechanism: commands are delimited on the wire
// by begin/done sentinel tokens printed around each batch. The worker
// funnels all read requests through one FIFO queue so the shared stream
// is only ever read by one request at a time, and captures the bytes
// between a request's tokens as its result.
package reader

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drakk3/gnuplotting/internal/future"
)

// ErrStopped is returned by Request after Stop has been called.
var ErrStopped = errors.New("reader: worker stopped")

// requestQueueSize bounds the FIFO request queue. Requests beyond this
// block the sender until the worker catches up.
const requestQueueSize = 128

// Output is the captured result of one read request.
type Output struct {
	// Unsync is text that appeared before the begin token: leftover
	// output from a prior improperly-terminated command. Recoverable
	// noise, logged by the caller, never part of the result.
	Unsync string

	// Text is the authoritative output between the begin and done
	// tokens, exclusive.
	Text string
}

type request struct {
	fut   *future.Future[Output]
	begin string
	done  string
}

// Worker serializes reads of the process output stream.
//
// State machine per request: Idle -> Reading -> (Done | Aborted) -> Idle.
// Requests are serviced strictly in submission order.
type Worker struct {
	input   *bufio.Reader
	lineSep string
	logger  *slog.Logger

	requests chan *request
	quit     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
	exited   chan struct{}

	mu       sync.Mutex
	inFlight map[*request]struct{}

	bytesRead atomic.Int64
}

// NewWorker creates a worker reading from r. lineSep is the platform
// line separator the process terminates token lines with.
func NewWorker(r io.Reader, lineSep string, logger *slog.Logger) *Worker {
	return &Worker{
		input:    bufio.NewReader(r),
		lineSep:  lineSep,
		logger:   logger,
		requests: make(chan *request, requestQueueSize),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
		inFlight: make(map[*request]struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Request enqueues a read for the given token pair and blocks until the
// output is captured or timeout elapses. An empty begin token skips the
// unsynchronized-output split (used for event waits, which only care
// about seeing the done token).
//
// On timeout the in-flight read is aborted cooperatively and
// future.ErrTimeout is returned; the abort is only observed once the
// process emits another byte or closes its output.
func (w *Worker) Request(begin, done string, timeout time.Duration) (Output, error) {
	if w.stopped.Load() {
		return Output{}, ErrStopped
	}

	req := &request{
		begin: begin,
		done:  done,
	}
	req.fut = future.New(func(abort *future.Abort) (Output, error) {
		return w.consumeUntilDone(abort, begin, done), nil
	})

	select {
	case w.requests <- req:
	case <-w.quit:
		return Output{}, ErrStopped
	}

	out, err := req.fut.WaitDone(timeout)
	if err != nil {
		if errors.Is(err, future.ErrTimeout) {
			req.fut.Abort()
		}
		return Output{}, err
	}
	return out, nil
}

// Stop aborts every queued and in-flight request, unblocks the worker
// loop, and waits for it to exit. Idempotent.
//
// The caller must close the underlying stream (or the process must emit
// output) for a read blocked mid-request to observe its abort; Stop
// waits for that to happen.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		close(w.quit)

		// Abort requests that were queued but never started.
	drain:
		for {
			select {
			case req := <-w.requests:
				req.fut.Abort()
			default:
				break drain
			}
		}

		// Abort the request being read right now, if any. Abort is
		// idempotent and a no-op if it just completed naturally.
		w.mu.Lock()
		for req := range w.inFlight {
			req.fut.Abort()
		}
		w.mu.Unlock()

		<-w.exited
	})
}

// BytesRead returns the total bytes consumed from the stream.
func (w *Worker) BytesRead() int64 {
	return w.bytesRead.Load()
}

func (w *Worker) run() {
	defer close(w.exited)

	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			// A request dequeued in the same instant Stop drained the
			// queue is aborted here instead; its read returns at the
			// first abort check with whatever was captured.
			if w.stopped.Load() {
				req.fut.Abort()
			}

			w.mu.Lock()
			w.inFlight[req] = struct{}{}
			w.mu.Unlock()

			if err := req.fut.Invoke(); err != nil {
				// Each request owns a fresh future, so this is an
				// internal invariant violation, not a caller mistake.
				w.logger.Error("reader_invoke_failed", "error", err)
			}

			w.mu.Lock()
			delete(w.inFlight, req)
			w.mu.Unlock()
		}
	}
}

// consumeUntilDone reads the stream byte by byte into an accumulating
// buffer until the buffer ends with the done token line, the abort flag
// is set, or the stream reaches EOF. Byte-sized reads keep the abort
// check frequent enough to matter.
//
// On EOF the partial buffer is treated as the final result rather than
// hanging forever.
func (w *Worker) consumeUntilDone(abort *future.Abort, begin, done string) Output {
	doneMark := []byte(done + w.lineSep)

	var buf []byte
	for !bytes.HasSuffix(buf, doneMark) && !abort.IsSet() {
		b, err := w.input.ReadByte()
		if err != nil {
			w.logger.Debug("reader_stream_closed", "error", err, "buffered", len(buf))
			break
		}
		buf = append(buf, b)
		w.bytesRead.Add(1)
	}

	return w.split(buf, begin, done)
}

// split separates the accumulated buffer into unsynchronized leading
// text and the authoritative result between the tokens.
func (w *Worker) split(buf []byte, begin, done string) Output {
	sep := []byte(w.lineSep)
	doneMark := []byte(done + w.lineSep)

	trim := func(b []byte) string {
		b = bytes.TrimSuffix(b, doneMark)
		b = bytes.TrimSuffix(b, sep)
		return decode(b)
	}

	if begin == "" {
		return Output{Text: trim(buf)}
	}

	beginMark := []byte(begin + w.lineSep)
	idx := bytes.Index(buf, beginMark)
	if idx < 0 {
		return Output{Text: trim(buf)}
	}

	unsync := bytes.TrimSuffix(buf[:idx], sep)
	rest := buf[idx+len(beginMark):]
	return Output{
		Unsync: decode(unsync),
		Text:   trim(rest),
	}
}

// decode converts raw process output to a string, replacing undecodable
// bytes so a partial multi-byte sequence at a buffer boundary cannot
// poison the result.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
