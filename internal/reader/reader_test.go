package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drakk3/gnuplotting/internal/future"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startWorker wires a worker to the write end of an in-memory pipe, the
// way the driver wires it to the process's combined output.
func startWorker(t *testing.T) (*Worker, io.WriteCloser) {
	t.Helper()

	pr, pw := io.Pipe()
	w := NewWorker(pr, "\n", testLogger())
	w.Start()
	t.Cleanup(func() {
		pw.Close()
		w.Stop()
	})
	return w, pw
}

// =============================================================================
// Request: token splitting
// =============================================================================

func TestRequestCapturesTextBetweenTokens(t *testing.T) {
	w, pw := startWorker(t)

	go fmt.Fprint(pw, "<b>\nhello\nworld\n<d>\n")

	out, err := w.Request("<b>", "<d>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out.Text != "hello\nworld" {
		t.Errorf("Text = %q, want %q", out.Text, "hello\nworld")
	}
	if out.Unsync != "" {
		t.Errorf("Unsync = %q, want empty", out.Unsync)
	}
}

func TestRequestEmptyResult(t *testing.T) {
	w, pw := startWorker(t)

	go fmt.Fprint(pw, "<b>\n<d>\n")

	out, err := w.Request("<b>", "<d>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out.Text != "" {
		t.Errorf("Text = %q, want empty", out.Text)
	}
}

func TestRequestReportsUnsyncOutput(t *testing.T) {
	w, pw := startWorker(t)

	go fmt.Fprint(pw, "stray output\n<b>\nresult\n<d>\n")

	out, err := w.Request("<b>", "<d>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out.Unsync != "stray output" {
		t.Errorf("Unsync = %q, want %q", out.Unsync, "stray output")
	}
	if out.Text != "result" {
		t.Errorf("Text = %q, want %q", out.Text, "result")
	}
}

func TestRequestEmptyBeginTokenSkipsSplit(t *testing.T) {
	// Event waits pass an empty begin token: anything before the done
	// token is the body.
	w, pw := startWorker(t)

	go fmt.Fprint(pw, "noise\n<evt>\n")

	out, err := w.Request("", "<evt>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out.Text != "noise" {
		t.Errorf("Text = %q, want %q", out.Text, "noise")
	}
	if out.Unsync != "" {
		t.Errorf("Unsync = %q, want empty", out.Unsync)
	}
}

func TestRequestInvalidUTF8Replaced(t *testing.T) {
	w, pw := startWorker(t)

	go func() {
		pw.Write([]byte("<b>\nval\xff\xfeue\n<d>\n"))
	}()

	out, err := w.Request("<b>", "<d>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !strings.Contains(out.Text, "val") || !strings.Contains(out.Text, "ue") {
		t.Errorf("Text = %q, want lenient decode around invalid bytes", out.Text)
	}
	if strings.ContainsRune(out.Text, 0xff) {
		t.Errorf("Text %q still contains raw invalid byte", out.Text)
	}
}

// =============================================================================
// Request: timeout and EOF
// =============================================================================

func TestRequestTimeout(t *testing.T) {
	w, _ := startWorker(t)

	start := time.Now()
	_, err := w.Request("<b>", "<d>", 50*time.Millisecond)
	if !errors.Is(err, future.ErrTimeout) {
		t.Fatalf("Request = %v, want future.ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond || elapsed > time.Second {
		t.Errorf("Request returned after %v, want ~50ms", elapsed)
	}
}

func TestRequestEOFReturnsPartialBuffer(t *testing.T) {
	w, pw := startWorker(t)

	go func() {
		fmt.Fprint(pw, "<b>\npartial")
		pw.Close()
	}()

	out, err := w.Request("<b>", "<d>", time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out.Text != "partial" {
		t.Errorf("Text = %q, want %q", out.Text, "partial")
	}
}

// =============================================================================
// FIFO ordering and concurrency
// =============================================================================

func TestConcurrentRequestsGetOwnResults(t *testing.T) {
	w, pw := startWorker(t)

	const n = 8

	// The worker services requests in submission order, so responses are
	// written in the same order the requests are enqueued.
	responses := make(chan int, n)
	go func() {
		for i := range responses {
			fmt.Fprintf(pw, "<b%d>\nresult-%d\n<d%d>\n", i, i, i)
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Stagger submissions so the enqueue order is deterministic.
			time.Sleep(time.Duration(i*10) * time.Millisecond)
			responses <- i
			out, err := w.Request(fmt.Sprintf("<b%d>", i), fmt.Sprintf("<d%d>", i), 5*time.Second)
			if err != nil {
				errs <- fmt.Errorf("request %d: %w", i, err)
				return
			}
			if want := fmt.Sprintf("result-%d", i); out.Text != want {
				errs <- fmt.Errorf("request %d got %q, want %q", i, out.Text, want)
			}
		}(i)
	}
	wg.Wait()
	close(responses)
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// =============================================================================
// Stop
// =============================================================================

func TestStopAbortsInFlightRequest(t *testing.T) {
	pr, pw := io.Pipe()
	w := NewWorker(pr, "\n", testLogger())
	w.Start()

	done := make(chan error, 1)
	go func() {
		_, err := w.Request("<b>", "<d>", 5*time.Second)
		done <- err
	}()

	// Let the request go in flight, then tear down the way the driver
	// does: close the stream, then stop the worker.
	time.Sleep(20 * time.Millisecond)
	pw.Close()
	w.Stop()

	select {
	case err := <-done:
		// The aborted read resolves with whatever was captured (nothing).
		if err != nil && !errors.Is(err, future.ErrTimeout) {
			t.Errorf("Request after Stop = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Request did not return after Stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	pr, pw := io.Pipe()
	w := NewWorker(pr, "\n", testLogger())
	w.Start()

	pw.Close()
	w.Stop()
	w.Stop()
}

func TestRequestAfterStop(t *testing.T) {
	pr, pw := io.Pipe()
	w := NewWorker(pr, "\n", testLogger())
	w.Start()
	pw.Close()
	w.Stop()

	_, err := w.Request("<b>", "<d>", time.Second)
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Request after Stop = %v, want ErrStopped", err)
	}
}
