// Package future provides the single-use, cancellable unit of work used
// by the output reader worker.
//
// A Future wraps a task that is run at most once (by the worker goroutine)
// and waited on by the caller that submitted it. Cancellation is
// cooperative: Abort sets a flag, and the task is expected to poll it at
// safe points, typically between reads. Abort never preempts the task.
package future

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyInvoked is returned by Invoke when the task has already run.
	ErrAlreadyInvoked = errors.New("future: already invoked")

	// ErrTimeout is returned by WaitDone when the timeout elapses before
	// the task signals completion.
	ErrTimeout = errors.New("future: timed out")
)

// Forever makes WaitDone block until the task completes.
const Forever time.Duration = -1

// Abort is the cooperative cancellation flag shared between the caller
// and the running task.
type Abort struct {
	flag atomic.Bool
}

// Set requests cancellation. Idempotent.
func (a *Abort) Set() {
	a.flag.Store(true)
}

// IsSet reports whether cancellation has been requested.
func (a *Abort) IsSet() bool {
	return a.flag.Load()
}

// Future is a deferred computation producing a T.
//
// Lifecycle: created per request, invoked by exactly one worker iteration,
// discarded after the submitter retrieves or times out on the result.
type Future[T any] struct {
	task    func(abort *Abort) (T, error)
	abort   Abort
	invoked atomic.Bool
	done    chan struct{}

	// result/err are written once, before done is closed, and only read
	// after done is observed closed.
	result T
	err    error
}

// New creates a Future around task. The task receives the abort flag and
// must poll it at safe points.
func New[T any](task func(abort *Abort) (T, error)) *Future[T] {
	return &Future[T]{
		task: task,
		done: make(chan struct{}),
	}
}

// Invoke runs the task. A second call does not run the task and returns
// ErrAlreadyInvoked: invoking twice is an internal misuse bug, fatal to
// the call but not to the process.
func (f *Future[T]) Invoke() error {
	if !f.invoked.CompareAndSwap(false, true) {
		return ErrAlreadyInvoked
	}
	f.result, f.err = f.task(&f.abort)
	close(f.done)
	return nil
}

// Abort requests cooperative cancellation. Idempotent, and a no-op once
// the task has completed.
func (f *Future[T]) Abort() {
	f.abort.Set()
}

// Aborted reports whether cancellation has been requested.
func (f *Future[T]) Aborted() bool {
	return f.abort.IsSet()
}

// WaitDone blocks until the task completes or timeout elapses.
// Forever (or any negative timeout) waits indefinitely. On timeout it
// returns ErrTimeout; the task may still be running and the result is
// not retrievable afterwards.
func (f *Future[T]) WaitDone(timeout time.Duration) (T, error) {
	if timeout < 0 {
		<-f.done
		return f.result, f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// Done returns a channel closed when the task has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
