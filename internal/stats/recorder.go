// Package stats tracks per-session command statistics: counts, error
// classification and latency percentiles.
package stats

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/drakk3/gnuplotting/internal/gnuplot"
)

// Snapshot is a point-in-time view of a recorder. Values are computed
// at Snapshot() time; the returned struct is safe to use after the
// call returns.
type Snapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Command totals
	Commands    int64
	Errors      int64 // gnuplot error reports
	Timeouts    int64 // commands that never synchronized
	UnsyncLines int64 // output lines observed outside a token window

	// Rate since the recorder started, commands per second.
	CommandRate float64

	// Latency distribution over successful and failed commands alike.
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
	LatencyP50 time.Duration
	LatencyP95 time.Duration
	LatencyP99 time.Duration
}

// ErrorRate returns errors (including timeouts) per command, 0 with no
// commands.
func (s Snapshot) ErrorRate() float64 {
	if s.Commands == 0 {
		return 0
	}
	return float64(s.Errors+s.Timeouts) / float64(s.Commands)
}

// Recorder accumulates command observations. It plugs into the driver
// through its OnCommand and OnUnsync callbacks.
//
// Thread-safe: all methods can be called concurrently.
type Recorder struct {
	commands    atomic.Int64
	errs        atomic.Int64
	timeouts    atomic.Int64
	unsyncLines atomic.Int64

	// TDigest is not thread-safe; mu also guards the plain aggregates
	// and the start time.
	mu         sync.Mutex
	startTime  time.Time
	digest     *tdigest.TDigest
	latencySum int64 // nanoseconds
	latencyMin int64 // nanoseconds (-1 = unset)
	latencyMax int64 // nanoseconds
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		startTime:  time.Now(),
		digest:     tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
		latencyMin: -1,
	}
}

// Record observes one completed command. err classifies the outcome:
// nil is success, a *gnuplot.TimeoutError counts as a timeout,
// anything else as an error. The latency feeds the distribution either
// way.
func (r *Recorder) Record(elapsed time.Duration, err error) {
	r.commands.Add(1)

	var terr *gnuplot.TimeoutError
	switch {
	case err == nil:
	case errors.As(err, &terr):
		r.timeouts.Add(1)
	default:
		r.errs.Add(1)
	}

	ns := elapsed.Nanoseconds()
	r.mu.Lock()
	r.digest.Add(float64(ns), 1)
	r.latencySum += ns
	if r.latencyMin < 0 || ns < r.latencyMin {
		r.latencyMin = ns
	}
	if ns > r.latencyMax {
		r.latencyMax = ns
	}
	r.mu.Unlock()
}

// RecordUnsync observes output that arrived outside any token window.
func (r *Recorder) RecordUnsync() {
	r.unsyncLines.Add(1)
}

// Snapshot computes the current statistics.
func (r *Recorder) Snapshot() Snapshot {
	now := time.Now()
	s := Snapshot{
		Timestamp:   now,
		Commands:    r.commands.Load(),
		Errors:      r.errs.Load(),
		Timeouts:    r.timeouts.Load(),
		UnsyncLines: r.unsyncLines.Load(),
	}

	r.mu.Lock()
	s.Uptime = now.Sub(r.startTime)
	if elapsed := s.Uptime.Seconds(); elapsed > 0 {
		s.CommandRate = float64(s.Commands) / elapsed
	}
	if r.latencyMin >= 0 {
		s.MinLatency = time.Duration(r.latencyMin)
		s.MaxLatency = time.Duration(r.latencyMax)
		if s.Commands > 0 {
			s.AvgLatency = time.Duration(r.latencySum / s.Commands)
		}
		s.LatencyP50 = time.Duration(r.digest.Quantile(0.50))
		s.LatencyP95 = time.Duration(r.digest.Quantile(0.95))
		s.LatencyP99 = time.Duration(r.digest.Quantile(0.99))
	}
	r.mu.Unlock()

	return s
}

// StartTime returns when the recorder was created or last reset.
func (r *Recorder) StartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime
}

// Reset clears all counters and the latency distribution.
func (r *Recorder) Reset() {
	r.commands.Store(0)
	r.errs.Store(0)
	r.timeouts.Store(0)
	r.unsyncLines.Store(0)

	r.mu.Lock()
	r.digest = tdigest.NewWithCompression(100)
	r.latencySum = 0
	r.latencyMin = -1
	r.latencyMax = 0
	r.startTime = time.Now()
	r.mu.Unlock()
}
