// Package metrics provides Prometheus metrics for gnuplot sessions:
// command counts, outcome classification, latency distribution and
// session lifecycle.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drakk3/gnuplotting/internal/gnuplot"
)

// Collector manages all Prometheus metrics for a gnuplot session. It
// plugs into the driver through its OnCommand and OnUnsync callbacks.
type Collector struct {
	startTime time.Time

	info             *prometheus.GaugeVec
	sessionsActive   prometheus.Gauge
	sessionUptime    prometheus.GaugeFunc
	commandsTotal    prometheus.Counter
	commandErrors    *prometheus.CounterVec
	commandSeconds   prometheus.Histogram
	unsyncLinesTotal prometheus.Counter

	mu       sync.Mutex
	infoOnce bool
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	// GnuplotPath is the resolved gnuplot binary path, used as an info
	// label.
	GnuplotPath string
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		startTime: time.Now(),

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gnuplot_info",
				Help: "Information about the gnuplot session (value always 1)",
			},
			[]string{"path", "version"},
		),

		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gnuplot_sessions_active",
				Help: "Currently running gnuplot subprocesses",
			},
		),

		commandsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gnuplot_commands_total",
				Help: "Total synchronized commands sent",
			},
		),

		commandErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gnuplot_command_errors_total",
				Help: "Commands that failed, by failure kind",
			},
			[]string{"kind"}, // "error" | "timeout"
		),

		commandSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "gnuplot_command_seconds",
				Help: "Command round-trip latency distribution",
				Buckets: []float64{
					0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
					0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
				},
			},
		),

		unsyncLinesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gnuplot_unsync_lines_total",
				Help: "Output observed outside any synchronization window",
			},
		),
	}

	c.sessionUptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gnuplot_session_uptime_seconds",
			Help: "Seconds since the session started",
		},
		func() float64 { return time.Since(c.startTime).Seconds() },
	)

	registry.MustRegister(
		c.info,
		c.sessionsActive,
		c.sessionUptime,
		c.commandsTotal,
		c.commandErrors,
		c.commandSeconds,
		c.unsyncLinesTotal,
	)

	c.info.WithLabelValues(cfg.GnuplotPath, "unknown").Set(1)

	return c
}

// SetVersion relabels the info metric once the gnuplot version has
// been queried.
func (c *Collector) SetVersion(path, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.infoOnce {
		c.info.Reset()
		c.infoOnce = true
	}
	c.info.WithLabelValues(path, version).Set(1)
}

// CommandCompleted records one finished command. err classifies the
// outcome the same way the driver reports it: nil, *gnuplot.Error or
// *gnuplot.TimeoutError.
func (c *Collector) CommandCompleted(elapsed time.Duration, err error) {
	c.commandsTotal.Inc()
	c.commandSeconds.Observe(elapsed.Seconds())

	if err == nil {
		return
	}
	var terr *gnuplot.TimeoutError
	if errors.As(err, &terr) {
		c.commandErrors.WithLabelValues("timeout").Inc()
		return
	}
	c.commandErrors.WithLabelValues("error").Inc()
}

// UnsyncLine records output observed outside a token window.
func (c *Collector) UnsyncLine() {
	c.unsyncLinesTotal.Inc()
}

// ProcessStarted records a subprocess start.
func (c *Collector) ProcessStarted() {
	c.sessionsActive.Inc()
}

// ProcessStopped records a subprocess termination.
func (c *Collector) ProcessStopped() {
	c.sessionsActive.Dec()
}
