package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds session details for the exit summary.
type SummaryConfig struct {
	// GnuplotPath is the resolved gnuplot binary, empty for the file
	// backend.
	GnuplotPath string

	// Version is the gnuplot version string, if it was queried.
	Version string

	// Duration is the total session duration.
	Duration time.Duration

	// MetricsAddr is the Prometheus metrics endpoint address, empty
	// when metrics were disabled.
	MetricsAddr string
}

// FormatExitSummary formats a snapshot for display at program exit.
func FormatExitSummary(s Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                           gnuplot-shell Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	// Session info
	fmt.Fprintf(&b, "Session Duration:       %s\n", FormatDuration(cfg.Duration))
	if cfg.GnuplotPath != "" {
		fmt.Fprintf(&b, "Gnuplot Binary:         %s\n", cfg.GnuplotPath)
	}
	if cfg.Version != "" {
		fmt.Fprintf(&b, "Gnuplot Version:        %s\n", cfg.Version)
	}
	b.WriteString("\n")

	// Command statistics
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                              Command Statistics\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

	fmt.Fprintf(&b, "  Commands:             %s  (%s)\n",
		FormatNumber(s.Commands), FormatRate(s.CommandRate))
	fmt.Fprintf(&b, "  Errors:               %d\n", s.Errors)
	fmt.Fprintf(&b, "  Timeouts:             %d\n", s.Timeouts)
	if s.UnsyncLines > 0 {
		fmt.Fprintf(&b, "  Unsync Lines:         %d\n", s.UnsyncLines)
	}
	fmt.Fprintf(&b, "  Error Rate:           %.4f%%\n\n", s.ErrorRate()*100)

	// Latency distribution
	if s.Commands > 0 && s.MaxLatency > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                              Command Latency\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  Min / Avg / Max:      %s / %s / %s\n",
			FormatMs(s.MinLatency), FormatMs(s.AvgLatency), FormatMs(s.MaxLatency))
		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatMs(s.LatencyP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatMs(s.LatencyP95))
		fmt.Fprintf(&b, "  P99:                  %s\n", FormatMs(s.LatencyP99))
		b.WriteString("\n")
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}

// FormatRate formats a rate with appropriate precision.
func FormatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}
