//go:build !windows

package gnuplot

const (
	// DefaultBinary is the gnuplot executable name on this platform.
	DefaultBinary = "gnuplot"

	// lineSep terminates lines written to and read from the process.
	lineSep = "\n"
)
