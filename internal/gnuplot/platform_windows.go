//go:build windows

package gnuplot

const (
	// DefaultBinary is the pipe-capable gnuplot executable on Windows.
	DefaultBinary = "wgnuplot_pipes.exe"

	// lineSep terminates lines written to and read from the process.
	lineSep = "\r\n"
)
