// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks. scriptPath is empty in
// interactive mode.
func RunAll(gnuplotPath, scriptPath string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}

	binCheck := checkGnuplot(gnuplotPath)
	result.Checks = append(result.Checks, binCheck)
	if !binCheck.Passed {
		result.Passed = false
	}

	// Interactive terminals (qt, x11, wxt) need a display; warning only
	// since dumb and file terminals work without one.
	result.Checks = append(result.Checks, checkDisplay())

	if scriptPath != "" {
		scriptCheck := checkScript(scriptPath)
		result.Checks = append(result.Checks, scriptCheck)
		if !scriptCheck.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkGnuplot verifies the gnuplot binary is available and working.
func checkGnuplot(path string) Check {
	cmd := exec.Command(path, "--version")
	output, err := cmd.Output()

	if err != nil {
		return Check{
			Name:    "gnuplot",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	return Check{
		Name:    "gnuplot",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (%s)", path, ParseVersion(string(output))),
	}
}

// ParseVersion extracts "5.4 patchlevel 2" style info from gnuplot's
// --version output ("gnuplot 5.4 patchlevel 2").
func ParseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	version := strings.TrimPrefix(line, "gnuplot ")
	if version == "" {
		return "unknown version"
	}
	return "version " + version
}

// checkDisplay reports whether a display is reachable for windowed
// terminals.
func checkDisplay() Check {
	for _, env := range []string{"DISPLAY", "WAYLAND_DISPLAY"} {
		if os.Getenv(env) != "" {
			return Check{
				Name:    "display",
				Passed:  true,
				Message: fmt.Sprintf("%s=%s", env, os.Getenv(env)),
			}
		}
	}
	return Check{
		Name:    "display",
		Passed:  true,
		Warning: true,
		Message: "no display (windowed terminals like qt/x11 will fail)",
	}
}

// checkScript verifies a script file exists and is a regular file.
func checkScript(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "script",
			Passed:  false,
			Message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    "script",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}
	return Check{
		Name:    "script",
		Passed:  true,
		Message: fmt.Sprintf("%s (%d bytes)", path, info.Size()),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "gnuplot":
		return "install gnuplot (apt install gnuplot / brew install gnuplot) or pass -gnuplot"
	case "script":
		return "check the script path"
	default:
		return "see documentation"
	}
}
