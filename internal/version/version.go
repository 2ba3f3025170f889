// Package version exposes build metadata injected via ldflags.
package version

import "fmt"

// Build information (set via ldflags during build).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("debugd %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
