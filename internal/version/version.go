package version

import "fmt"

// Build metadata, injected via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the build identity on a single line.
func String() string {
	return fmt.Sprintf("stagescanner %s (commit %s, built %s)", Version, Commit, BuildDate)
}
