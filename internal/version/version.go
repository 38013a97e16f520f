// Package version reports the refiner build, stamped at link time with
// -ldflags "-X github.com/opentransittools/pelias-refine/internal/version.Version=...".
package version

import "fmt"

//nolint:revive // link-time variables
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build for banners and the CLI.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
