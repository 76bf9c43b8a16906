// Package version holds build metadata set with -ldflags -X.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Full is the banner printed by -version and logged at startup.
func Full(program string) string {
	return fmt.Sprintf("%s %s (%s) built on %s", program, Version, Commit, Date)
}
