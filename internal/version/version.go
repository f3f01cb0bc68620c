package version

import "fmt"

// Version is overridden at build time with -ldflags "-X omnitui/internal/version.Version=...".
var Version = "0.1.0"

// GetVersion returns the current version string
func GetVersion() string {
	return fmt.Sprintf("omnitui %s", Version)
}
