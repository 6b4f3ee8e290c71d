// Package version reports the build version set at link time.
package version

import "runtime/debug"

// Version is overridden with -ldflags "-X github.com/neox5/vitalsync/internal/version.Version=v1.2.3".
var Version = ""

// String returns the linked version, the module version from build info, or "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
