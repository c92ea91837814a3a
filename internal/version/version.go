package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns the release tag.
func Short() string {
	return Version
}

// Full returns the release tag with commit, build time and the Go toolchain.
func Full() string {
	return fmt.Sprintf("roku-cli %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
