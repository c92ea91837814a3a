// Package version holds the roku-cli build metadata injected through -ldflags:
//
//	-X github.com/oshokin/roku-cli/internal/version.Version=v0.3.0
//	-X github.com/oshokin/roku-cli/internal/version.Commit=$(git rev-parse --short HEAD)
//	-X github.com/oshokin/roku-cli/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
package version
