// Package version exposes build-time version information, set via -ldflags.
package version

var (
	// Version is the application version, a git tag or "dev"
	Version = "dev"
	// Commit is the git commit hash the binary was built from
	Commit = "dev"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
