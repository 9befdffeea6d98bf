// Package version exposes the docqa build metadata.
package version

// Stamped at build time via -ldflags "-X github.com/stackmint/docqa/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
