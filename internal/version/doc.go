// Package version exposes build metadata for the steward binaries.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Helper functions Short and Full render the version string for CLI output and logs,
// and Short is also what the status command compares against published release tags.
package version
