// Package profile appends PATH export lines to a shell profile, exactly
// once per line.
//
// The writer takes an explicit target path and reports whether a write
// occurred, so idempotence is testable against a scratch file instead of
// the operator's real home directory.
package profile
