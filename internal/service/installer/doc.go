// Package installer downloads and installs release binaries for a service.
//
// It resolves the newest published artifact matching the catalog's platform
// filter, unpacks it into an isolated temporary directory, wipes and
// repopulates the service's install directory with executable binaries,
// clears macOS quarantine metadata best-effort, registers the install
// directory on PATH, and writes an install receipt.
//
// A failed install may leave the install directory wiped but not
// repopulated; rerunning the install is the recovery path.
package installer
