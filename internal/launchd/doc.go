// Package launchd wraps the macOS launchd service manager behind a small
// interface so supervision logic can be tested without shelling out.
//
// The real implementation drives the launchctl binary (load/unload/list)
// and tolerates "already in the requested state" answers, which keeps
// register and deregister idempotent from the caller's point of view.
// A recording mock substitutes for launchctl in tests.
package launchd
