// Package supervisor manages the lifecycle of catalog services through the
// OS service manager.
//
// Start registers the service manifest and probes process liveness once
// after a short delay. Stop deregisters and escalates through three bounded
// phases (graceful wait, SIGTERM, SIGKILL), never skipping a phase, and
// reports which phase achieved termination. Status reports registration,
// process detail, installed version, and update availability.
//
// Service state is never cached: every answer comes from the process table
// and the service manager at the moment of asking. Concurrent invocations
// against the same service are not safe against each other; this is a
// single-operator, single-host tool.
package supervisor
