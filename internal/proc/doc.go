// Package proc observes and signals processes of managed services.
//
// Liveness is a process-table scan by executable name (go-ps), never a
// cached state: every question about a service's process is answered by
// looking at the table at that moment. Status output is enriched with
// start time and memory detail through gopsutil, best-effort.
package proc
