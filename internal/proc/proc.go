package proc

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/process"
)

// Table answers process liveness questions and delivers signals. The real
// implementation scans the OS process table; supervisor tests use a fake.
type Table interface {
	// FindPID returns the pid of the first process whose executable name
	// matches exactly, skipping the current process. Zero means no match.
	FindPID(name string) (int, error)
	// Signal delivers a signal to the process with the given pid.
	Signal(pid int, sig syscall.Signal) error
}

// SystemTable is the real process table.
type SystemTable struct{}

// NewSystemTable returns a Table backed by the OS process table.
func NewSystemTable() *SystemTable {
	return &SystemTable{}
}

// FindPID scans the process table for an exact executable-name match.
func (t *SystemTable) FindPID(name string) (int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return 0, err
	}

	thisProcessID := os.Getpid()

	for _, candidate := range processList {
		if candidate.Pid() == thisProcessID {
			continue
		}

		if candidate.Executable() != name {
			continue
		}

		return candidate.Pid(), nil
	}

	return 0, nil
}

// Signal delivers sig to the process with the given pid.
func (t *SystemTable) Signal(pid int, sig syscall.Signal) error {
	runningProcess, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return runningProcess.Signal(sig)
}

// Detail is an optional enrichment of a running process for status output.
type Detail struct {
	// PID is the observed process id.
	PID int
	// StartedAt is the process start time.
	StartedAt time.Time
	// Uptime is the time elapsed since StartedAt.
	Uptime time.Duration
	// RSSBytes is the resident set size.
	RSSBytes uint64
}

// Snapshot collects start time, uptime and memory for a running process.
// Callers treat failures as "no detail available" rather than errors.
func Snapshot(ctx context.Context, pid int) (*Detail, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec // PIDs fit in int32 on supported platforms.
	if err != nil {
		return nil, err
	}

	detail := &Detail{PID: pid}

	if createTime, err := p.CreateTimeWithContext(ctx); err == nil {
		detail.StartedAt = time.UnixMilli(createTime)
		detail.Uptime = time.Since(detail.StartedAt).Truncate(time.Second)
	}

	if memory, err := p.MemoryInfoWithContext(ctx); err == nil && memory != nil {
		detail.RSSBytes = memory.RSS
	}

	return detail, nil
}
