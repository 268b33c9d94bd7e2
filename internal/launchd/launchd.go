package launchd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrLaunchctlMissing is returned when the launchctl binary is not on PATH.
var ErrLaunchctlMissing = errors.New("launchctl not found in PATH")

// launchctlBinary is the service manager command driven by the real manager.
const launchctlBinary = "launchctl"

// Job is one row of `launchctl list`.
type Job struct {
	// PID is the process id of the job, or 0 when the job is loaded but
	// not currently running.
	PID int
	// LastExitStatus is the job's last recorded exit status.
	LastExitStatus int
	// Label is the launchd label identifying the job.
	Label string
}

// Manager is the surface the supervisor needs from the OS service manager.
type Manager interface {
	// Register submits a service manifest. Already-loaded answers are not errors.
	Register(ctx context.Context, manifestPath string) error
	// Deregister removes a service manifest. Not-loaded answers are not errors.
	Deregister(ctx context.Context, manifestPath string) error
	// List returns the currently known jobs.
	List(ctx context.Context) ([]Job, error)
}

// launchctlManager shells out to the real launchctl binary.
type launchctlManager struct{}

// NewManager returns a Manager backed by launchctl, verifying the binary
// exists first.
//
//nolint:ireturn // Callers program against the Manager interface.
func NewManager() (Manager, error) {
	if _, err := exec.LookPath(launchctlBinary); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchctlMissing, err)
	}

	return &launchctlManager{}, nil
}

// Register loads the manifest. Output indicating the job is already loaded
// is suppressed so repeated starts stay idempotent.
func (m *launchctlManager) Register(ctx context.Context, manifestPath string) error {
	output, err := exec.CommandContext(ctx, launchctlBinary, "load", manifestPath).CombinedOutput()
	if err != nil && !isAlreadyInState(string(output)) {
		return fmt.Errorf("launchctl load %s: %s: %w", manifestPath, strings.TrimSpace(string(output)), err)
	}

	return nil
}

// Deregister unloads the manifest. Output indicating the job was never
// loaded is suppressed.
func (m *launchctlManager) Deregister(ctx context.Context, manifestPath string) error {
	output, err := exec.CommandContext(ctx, launchctlBinary, "unload", manifestPath).CombinedOutput()
	if err != nil && !isAlreadyInState(string(output)) {
		return fmt.Errorf("launchctl unload %s: %s: %w", manifestPath, strings.TrimSpace(string(output)), err)
	}

	return nil
}

// List runs `launchctl list` and parses its tabular output.
func (m *launchctlManager) List(ctx context.Context) ([]Job, error) {
	output, err := exec.CommandContext(ctx, launchctlBinary, "list").Output()
	if err != nil {
		return nil, fmt.Errorf("launchctl list: %w", err)
	}

	return parseList(string(output)), nil
}

// isAlreadyInState recognizes launchctl's answers for load/unload requests
// that are already satisfied. These vary across macOS releases, hence the
// substring set.
func isAlreadyInState(output string) bool {
	for _, marker := range []string{
		"already loaded",
		"Operation already in progress",
		"not loaded",
		"Could not find specified service",
		"No such file or directory", // unload of an already-removed manifest
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}

	return false
}

// parseList turns `launchctl list` output into jobs. The format is three
// tab-separated columns (PID, Status, Label) under a header line; a dash in
// the PID column means the job is loaded but not running.
func parseList(output string) []Job {
	lines := strings.Split(output, "\n")
	jobs := make([]Job, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "PID") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		job := Job{Label: fields[2]}

		if pid, err := strconv.Atoi(fields[0]); err == nil {
			job.PID = pid
		}

		if status, err := strconv.Atoi(fields[1]); err == nil {
			job.LastExitStatus = status
		}

		jobs = append(jobs, job)
	}

	return jobs
}
