package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/looplab/fsm"

	"github.com/homelab-ops/steward/internal/config"
	"github.com/homelab-ops/steward/internal/launchd"
	"github.com/homelab-ops/steward/internal/logger"
	"github.com/homelab-ops/steward/internal/poll"
	"github.com/homelab-ops/steward/internal/proc"
	"github.com/homelab-ops/steward/internal/release"
)

var (
	// ErrManifestMissing is returned by start when the source-controlled
	// launchd manifest does not exist.
	ErrManifestMissing = errors.New("service manifest not found")

	// ErrShutdownTimeout is returned by stop when the process survives all
	// three escalation phases.
	ErrShutdownTimeout = errors.New("process survived graceful, SIGTERM and SIGKILL phases")

	// errProcessNotRunning is returned by start when the process does not
	// surface in the process table after registration.
	errProcessNotRunning = errors.New("process not found after start")
)

// Escalation bounds. The graceful and SIGTERM phases poll once per second;
// the SIGKILL confirmation wait is short.
const (
	startProbeDelay  = 2 * time.Second
	pollInterval     = time.Second
	gracefulAttempts = 30
	termAttempts     = 10
	killAttempts     = 3
)

// Options are inputs accepted by the start/stop/status entry points.
type Options struct {
	// ConfigPath is the optional path to the service catalog.
	ConfigPath string
	// Service is the catalog name of the service. Status treats an empty
	// name as "every catalog entry".
	Service string
}

// Supervisor drives lifecycle operations against injectable collaborators.
type Supervisor struct {
	cfg      *config.Config
	manager  launchd.Manager
	table    proc.Table
	waiter   *poll.Waiter
	resolver *release.Resolver
}

// New assembles a Supervisor from its collaborators. Tests substitute a
// mock manager, a fake process table and a mock-clock waiter.
func New(cfg *config.Config, manager launchd.Manager, table proc.Table, waiter *poll.Waiter) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		manager:  manager,
		table:    table,
		waiter:   waiter,
		resolver: release.NewResolver(cfg.ReleaseAPI),
	}
}

// RunStart registers and starts one service and is the entry point for the CLI.
func RunStart(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "steward-start")

	s, svc, err := fromOptions(opts, true)
	if err != nil {
		return err
	}

	if err = s.Start(ctx, svc); err != nil {
		logger.ErrorKV(ctx, "Start failed", "service", opts.Service, "error", err)
		return err
	}

	return nil
}

// RunStop stops and unregisters one service and is the entry point for the CLI.
func RunStop(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "steward-stop")

	s, svc, err := fromOptions(opts, true)
	if err != nil {
		return err
	}

	if err = s.Stop(ctx, svc); err != nil {
		logger.ErrorKV(ctx, "Stop failed", "service", opts.Service, "error", err)
		return err
	}

	return nil
}

// fromOptions loads the catalog and assembles a Supervisor on the real
// service manager, process table and clock. Start and stop require a
// service name; status treats an empty name as "every catalog entry".
// An empty name where one is required fails the catalog lookup, so the
// caller never receives a nil service.
func fromOptions(opts *Options, requireService bool) (*Supervisor, *config.Service, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	svc := (*config.Service)(nil)
	if requireService || opts.Service != "" {
		if svc, err = cfg.Lookup(opts.Service); err != nil {
			return nil, nil, err
		}
	}

	manager, err := launchd.NewManager()
	if err != nil {
		return nil, nil, err
	}

	return New(cfg, manager, proc.NewSystemTable(), poll.NewWaiter(nil)), svc, nil
}

// Start verifies the manifest, recreates the control-directory symlink,
// registers the service and probes process presence once after a short
// delay. A service that fails to surface is an error, never a panic.
func (s *Supervisor) Start(ctx context.Context, svc *config.Service) error {
	manifest := s.cfg.ManifestPath(svc)

	if _, err := os.Stat(manifest); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", manifest, ErrManifestMissing)
		}

		return err
	}

	agentPath, err := s.cfg.AgentPath(svc)
	if err != nil {
		return err
	}

	machine := newLifecycle(stateUnregistered)
	if err = transition(ctx, machine, eventStart); err != nil {
		return err
	}

	// Unconditional remove-then-link keeps at most one registered
	// descriptor per label.
	if err = relink(manifest, agentPath); err != nil {
		return err
	}

	if err = s.manager.Register(ctx, agentPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Service registered", "service", svc.Name, "manifest", agentPath)

	if err = s.waiter.Sleep(ctx, startProbeDelay); err != nil {
		return err
	}

	pid, err := s.table.FindPID(svc.Process)
	if err != nil {
		return err
	}

	if pid == 0 {
		return fmt.Errorf("%s: %w", svc.Process, errProcessNotRunning)
	}

	if err = transition(ctx, machine, eventStarted); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Service running", "service", svc.Name, "pid", pid)

	return nil
}

// relink points the control-directory symlink at the manifest.
func relink(manifest, agentPath string) error {
	if err := os.MkdirAll(filepath.Dir(agentPath), 0o755); err != nil {
		return err
	}

	if err := os.Remove(agentPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(manifest, agentPath)
}

// Stop deregisters the service and escalates until the process is gone:
// a graceful wait, then SIGTERM, then SIGKILL, each phase bounded and
// never skipped. Stopping a service that was never started is a no-op.
func (s *Supervisor) Stop(ctx context.Context, svc *config.Service) error {
	agentPath, err := s.cfg.AgentPath(svc)
	if err != nil {
		return err
	}

	if _, err = os.Lstat(agentPath); err != nil {
		if os.IsNotExist(err) {
			logger.InfoKV(ctx, "Service not installed, nothing to stop", "service", svc.Name)
			return nil
		}

		return err
	}

	machine := newLifecycle(stateRunning)
	if err = transition(ctx, machine, eventUnload); err != nil {
		return err
	}

	if err = s.manager.Deregister(ctx, agentPath); err != nil {
		return err
	}

	if err = os.Remove(agentPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	logger.InfoKV(ctx, "Service deregistered", "service", svc.Name)

	phase, err := s.escalate(ctx, machine, svc.Process)
	if err != nil {
		return err
	}

	if err = transition(ctx, machine, eventStopped); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Service stopped", "service", svc.Name, "phase", phase)

	return nil
}

// escalate walks the three stop phases in order and reports which one
// achieved termination.
func (s *Supervisor) escalate(ctx context.Context, machine *fsm.FSM, process string) (string, error) {
	gone, err := s.waitGone(ctx, process, gracefulAttempts)
	if err != nil {
		return "", err
	}

	if gone {
		return "graceful", nil
	}

	if err = transition(ctx, machine, eventTerm); err != nil {
		return "", err
	}

	if err = s.signal(ctx, process, syscall.SIGTERM); err != nil {
		return "", err
	}

	if gone, err = s.waitGone(ctx, process, termAttempts); err != nil {
		return "", err
	}

	if gone {
		return "sigterm", nil
	}

	if err = transition(ctx, machine, eventKill); err != nil {
		return "", err
	}

	if err = s.signal(ctx, process, syscall.SIGKILL); err != nil {
		return "", err
	}

	if gone, err = s.waitGone(ctx, process, killAttempts); err != nil {
		return "", err
	}

	if gone {
		return "sigkill", nil
	}

	return "", fmt.Errorf("%s: %w", process, ErrShutdownTimeout)
}

// waitGone polls the process table until the process disappears or the
// attempt budget is spent.
func (s *Supervisor) waitGone(ctx context.Context, process string, attempts int) (bool, error) {
	var scanErr error

	gone, err := s.waiter.Until(ctx, pollInterval, attempts, func() bool {
		pid, err := s.table.FindPID(process)
		if err != nil {
			scanErr = err
			return true
		}

		return pid == 0
	})
	if err != nil {
		return false, err
	}

	if scanErr != nil {
		return false, scanErr
	}

	return gone, nil
}

// signal delivers sig to the service process if it is still present.
// A process that vanished between phases is not an error.
func (s *Supervisor) signal(ctx context.Context, process string, sig syscall.Signal) error {
	pid, err := s.table.FindPID(process)
	if err != nil {
		return err
	}

	if pid == 0 {
		return nil
	}

	logger.InfoKV(ctx, "Signaling process", "process", process, "pid", pid, "signal", sig.String())

	if err = s.table.Signal(pid, sig); err != nil {
		// The process may have exited right after the scan.
		logger.DebugKV(ctx, "Signal delivery failed", "pid", pid, "error", err)
	}

	return nil
}
