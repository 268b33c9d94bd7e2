package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/homelab-ops/steward/internal/config"
	"github.com/homelab-ops/steward/internal/launchd"
	"github.com/homelab-ops/steward/internal/logger"
	"github.com/homelab-ops/steward/internal/proc"
	"github.com/homelab-ops/steward/internal/receipt"
	"github.com/homelab-ops/steward/internal/release"
)

// resolveTimeout bounds the remote-version lookup per service so a slow
// release endpoint cannot hang the status report.
const resolveTimeout = 10 * time.Second

// statusRow is one rendered line of the status report.
type statusRow struct {
	Service    string
	Registered string
	PID        string
	Uptime     string
	RSS        string
	Installed  string
	Latest     string
	Update     string
}

// RunStatus reports one service (or the whole catalog) and is the entry
// point for the CLI.
func RunStatus(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "steward-status")

	s, svc, err := fromOptions(opts, false)
	if err != nil {
		return err
	}

	services := s.cfg.Services
	if svc != nil {
		services = []config.Service{*svc}
	}

	return s.Status(ctx, services, os.Stdout)
}

// Status renders a tabular report for the given services. Resolution
// failures degrade single cells to "unknown" rather than failing the
// whole report.
func (s *Supervisor) Status(ctx context.Context, services []config.Service, out io.Writer) error {
	jobs, err := s.manager.List(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "SERVICE\tREGISTERED\tPID\tUPTIME\tRSS\tINSTALLED\tLATEST\tUPDATE")

	for i := range services {
		row := s.statusRow(ctx, &services[i], jobs)

		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Service, row.Registered, row.PID, row.Uptime,
			row.RSS, row.Installed, row.Latest, row.Update)
	}

	return writer.Flush()
}

// statusRow collects one service's registration, process, and version state.
func (s *Supervisor) statusRow(ctx context.Context, svc *config.Service, jobs []launchd.Job) statusRow {
	row := statusRow{
		Service:    svc.Name,
		Registered: "no",
		PID:        "-",
		Uptime:     "-",
		RSS:        "-",
		Installed:  "-",
		Latest:     "-",
		Update:     "-",
	}

	if s.isRegistered(svc, jobs) {
		row.Registered = "yes"
	}

	if pid, err := s.table.FindPID(svc.Process); err == nil && pid != 0 {
		row.PID = fmt.Sprintf("%d", pid)

		if detail, err := proc.Snapshot(ctx, pid); err == nil {
			row.Uptime = detail.Uptime.String()
			row.RSS = formatBytes(detail.RSSBytes)
		}
	}

	installed := s.installedVersion(svc)
	if installed != "" {
		row.Installed = installed
	}

	if svc.Release == nil {
		return row
	}

	latest, err := s.latestVersion(ctx, svc.Release)
	if err != nil {
		logger.DebugKV(ctx, "Remote version lookup failed", "service", svc.Name, "error", err)

		row.Latest = "unknown"
		row.Update = "unknown"

		return row
	}

	row.Latest = latest
	row.Update = compareVersions(installed, latest)

	return row
}

// isRegistered checks both the service-manager job list and the
// control-directory symlink.
func (s *Supervisor) isRegistered(svc *config.Service, jobs []launchd.Job) bool {
	for _, job := range jobs {
		if job.Label == svc.Label {
			return true
		}
	}

	agentPath, err := s.cfg.AgentPath(svc)
	if err != nil {
		return false
	}

	_, err = os.Lstat(agentPath)

	return err == nil
}

// installedVersion reads the install receipt; a missing receipt means the
// service was never installed by steward.
func (s *Supervisor) installedVersion(svc *config.Service) string {
	r, err := receipt.Read(s.cfg.ReceiptPath(svc.Name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "unknown"
		}

		return ""
	}

	return r.Version
}

// latestVersion resolves the newest published artifact's release tag.
func (s *Supervisor) latestVersion(ctx context.Context, src *config.Release) (string, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	artifact, err := s.resolver.Resolve(resolveCtx, release.Source{
		Repo:    src.Repo,
		Filter:  src.Filter,
		Exclude: src.Exclude,
	})
	if err != nil {
		return "", err
	}

	return artifact.Version, nil
}

// compareVersions decides the UPDATE column. Equal tags mean no update;
// otherwise semver ordering decides, and non-semver tags degrade to
// "unknown".
func compareVersions(installed, latest string) string {
	if installed == "" {
		return "yes"
	}

	if installed == latest {
		return "no"
	}

	installedVersion, err := semver.NewVersion(installed)
	if err != nil {
		return "unknown"
	}

	latestVersion, err := semver.NewVersion(latest)
	if err != nil {
		return "unknown"
	}

	if latestVersion.GreaterThan(installedVersion) {
		return "yes"
	}

	return "no"
}

// formatBytes renders a resident set size for the status table.
func formatBytes(b uint64) string {
	const mib = 1 << 20

	if b == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f MiB", float64(b)/float64(mib))
}
