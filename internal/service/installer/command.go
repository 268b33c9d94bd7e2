package installer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/homelab-ops/steward/internal/archive"
	"github.com/homelab-ops/steward/internal/config"
	"github.com/homelab-ops/steward/internal/logger"
	"github.com/homelab-ops/steward/internal/profile"
	"github.com/homelab-ops/steward/internal/receipt"
	"github.com/homelab-ops/steward/internal/release"
)

// errNotInstallable is returned for catalog entries without a release source.
var errNotInstallable = errors.New("service has no release source and cannot be installed")

// installedFileMode makes every installed file executable.
const installedFileMode os.FileMode = 0o755

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the optional path to the service catalog.
	ConfigPath string
	// Service is the catalog name of the service to install.
	Service string
}

// runner holds the state and helpers for a single install execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg      *config.Config    // Catalog and path layout.
	svc      *config.Service   // The service being installed.
	resolver *release.Resolver // Release listing and artifact client.
	writer   profile.Writer    // Shell profile PATH registration.

	scratchDir string            // Where the artifact is downloaded.
	extractDir string            // Where the artifact is unpacked.
	artifact   *release.Artifact // The resolved artifact.
	checksums  map[string]string // Installed file -> base64 checksum.
}

// Run installs or updates one service and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "steward-install")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Install failed", "service", opts.Service, "error", err)
		return err
	}

	logger.InfoKV(ctx, "Install completed", "service", opts.Service, "version", r.artifact.Version)

	return nil
}

// newRunner loads the catalog and prepares the install.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	svc, err := cfg.Lookup(opts.Service)
	if err != nil {
		return nil, err
	}

	if svc.Release == nil {
		return nil, fmt.Errorf("%s: %w", svc.Name, errNotInstallable)
	}

	profilePath, err := cfg.ProfilePath()
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Installing service", "service", svc.Name, "repo", svc.Release.Repo)

	return &runner{
		cfg:       cfg,
		svc:       svc,
		resolver:  release.NewResolver(cfg.ReleaseAPI),
		writer:    profile.NewFileWriter(profilePath),
		checksums: make(map[string]string),
	}, nil
}

// Run executes the install workflow:
// 1) Resolve the newest matching artifact.
// 2) Download it to a scratch directory.
// 3) Unpack into an isolated temporary directory.
// 4) Locate the binaries directory.
// 5) Wipe and repopulate the install directory.
// 6) Clear quarantine metadata (best-effort).
// 7) Register the install directory on PATH.
// 8) Write the install receipt.
func (r *runner) Run(ctx context.Context) error {
	archivePath, err := r.fetchArtifact(ctx)
	if err != nil {
		return err
	}

	binDir, err := r.unpack(ctx, archivePath)
	if err != nil {
		return err
	}

	targetDir := r.cfg.BinDir(r.svc.Name)

	logger.InfoKV(ctx, "Installing binaries", "from", binDir, "to", targetDir)

	if err = r.installFiles(binDir, targetDir); err != nil {
		return fmt.Errorf("install binaries: %w", err)
	}

	r.clearQuarantine(ctx, targetDir)

	if err = r.registerPath(ctx, targetDir); err != nil {
		return fmt.Errorf("register PATH: %w", err)
	}

	if err = r.writeReceipt(); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	return nil
}

// fetchArtifact resolves and downloads the release artifact.
func (r *runner) fetchArtifact(ctx context.Context) (string, error) {
	artifact, err := r.resolver.Resolve(ctx, release.Source{
		Repo:    r.svc.Release.Repo,
		Filter:  r.svc.Release.Filter,
		Exclude: r.svc.Release.Exclude,
	})
	if err != nil {
		return "", fmt.Errorf("resolve artifact: %w", err)
	}

	r.artifact = artifact

	logger.InfoKV(ctx, "Resolved artifact",
		"name", artifact.Name, "version", artifact.Version, "url", artifact.URL)

	scratchDir, err := os.MkdirTemp("", "steward-download-")
	if err != nil {
		return "", err
	}

	r.scratchDir = scratchDir

	archivePath, err := r.resolver.Download(ctx, artifact, scratchDir)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}

	logger.InfoKV(ctx, "Downloaded artifact", "path", archivePath)

	return archivePath, nil
}

// unpack extracts the archive into an isolated directory and locates the
// binaries inside it.
func (r *runner) unpack(ctx context.Context, archivePath string) (string, error) {
	extractDir, err := os.MkdirTemp("", "steward-extract-")
	if err != nil {
		return "", err
	}

	r.extractDir = extractDir

	if err = archive.Extract(archivePath, extractDir); err != nil {
		return "", fmt.Errorf("extract artifact: %w", err)
	}

	binDir, err := archive.LocateBinDir(extractDir)
	if err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Located binaries directory", "path", binDir)

	return binDir, nil
}

// installFiles wipes the install directory and applies every file from the
// binaries directory with executable permissions, preserving the relative
// layout. Applies go through go-update (write-new, rename-over) with
// checksum verification against the bytes just read.
func (r *runner) installFiles(binDir, targetDir string) error {
	if err := os.RemoveAll(targetDir); err != nil {
		return err
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	return filepath.WalkDir(binDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relative, err := filepath.Rel(binDir, path)
		if err != nil {
			return err
		}

		return r.applyFile(path, filepath.Join(targetDir, relative), relative)
	})
}

// applyFile installs one binary via go-update and records its checksum.
func (r *runner) applyFile(sourcePath, targetPath, name string) error {
	data, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return err
	}

	checksum, err := receipt.Checksum(data)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}

	if _, err = os.Stat(targetPath); err != nil && os.IsNotExist(err) {
		if _, err = os.Create(filepath.Clean(targetPath)); err != nil {
			return err
		}
	}

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: installedFileMode,
		Checksum:   checksum,
		Hash:       receipt.ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}

	oldPath := targetPath + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	r.checksums[name] = base64.StdEncoding.EncodeToString(checksum)

	return nil
}

// clearQuarantine drops the com.apple.quarantine attribute from everything
// under the install directory. Failures are swallowed: the attribute is
// platform-specific and absence of xattr is not an install problem.
func (r *runner) clearQuarantine(ctx context.Context, targetDir string) {
	if runtime.GOOS != "darwin" {
		return
	}

	output, err := exec.CommandContext(ctx, "xattr", "-dr", "com.apple.quarantine", targetDir).CombinedOutput()
	if err != nil {
		logger.DebugKV(ctx, "Quarantine clearing failed",
			"target", targetDir, "output", string(output), "error", err)

		return
	}

	logger.Debug(ctx, "Quarantine metadata cleared")
}

// registerPath ensures the install directory is exported on PATH exactly once.
func (r *runner) registerPath(ctx context.Context, targetDir string) error {
	line := profile.ExportLine(targetDir)

	wrote, err := r.writer.EnsureLine(line)
	if err != nil {
		return err
	}

	if wrote {
		logger.InfoKV(ctx, "Registered install directory on PATH", "line", line)
	} else {
		logger.Debug(ctx, "PATH entry already present")
	}

	return nil
}

// writeReceipt persists what this install produced.
func (r *runner) writeReceipt() error {
	return receipt.Write(r.cfg.ReceiptPath(r.svc.Name), &receipt.Receipt{
		Service:     r.svc.Name,
		Version:     r.artifact.Version,
		ArtifactURL: r.artifact.URL,
		InstalledAt: time.Now().UTC(),
		Files:       r.checksums,
	})
}

// cleanup removes the scratch and extraction directories.
func (r *runner) cleanup(ctx context.Context) {
	for _, dir := range []string{r.scratchDir, r.extractDir} {
		if dir == "" {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			logger.WarnKV(ctx, "Temporary directory cleanup failed", "dir", dir, "error", err)
		}
	}
}
