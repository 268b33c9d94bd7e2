package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDir returns the state root: the configured home, the STEWARD_HOME
// environment variable, or ~/.steward.
func (c *Config) HomeDir() string {
	if c.Home != "" {
		return c.Home
	}

	if env := os.Getenv(EnvPrefix + "_HOME"); env != "" {
		return env
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// Degrade to a relative state root rather than failing outright.
		return DefaultHomeDirname
	}

	return filepath.Join(home, DefaultHomeDirname)
}

// BinDir returns the install directory for a service's binaries.
func (c *Config) BinDir(service string) string {
	return filepath.Join(c.HomeDir(), "bin", service)
}

// ReceiptPath returns the install receipt location for a service.
func (c *Config) ReceiptPath(service string) string {
	return filepath.Join(c.HomeDir(), "receipts", service+".yaml")
}

// ManifestPath resolves a service's launchd manifest. Relative manifest
// paths live under <home>/launchd; an unset manifest defaults to
// <name>.plist there.
func (c *Config) ManifestPath(s *Service) string {
	manifest := s.Manifest
	if manifest == "" {
		manifest = s.Name + ".plist"
	}

	if filepath.IsAbs(manifest) {
		return manifest
	}

	return filepath.Join(c.HomeDir(), "launchd", manifest)
}

// AgentPath returns the control-directory symlink location for a service,
// ~/Library/LaunchAgents/<label>.plist.
func (c *Config) AgentPath(s *Service) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", s.Label+".plist"), nil
}

// ProfilePath returns the shell profile receiving PATH export lines.
func (c *Config) ProfilePath() (string, error) {
	if c.Profile != "" {
		return c.Profile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return filepath.Join(home, DefaultProfileFilename), nil
}
