package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoad_MissingFileYieldsDefaultCatalog verifies the built-in catalog
// serves when nothing exists on disk.
func TestLoad_MissingFileYieldsDefaultCatalog(t *testing.T) {
	t.Setenv("STEWARD_HOME", t.TempDir())
	t.Setenv("STEWARD_CONFIG", "")

	cfg, err := Load("")

	require.NoError(t, err)
	require.NotEmpty(t, cfg.Services)
	require.Equal(t, DefaultReleaseAPI, cfg.ReleaseAPI)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

// TestLoad_ExplicitEmptyCatalog verifies a file declaring no services loads
// as an empty catalog; only a missing file falls back to the built-in one.
func TestLoad_ExplicitEmptyCatalog(t *testing.T) {
	t.Setenv("STEWARD_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: []\n"), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	require.Empty(t, cfg.Services)
}

// TestLoad_EnvOverridesScalars verifies STEWARD_* environment variables win
// over file values for scalar settings.
func TestLoad_EnvOverridesScalars(t *testing.T) {
	t.Setenv("STEWARD_HOME", t.TempDir())
	t.Setenv("STEWARD_LOG_LEVEL", "debug")

	cfg, err := Load("")

	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
}

// TestSaveLoad_RoundTrip verifies a saved catalog loads back with defaults
// filled in for omitted fields.
func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("STEWARD_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "steward.yaml")

	original := &Config{
		Services: []Service{
			{
				Name: "whisper",
				Release: &Release{
					Repo:    "acme/whisper",
					Filter:  "macos-arm64",
					Exclude: ".sig",
				},
			},
			{Name: "open-webui", Label: "com.homelab.chat"},
		},
	}

	require.NoError(t, Save(path, original))

	// Restrictive permissions on the saved catalog.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Services, 2)

	whisper, err := loaded.Lookup("whisper")
	require.NoError(t, err)
	require.Equal(t, DefaultLabelPrefix+"whisper", whisper.Label)
	require.Equal(t, "whisper", whisper.Process)
	require.Equal(t, "macos-arm64", whisper.Release.Filter)

	chat, err := loaded.Lookup("open-webui")
	require.NoError(t, err)
	require.Equal(t, "com.homelab.chat", chat.Label)
}

// TestValidate_RejectsBrokenCatalogs covers required fields and duplicates.
func TestValidate_RejectsBrokenCatalogs(t *testing.T) {
	t.Parallel()

	cases := map[string]*Config{
		"nil catalog": nil,
		"unnamed service": {
			Services: []Service{{}},
		},
		"duplicate name": {
			Services: []Service{{Name: "a"}, {Name: "a"}},
		},
		"duplicate label": {
			Services: []Service{
				{Name: "a", Label: "com.homelab.x"},
				{Name: "b", Label: "com.homelab.x"},
			},
		},
		"release without repo": {
			Services: []Service{{Name: "a", Release: &Release{Filter: "macos-arm64"}}},
		},
		"release without filter": {
			Services: []Service{{Name: "a", Release: &Release{Repo: "acme/a"}}},
		},
		"bad release API": {
			ReleaseAPI: "::not-a-url",
			Services:   []Service{{Name: "a"}},
		},
	}

	for name, cfg := range cases {
		require.Error(t, Validate(cfg), name)
	}
}

// TestLookup_UnknownService verifies the sentinel for absent entries.
func TestLookup_UnknownService(t *testing.T) {
	t.Parallel()

	cfg := &Config{Services: []Service{{Name: "a"}}}
	require.NoError(t, Validate(cfg))

	_, err := cfg.Lookup("b")
	require.ErrorIs(t, err, ErrUnknownService)
}

// TestPaths_LayoutUnderHome pins the on-disk layout derived from the state root.
func TestPaths_LayoutUnderHome(t *testing.T) {
	t.Parallel()

	cfg := &Config{Home: "/tmp/steward-home"}
	svc := &Service{Name: "whisper"}

	require.Equal(t, "/tmp/steward-home/bin/whisper", cfg.BinDir("whisper"))
	require.Equal(t, "/tmp/steward-home/receipts/whisper.yaml", cfg.ReceiptPath("whisper"))
	require.Equal(t, "/tmp/steward-home/launchd/whisper.plist", cfg.ManifestPath(svc))

	svc.Manifest = "/etc/steward/whisper.plist"
	require.Equal(t, "/etc/steward/whisper.plist", cfg.ManifestPath(svc))
}
