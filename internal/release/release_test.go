package release

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/require"
)

// testListing is the canonical three-asset listing used across resolver tests:
// a foreign platform build, the wanted build, and its signature file.
func testListing() map[string]any {
	return map[string]any{
		"tag_name": "v1.4.0",
		"assets": []map[string]any{
			{
				"name":                 "app-linux-x64.zip",
				"browser_download_url": "https://downloads.test/app-linux-x64.zip",
			},
			{
				"name":                 "app-macos-arm64.zip",
				"browser_download_url": "https://downloads.test/app-macos-arm64.zip",
			},
			{
				"name":                 "app-macos-arm64.zip.sig",
				"browser_download_url": "https://downloads.test/app-macos-arm64.zip.sig",
			},
		},
	}
}

// TestResolve_PicksFirstMatchingNonExcludedAsset covers the normative
// selection scenario: the platform filter matches two assets and the
// exclusion substring drops the signature file.
func TestResolve_PicksFirstMatchingNonExcludedAsset(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/acme/app/releases/latest").
		Reply(http.StatusOK).
		JSON(testListing())

	resolver := NewResolver("https://api.github.com/repos")

	artifact, err := resolver.Resolve(context.Background(), Source{
		Repo:    "acme/app",
		Filter:  "macos-arm64",
		Exclude: ".sig",
	})

	require.NoError(t, err)
	require.Equal(t, "app-macos-arm64.zip", artifact.Name)
	require.Equal(t, "https://downloads.test/app-macos-arm64.zip", artifact.URL)
	require.Equal(t, "v1.4.0", artifact.Version)
}

// TestResolve_ListingOrderWins verifies that the first matching asset is
// selected even when later assets also match.
func TestResolve_ListingOrderWins(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/acme/app/releases/latest").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"tag_name": "v2.0.0",
			"assets": []map[string]any{
				{
					"name":                 "app-macos-arm64-full.zip",
					"browser_download_url": "https://downloads.test/full.zip",
				},
				{
					"name":                 "app-macos-arm64-lite.zip",
					"browser_download_url": "https://downloads.test/lite.zip",
				},
			},
		})

	resolver := NewResolver("https://api.github.com/repos")

	artifact, err := resolver.Resolve(context.Background(), Source{
		Repo:   "acme/app",
		Filter: "macos-arm64",
	})

	require.NoError(t, err)
	require.Equal(t, "app-macos-arm64-full.zip", artifact.Name)
}

// TestResolve_NoMatchReturnsErrNoArtifact verifies the filter mismatch path,
// including that matching is case-sensitive.
func TestResolve_NoMatchReturnsErrNoArtifact(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/acme/app/releases/latest").
		Reply(http.StatusOK).
		JSON(testListing())

	resolver := NewResolver("https://api.github.com/repos")

	_, err := resolver.Resolve(context.Background(), Source{
		Repo:   "acme/app",
		Filter: "MACOS-ARM64",
	})

	require.ErrorIs(t, err, ErrNoArtifact)
}

// TestResolve_BadStatusFailsFast verifies there is no retry on server errors.
func TestResolve_BadStatusFailsFast(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/acme/app/releases/latest").
		Reply(http.StatusInternalServerError)

	resolver := NewResolver("https://api.github.com/repos")

	_, err := resolver.Resolve(context.Background(), Source{
		Repo:   "acme/app",
		Filter: "macos-arm64",
	})

	require.Error(t, err)
	require.True(t, gock.IsDone())
}

// TestResolve_FullListingURLPassesThrough verifies a source whose repository
// is already a complete URL skips API-base resolution.
func TestResolve_FullListingURLPassesThrough(t *testing.T) {
	defer gock.Off()

	gock.New("https://releases.example.net").
		Get("/app/latest.json").
		Reply(http.StatusOK).
		JSON(testListing())

	resolver := NewResolver("https://api.github.com/repos")

	artifact, err := resolver.Resolve(context.Background(), Source{
		Repo:    "https://releases.example.net/app/latest.json",
		Filter:  "macos-arm64",
		Exclude: ".sig",
	})

	require.NoError(t, err)
	require.Equal(t, "app-macos-arm64.zip", artifact.Name)
}

// TestDownload_WritesArtifactToDirectory verifies the artifact body lands in
// the scratch directory under the artifact name.
func TestDownload_WritesArtifactToDirectory(t *testing.T) {
	defer gock.Off()

	body := []byte("artifact-bytes")

	gock.New("https://downloads.test").
		Get("/app-macos-arm64.zip").
		Reply(http.StatusOK).
		Body(bytes.NewReader(body))

	resolver := NewResolver("https://api.github.com/repos")
	dir := t.TempDir()

	path, err := resolver.Download(context.Background(), &Artifact{
		Name: "app-macos-arm64.zip",
		URL:  "https://downloads.test/app-macos-arm64.zip",
	}, dir)

	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "app-macos-arm64.zip"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, body, got)
}
