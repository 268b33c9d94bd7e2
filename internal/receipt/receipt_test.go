package receipt

import (
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWriteRead_RoundTrip verifies a receipt survives the disk round trip.
func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "receipts", "llama-server.yaml")

	original := &Receipt{
		Service:     "llama-server",
		Version:     "b4521",
		ArtifactURL: "https://downloads.test/llama-b4521-bin-macos-arm64.zip",
		InstalledAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		Files:       map[string]string{"llama-server": "c2hhNTEy"},
	}

	require.NoError(t, Write(path, original))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

// TestRead_MissingIsErrNotExist verifies the "never installed" signal.
func TestRead_MissingIsErrNotExist(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

// TestFileChecksum_MatchesSHA512 pins the hash function and encoding used
// in receipts.
func TestFileChecksum_MatchesSHA512(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "binary")
	body := []byte("binary-contents")
	require.NoError(t, os.WriteFile(path, body, 0o755))

	sum, err := FileChecksum(path)
	require.NoError(t, err)

	expected := sha512.Sum512(body)
	require.Equal(t, expected[:], sum)

	// Receipts store the base64 form.
	require.Equal(t,
		base64.StdEncoding.EncodeToString(expected[:]),
		base64.StdEncoding.EncodeToString(sum))
}
