package receipt

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

var errHashUnavailable = errors.New("hash function unavailable")

const (
	// ChecksumFunction is used to hash installed files.
	ChecksumFunction crypto.Hash = crypto.SHA512

	// filePermissions is used when writing receipts.
	filePermissions os.FileMode = 0o644
)

// Receipt describes one completed install of a service.
type Receipt struct {
	// Service is the catalog name of the installed service.
	Service string `yaml:"service"`
	// Version is the release tag the artifact belonged to.
	Version string `yaml:"version"`
	// ArtifactURL is where the installed bundle came from.
	ArtifactURL string `yaml:"artifact_url"`
	// InstalledAt is when the install finished.
	InstalledAt time.Time `yaml:"installed_at"`
	// Files maps installed filenames to base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// Write persists the receipt at the given path, creating parent directories.
func Write(path string, r *Receipt) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return fmt.Errorf("create receipt directory: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, filePermissions); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	return nil
}

// Read loads a receipt. Callers distinguish "never installed" with
// errors.Is(err, fs.ErrNotExist).
func Read(path string) (*Receipt, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var r Receipt
	if err = yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}

	return &r, nil
}

// FileChecksum returns checksum bytes for a file using ChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Checksum(contents)
}

// Checksum hashes a byte slice using ChecksumFunction.
func Checksum(contents []byte) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
