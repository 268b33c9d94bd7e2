package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrNoBinaries is returned when no directory with executable binaries
	// is found in the extracted tree. The wrapping error carries the tree
	// listing to aid diagnosis.
	ErrNoBinaries = errors.New("no binaries directory found in extracted archive")

	// errUnsupportedFormat is returned for archives that are neither zip nor tar.gz.
	errUnsupportedFormat = errors.New("unsupported archive format")

	// errUnsafePath is returned for entries that would escape the extraction root.
	errUnsafePath = errors.New("archive entry escapes extraction root")
)

// defaultDirMode is used for directories implied by archive entries.
const defaultDirMode os.FileMode = 0o755

// Extract unpacks the archive at archivePath into destDir, choosing the
// format by filename suffix.
func Extract(archivePath, destDir string) error {
	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZip(archivePath, destDir)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTarGz(archivePath, destDir)
	default:
		return fmt.Errorf("%s: %w", filepath.Base(archivePath), errUnsupportedFormat)
	}
}

// extractZip unpacks a zip archive, preserving entry modes.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		target, err := safeTarget(destDir, entry.Name)
		if err != nil {
			return err
		}

		info := entry.FileInfo()
		if info.IsDir() {
			if err = os.MkdirAll(target, defaultDirMode); err != nil {
				return err
			}

			continue
		}

		body, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", entry.Name, err)
		}

		err = writeEntry(target, body, info.Mode())

		_ = body.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// extractTarGz unpacks a gzip-compressed tar archive, preserving entry modes.
func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := safeTarget(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, defaultDirMode); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = writeEntry(target, tarReader, os.FileMode(header.Mode)); err != nil { //nolint:gosec // Mode comes from the archive header.
				return err
			}
		default:
			// Symlinks and special files are not expected in release
			// bundles and are skipped rather than materialized.
			continue
		}
	}
}

// safeTarget resolves an entry name under destDir and rejects escapes.
func safeTarget(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return target, nil
}

// writeEntry materializes one regular file with the given mode.
func writeEntry(target string, body io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return err
	}

	outputFile, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err = io.Copy(outputFile, body); err != nil { //nolint:gosec // Archive size is bounded by the downloaded artifact.
		_ = outputFile.Close()

		return fmt.Errorf("write %s: %w", target, err)
	}

	return outputFile.Close()
}

// LocateBinDir finds the directory holding executable binaries inside an
// extracted tree: a directory named "bin" anywhere in the tree wins
// (breadth-first), otherwise the first directory containing a regular file
// with an executable mode bit, checking the root first. When neither
// exists the error wraps ErrNoBinaries and carries the tree listing.
func LocateBinDir(root string) (string, error) {
	queue := []string{root}

	// Breadth-first pass for a directory literally named "bin".
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			child := filepath.Join(dir, entry.Name())
			if entry.Name() == "bin" {
				return child, nil
			}

			queue = append(queue, child)
		}
	}

	// Fall back to the first directory with an executable regular file,
	// checking the root before descending.
	queue = []string{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}

		for _, entry := range entries {
			if entry.IsDir() {
				queue = append(queue, filepath.Join(dir, entry.Name()))
				continue
			}

			if !entry.Type().IsRegular() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				return "", err
			}

			if info.Mode().Perm()&0o111 != 0 {
				return dir, nil
			}
		}
	}

	return "", fmt.Errorf("%w:\n%s", ErrNoBinaries, treeListing(root))
}

// treeListing renders the extracted tree for the ErrNoBinaries diagnostic.
func treeListing(root string) string {
	var builder strings.Builder

	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Best-effort listing for an error message.
		}

		relative, relErr := filepath.Rel(root, path)
		if relErr != nil || relative == "." {
			return nil
		}

		if entry.IsDir() {
			relative += string(os.PathSeparator)
		}

		builder.WriteString("  " + relative + "\n")

		return nil
	})

	return strings.TrimRight(builder.String(), "\n")
}
