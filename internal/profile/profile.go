package profile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// profilePermissions is used when the profile has to be created.
const profilePermissions os.FileMode = 0o644

// Writer ensures configuration lines exist in a shell profile.
type Writer interface {
	// EnsureLine appends line to the profile unless an identical line is
	// already present. It reports whether a write occurred.
	EnsureLine(line string) (bool, error)
}

// FileWriter is the real Writer targeting a profile file on disk.
type FileWriter struct {
	// Path is the profile location, e.g. ~/.zprofile.
	Path string
}

// NewFileWriter returns a Writer for the given profile path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{Path: path}
}

// EnsureLine scans the profile for an identical line (ignoring surrounding
// whitespace) and appends the line when absent. A missing profile is
// created.
func (w *FileWriter) EnsureLine(line string) (bool, error) {
	present, err := w.containsLine(line)
	if err != nil {
		return false, err
	}

	if present {
		return false, nil
	}

	if err = os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return false, err
	}

	file, err := os.OpenFile(filepath.Clean(w.Path), os.O_WRONLY|os.O_CREATE|os.O_APPEND, profilePermissions)
	if err != nil {
		return false, err
	}

	if _, err = fmt.Fprintln(file, line); err != nil {
		_ = file.Close()

		return false, fmt.Errorf("append to %s: %w", w.Path, err)
	}

	return true, file.Close()
}

// containsLine reports whether the profile already holds the line.
func (w *FileWriter) containsLine(line string) (bool, error) {
	file, err := os.Open(filepath.Clean(w.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	defer func() {
		_ = file.Close()
	}()

	wanted := strings.TrimSpace(line)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == wanted {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// ExportLine renders the PATH export line registering an install directory.
func ExportLine(dir string) string {
	return fmt.Sprintf("export PATH=\"$PATH:%s\"", dir)
}
