package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func localStorageFullpath(baseDir, bucket, key string) string {
	return filepath.Join(baseDir, bucket, key)
}

// writeFileAtomic writes data to a temporary file next to filename and renames
// it into place, so a failed download never leaves a truncated artifact.
func writeFileAtomic(filename string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", filename, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to move download into place at %s: %w", filename, err)
	}
	return nil
}
