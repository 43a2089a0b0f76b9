// file: internal/fileops/atomic.go
// version: 1.0.0
// guid: 93ca1002-8849-4999-942e-550bd333e954

package fileops

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// ValidateFunc checks serialized bytes before they replace the previous file
// contents. Returning an error aborts the write and leaves the old file
// untouched.
type ValidateFunc func(data []byte) error

// WriteFileAtomic writes data to path via a temp file in the same directory,
// verifies what reached disk, then renames over the target. A failure at any
// step leaves the previous on-disk state intact.
func WriteFileAtomic(path string, data []byte, validate ValidateFunc) error {
	if validate != nil {
		if err := validate(data); err != nil {
			return fmt.Errorf("refusing to write %s: %w", path, err)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Read back and compare checksums before the rename; a short or corrupt
	// write must not replace a good file.
	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to verify temp file: %w", err)
	}
	if !bytes.Equal(checksum(data), checksum(written)) {
		return fmt.Errorf("checksum mismatch writing %s: temp file failed integrity check", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func checksum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// FileSize returns the size of a file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
