// file: internal/fileops/safe_operations.go
// version: 2.0.0
// guid: 8f7e6d5c-4b3a-2918-7f6e-5d4c3b2a1908

package fileops

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// EditGuard protects an in-place edit of a file (such as a tag write-back)
// with a sibling backup copy. Begin an edit, mutate the file, then either
// Commit on success or Rollback to restore the original bytes.
//
// The backup lives next to the file as "<name>.bak" so it follows the file
// if the containing directory is moved while the edit is in flight.
type EditGuard struct {
	path         string
	backupPath   string
	originalHash string
}

// BeginEdit snapshots path into a sibling backup and records its checksum.
// The file must exist; guarding the creation of a new file is what
// WriteFileAtomic is for.
func BeginEdit(path string) (*EditGuard, error) {
	hash, err := Checksum(path)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum %s: %w", path, err)
	}

	backupPath := path + ".bak"
	if err := copyFile(path, backupPath); err != nil {
		return nil, fmt.Errorf("failed to back up %s: %w", path, err)
	}

	return &EditGuard{
		path:         path,
		backupPath:   backupPath,
		originalHash: hash,
	}, nil
}

// Rollback restores the file from its backup and removes the backup. It is
// safe to call after Commit, where it is a no-op.
func (g *EditGuard) Rollback() error {
	if _, err := os.Stat(g.backupPath); os.IsNotExist(err) {
		return nil
	}
	if err := copyFile(g.backupPath, g.path); err != nil {
		return fmt.Errorf("failed to restore %s from backup: %w", g.path, err)
	}
	return os.Remove(g.backupPath)
}

// Commit discards the backup, keeping the edited file.
func (g *EditGuard) Commit() error {
	if err := os.Remove(g.backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup %s: %w", g.backupPath, err)
	}
	return nil
}

// Modified reports whether the file's bytes differ from the snapshot taken
// at BeginEdit.
func (g *EditGuard) Modified() (bool, error) {
	hash, err := Checksum(g.path)
	if err != nil {
		return false, err
	}
	return hash != g.originalHash, nil
}

// Checksum returns the hex-encoded SHA256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
