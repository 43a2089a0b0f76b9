// file: internal/library/ledger.go
// version: 1.1.0
// guid: 39b1499c-b55e-4b11-937c-bccaa427c7e6

package library

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/tunevault/tunevault/internal/fileops"
)

// Ledger is the set of file paths that previously failed to process. It is
// consulted at run start to skip known-bad files and rewritten at run end.
type Ledger struct {
	Path string

	mu     sync.Mutex
	failed map[string]bool
}

// NewLedger creates an empty ledger. An empty path makes Save a no-op
// (in-memory ledger for tests and one-shot runs).
func NewLedger(path string) *Ledger {
	return &Ledger{Path: path, failed: make(map[string]bool)}
}

// LoadLedger reads a persisted ledger, tolerating absence.
func LoadLedger(path string) (*Ledger, error) {
	l := NewLedger(path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read failure ledger %s: %w", path, err)
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("unparseable failure ledger %s: %w", path, err)
	}
	for _, p := range paths {
		l.failed[p] = true
	}
	log.Printf("[INFO] library: loaded %d known-bad path(s) from %s", len(paths), path)
	return l, nil
}

// Contains reports whether path is recorded as failing.
func (l *Ledger) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed[path]
}

// Add records path as failing.
func (l *Ledger) Add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[path] = true
}

// Remove clears path, e.g. after the operator fixed the file.
func (l *Ledger) Remove(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failed, path)
}

// Paths returns the recorded paths, sorted.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.failed))
	for p := range l.failed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded paths.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failed)
}

// Save rewrites the persisted ledger atomically. A ledger without a path is
// in-memory only.
func (l *Ledger) Save() error {
	if l.Path == "" {
		return nil
	}
	data, err := json.MarshalIndent(l.Paths(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize failure ledger: %w", err)
	}
	validate := func(b []byte) error {
		var check []string
		return json.Unmarshal(b, &check)
	}
	if err := fileops.WriteFileAtomic(l.Path, data, validate); err != nil {
		return fmt.Errorf("failed to persist failure ledger: %w", err)
	}
	return nil
}
