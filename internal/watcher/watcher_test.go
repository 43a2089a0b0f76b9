// file: internal/watcher/watcher_test.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounceSingleEvent(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	var mu sync.Mutex
	var got []string
	w := New(func(paths []string) {
		calls.Add(1)
		mu.Lock()
		got = append([]string(nil), paths...)
		mu.Unlock()
	}, 100*time.Millisecond)

	if err := w.Start(dir); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	f := filepath.Join(dir, "test.mp3")
	if err := os.WriteFile(f, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	// Wait for debounce + buffer.
	time.Sleep(300 * time.Millisecond)

	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 callback, got %d", c)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != f {
		t.Errorf("expected [%s], got %v", f, got)
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	var mu sync.Mutex
	var got []string
	w := New(func(paths []string) {
		calls.Add(1)
		mu.Lock()
		got = append([]string(nil), paths...)
		mu.Unlock()
	}, 200*time.Millisecond)

	if err := w.Start(dir); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// A burst of writes within the debounce window must produce one batch.
	for _, name := range []string{"01.mp3", "02.mp3", "03.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 callback, got %d", c)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Errorf("expected 3 paths in batch, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Errorf("expected sorted batch, got %v", got)
		}
	}
}

func TestIgnoresNonAudioFiles(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	w := New(func([]string) { calls.Add(1) }, 100*time.Millisecond)

	if err := w.Start(dir); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, name := range []string{"cover.jpg", "notes.txt", "album_meta.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(300 * time.Millisecond)

	if c := calls.Load(); c != 0 {
		t.Errorf("expected no callbacks for non-audio files, got %d", c)
	}
}

func TestWatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	w := New(func([]string) { calls.Add(1) }, 100*time.Millisecond)

	if err := w.Start(dir); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "New Album")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "track.flac"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(400 * time.Millisecond)

	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 callback for file in new subdirectory, got %d", c)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	w := New(func([]string) {}, 50*time.Millisecond)
	if err := w.Start(dir); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
