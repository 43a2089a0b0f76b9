// file: cmd/diagnostics_test.go
// version: 2.0.0
// guid: 5480d7f7-4a6a-4b7f-9d16-6b589c8a3c0b

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tunevault/tunevault/internal/config"
	"github.com/tunevault/tunevault/internal/database"
	"github.com/tunevault/tunevault/internal/model"
)

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Fatalf("expected no truncation, got %q", got)
	}
	if got := truncateString("this is long", 4); got != "this..." {
		t.Fatalf("expected truncation, got %q", got)
	}
}

func TestPromptYesNo(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	origStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = origStdin }()

	if _, err := w.Write([]byte("yes\n")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	confirmed, err := promptYesNo("Delete 1 record")
	if err != nil {
		t.Fatalf("promptYesNo failed: %v", err)
	}
	if !confirmed {
		t.Error("expected 'yes' to confirm")
	}
}

func TestCleanupMissingSongs(t *testing.T) {
	prev := config.AppConfig
	defer func() { config.AppConfig = prev }()

	dir := t.TempDir()
	config.AppConfig = config.Config{
		DatabasePath: filepath.Join(dir, "catalog"),
		DatabaseType: "pebble",
	}

	// Seed one surviving song and one orphan.
	alivePath := filepath.Join(dir, "alive.mp3")
	if err := os.WriteFile(alivePath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	aliveMeta := model.NewTrackMetadata(alivePath)
	aliveMeta.Fingerprint = "fp-alive"
	alive := model.NewSong(aliveMeta, "")

	goneMeta := model.NewTrackMetadata(filepath.Join(dir, "gone.mp3"))
	goneMeta.Fingerprint = "fp-gone"
	gone := model.NewSong(goneMeta, "")

	store, err := openStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.PutSong(alive); err != nil {
		t.Fatal(err)
	}
	if err := store.PutSong(gone); err != nil {
		t.Fatal(err)
	}
	store.Close()

	if err := runCleanupMissingSongs(true, false); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	store, err = openStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.GetSongByID(alive.ID); err != nil {
		t.Errorf("expected surviving song to remain: %v", err)
	}
	if _, err := store.GetSongByID(gone.ID); err != database.ErrNotFound {
		t.Errorf("expected orphan to be deleted, got err=%v", err)
	}
}

func TestCleanupMissingSongsDryRun(t *testing.T) {
	prev := config.AppConfig
	defer func() { config.AppConfig = prev }()

	dir := t.TempDir()
	config.AppConfig = config.Config{
		DatabasePath: filepath.Join(dir, "catalog"),
		DatabaseType: "pebble",
	}

	goneMeta := model.NewTrackMetadata(filepath.Join(dir, "gone.mp3"))
	goneMeta.Fingerprint = "fp-gone"
	gone := model.NewSong(goneMeta, "")

	store, err := openStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.PutSong(gone); err != nil {
		t.Fatal(err)
	}
	store.Close()

	if err := runCleanupMissingSongs(true, true); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	store, err = openStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.GetSongByID(gone.ID); err != nil {
		t.Errorf("dry run must not delete records: %v", err)
	}
}
