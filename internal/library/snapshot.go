// file: internal/library/snapshot.go
// version: 1.1.0
// guid: 6f7a8b9c-0d1e-2f3a-4b5c-6d7e8f9a0b1c

package library

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/fileops"
	"github.com/tunevault/tunevault/internal/model"
)

// Snapshot is the optional whole-run secondary store: album contexts plus
// both session caches, written as one JSON document.
type Snapshot struct {
	Model             []*albumctx.AlbumContext          `json:"model"`
	FingerprintToSong map[string]*model.Song            `json:"fingerprint_to_song_cache"`
	FilepathToAlbums  map[string]*albumctx.AlbumContext `json:"filepath_to_albums"`
}

// SaveSnapshot writes the session state to path atomically.
func (s *Session) SaveSnapshot(path string) error {
	s.mu.Lock()
	snap := Snapshot{
		Model:             s.Albums.Cached(),
		FingerprintToSong: make(map[string]*model.Song, len(s.songs)),
		FilepathToAlbums:  make(map[string]*albumctx.AlbumContext, len(s.fileAlbums)),
	}
	for fp, song := range s.songs {
		snap.FingerprintToSong[fp] = song
	}
	for p, album := range s.fileAlbums {
		snap.FilepathToAlbums[p] = album
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize library snapshot: %w", err)
	}
	validate := func(b []byte) error {
		var check Snapshot
		return json.Unmarshal(b, &check)
	}
	if err := fileops.WriteFileAtomic(path, data, validate); err != nil {
		return fmt.Errorf("failed to persist library snapshot: %w", err)
	}
	log.Printf("[INFO] library: snapshot saved to %s (%d songs, %d albums)", path, len(snap.FingerprintToSong), len(snap.Model))
	return nil
}

// LoadSnapshot seeds the session caches from a previous run's snapshot.
// Absence is not an error; the run simply starts cold.
func (s *Session) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read library snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unparseable library snapshot %s: %w", path, err)
	}

	byID := make(map[string]*albumctx.AlbumContext, len(snap.Model))
	for _, album := range snap.Model {
		if err := album.Validate(); err != nil {
			return fmt.Errorf("invalid album context in snapshot: %w", err)
		}
		byID[album.ID] = album
		s.Albums.Adopt(album)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for fp, song := range snap.FingerprintToSong {
		s.songs[fp] = song
	}
	// JSON duplicates shared contexts per path; re-link to the canonical
	// instance from Model where ids match.
	for p, album := range snap.FilepathToAlbums {
		if canonical, ok := byID[album.ID]; ok {
			s.fileAlbums[p] = canonical
		} else {
			s.fileAlbums[p] = album
		}
	}
	log.Printf("[INFO] library: snapshot loaded from %s (%d songs, %d albums)", path, len(snap.FingerprintToSong), len(snap.Model))
	return nil
}
