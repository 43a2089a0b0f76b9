// file: internal/model/song.go
// version: 1.2.0
// guid: 632ebf10-52cc-43fe-8870-ff1ccba5f196

package model

import (
	"crypto/rand"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Song is the canonical, deduplicated unit of the catalog: one recording
// identified by its fingerprint, possibly present at several filesystem paths.
// All paths in FilePaths must fingerprint to Fingerprint.
type Song struct {
	ID             string        `json:"id"`
	Metadata       TrackMetadata `json:"track_metadata"`
	Fingerprint    string        `json:"fingerprint"`
	FilePaths      []string      `json:"file_paths"`
	CreatedAt      time.Time     `json:"created_at"`
	AlbumContextID string        `json:"album_metadata_id,omitempty"`
}

// NewSong creates a song from finalized merged metadata.
func NewSong(meta TrackMetadata, albumContextID string) *Song {
	return &Song{
		ID:             NewID(),
		Metadata:       meta,
		Fingerprint:    meta.Fingerprint,
		FilePaths:      []string{meta.Path},
		CreatedAt:      time.Now(),
		AlbumContextID: albumContextID,
	}
}

// NewID returns a new ULID string.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// AddPath records another filesystem location for this recording. Idempotent.
func (s *Song) AddPath(path string) {
	if !slices.Contains(s.FilePaths, path) {
		s.FilePaths = append(s.FilePaths, path)
	}
}

// HasPath reports whether path is already recorded for this song.
func (s *Song) HasPath(path string) bool {
	return slices.Contains(s.FilePaths, path)
}

// Title returns the song's display title, falling back to the filename stem
// of its first path.
func (s *Song) Title() string {
	if s.Metadata.Title != "" {
		return s.Metadata.Title
	}
	if len(s.FilePaths) > 0 {
		base := filepath.Base(s.FilePaths[0])
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ""
}
