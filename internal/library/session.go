// file: internal/library/session.go
// version: 1.3.0
// guid: 839c6ffd-92c7-4901-b11d-500b8eb823e3

// Package library drives per-file metadata resolution: it owns the run's
// fingerprint→song and path→album caches, the failure ledger, and the
// optional whole-library snapshot. A Session is created at run start and
// flushed at run end; there is no ambient state.
package library

import (
	"context"
	"sort"
	"sync"

	"github.com/tunevault/tunevault/internal/acoustid"
	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/analysis"
	"github.com/tunevault/tunevault/internal/fingerprint"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
	"github.com/tunevault/tunevault/internal/tags"
)

// Identifier resolves a fingerprint to at most one confirmed remote match.
type Identifier interface {
	Identify(ctx context.Context, path, localTitle, fingerprint string, duration float64) (*acoustid.Match, error)
}

// Session holds everything one resolution run needs. Albums, Oracle and
// Extract are required; the remaining collaborators are optional and their
// absence disables the corresponding enrichment.
type Session struct {
	Albums   *albumctx.Store
	Oracle   oracle.Oracle
	Extract  fingerprint.Extractor
	Probe    fingerprint.Prober
	ReadTags func(path string) (model.TrackMetadata, error)
	Analyze  analysis.Analyzer
	Identify Identifier
	Failures *Ledger

	// DefaultOrder, when valid, answers the merge-policy question for albums
	// that have none recorded, without consulting the oracle. The per-album
	// order still wins once set.
	DefaultOrder model.SourceOrder

	// ConfirmDiscard decides whether a corrupt album_meta.json should be
	// discarded and rebuilt from the files. Nil, or a false answer, aborts
	// the run instead. Corruption is never recorded in the failure ledger;
	// the ledger is for invalid audio files only.
	ConfirmDiscard func(*albumctx.CorruptContextError) bool

	mu         sync.Mutex
	songs      map[string]*model.Song            // fingerprint -> song
	fileAlbums map[string]*albumctx.AlbumContext // file path -> album context
}

// NewSession creates a session with the required collaborators and an
// in-memory failure ledger. Tag reading defaults to the embedded-tag reader.
func NewSession(albums *albumctx.Store, o oracle.Oracle, extract fingerprint.Extractor, probe fingerprint.Prober) *Session {
	return &Session{
		Albums:     albums,
		Oracle:     o,
		Extract:    extract,
		Probe:      probe,
		ReadTags:   tags.Extract,
		Failures:   NewLedger(""),
		songs:      make(map[string]*model.Song),
		fileAlbums: make(map[string]*albumctx.AlbumContext),
	}
}

// SongForFingerprint returns the cached song for fingerprint, if any.
func (s *Session) SongForFingerprint(fp string) *model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.songs[fp]
}

// publish inserts song under fingerprint unless another song won the race;
// the returned song is the canonical one. At most one song ever exists per
// fingerprint.
func (s *Session) publish(fp string, song *model.Song) (*model.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.songs[fp]; ok {
		return existing, false
	}
	s.songs[fp] = song
	return song, true
}

func (s *Session) recordFile(path string, album *albumctx.AlbumContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileAlbums[path] = album
}

// Songs returns the session's distinct songs sorted by fingerprint.
func (s *Session) Songs() []*model.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	fps := make([]string, 0, len(s.songs))
	for fp := range s.songs {
		fps = append(fps, fp)
	}
	sort.Strings(fps)
	out := make([]*model.Song, 0, len(fps))
	for _, fp := range fps {
		out = append(out, s.songs[fp])
	}
	return out
}

// SongCount returns the number of distinct songs seen this run.
func (s *Session) SongCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.songs)
}
