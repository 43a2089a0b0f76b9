// file: internal/albumctx/albumctx.go
// version: 1.2.0
// guid: 7e8f9a0b-1c2d-3e4f-5a6b-7c8d9e0f1a2b

// Package albumctx manages the per-directory album context: the naming
// conventions and known songs of one folder of tracks, persisted as that
// folder's album_meta.json.
package albumctx

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/pattern"
)

// MetaFilename is the per-directory persistence file name.
const MetaFilename = "album_meta.json"

// AlbumContext represents one directory of tracks. Songs is a non-owning
// collection; the session's fingerprint cache owns the Song values.
type AlbumContext struct {
	ID                      string            `json:"id"`
	Path                    string            `json:"path"`
	Title                   string            `json:"title"`
	Artists                 []string          `json:"artists"`
	Songs                   []*model.Song     `json:"songs"`
	FilenameMetadataPattern string            `json:"filename_metadata_pattern,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	DefaultOrder            model.SourceOrder `json:"default_order,omitempty"`

	parser *pattern.Parser
}

// Validate checks the persisted shape. A context that fails validation is
// treated as corrupt rather than repaired.
func (c *AlbumContext) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("album context missing id")
	}
	if c.Path == "" {
		return fmt.Errorf("album context %s missing path", c.ID)
	}
	if c.Title == "" {
		return fmt.Errorf("album context %s missing title", c.ID)
	}
	if c.FilenameMetadataPattern != "" {
		if _, err := pattern.Compile(c.FilenameMetadataPattern); err != nil {
			return err
		}
	}
	if c.DefaultOrder != "" && !c.DefaultOrder.Valid() {
		return fmt.Errorf("album context %s has unknown default order %q", c.ID, c.DefaultOrder)
	}
	return nil
}

// SongPaths returns every file path recorded across the context's songs.
func (c *AlbumContext) SongPaths() map[string]bool {
	paths := make(map[string]bool)
	for _, s := range c.Songs {
		for _, p := range s.FilePaths {
			paths[p] = true
		}
	}
	return paths
}

// SongForPath returns the recorded song listing path, if any.
func (c *AlbumContext) SongForPath(path string) *model.Song {
	for _, s := range c.Songs {
		if s.HasPath(path) {
			return s
		}
	}
	return nil
}

func (c *AlbumContext) compiledParser() (*pattern.Parser, error) {
	if c.FilenameMetadataPattern == "" {
		return nil, nil
	}
	if c.parser == nil {
		p, err := pattern.Compile(c.FilenameMetadataPattern)
		if err != nil {
			return nil, err
		}
		c.parser = p
	}
	return c.parser, nil
}

// ParseFilename applies the context's pattern to filename and maps the named
// fields into a TrackMetadata. Releases defaults to the context title when
// the pattern yields no album field. On no-match (or no pattern) the result
// carries only the path.
func (c *AlbumContext) ParseFilename(filename string) model.TrackMetadata {
	meta := model.NewTrackMetadata(filename)

	p, err := c.compiledParser()
	if err != nil {
		// Validate catches this on load; a context built in-process with a
		// bad pattern still degrades to a path-only record.
		log.Printf("[WARN] albumctx: pattern for %s does not compile: %v", c.Path, err)
		return meta
	}
	if p == nil {
		if c.Title != "" {
			meta.Releases = []string{c.Title}
		}
		return meta
	}

	fields := p.Parse(filename)
	if fields == nil {
		log.Printf("[INFO] albumctx: could not parse filename %q with pattern %q", filename, c.FilenameMetadataPattern)
		return meta
	}

	if title := firstField(fields, "title"); title != "" {
		meta.Title = title
		meta.ParsedTitle = title
	}
	if artists := firstField(fields, "artist", "artists", "artistname", "artistnames"); artists != "" {
		meta.Artists = strings.Join(model.SplitArtists(artists), ", ")
	}
	if track := firstField(fields, "track", "trackno"); track != "" {
		if n, err := strconv.Atoi(track); err == nil {
			meta.TrackNumber = n
			meta.ParsedTrack = n
		} else {
			log.Printf("[WARN] albumctx: track field %q in %q is not numeric", track, filename)
		}
	}

	if c.Title != "" {
		meta.Releases = []string{c.Title}
	} else if album := firstField(fields, "album", "release"); album != "" {
		meta.Releases = []string{strings.TrimSpace(album)}
	}
	return meta
}

func firstField(fields map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(fields[key]); v != "" {
			return v
		}
	}
	return ""
}
