// file: internal/tags/tags.go
// version: 1.2.0
// guid: 2d3e4f5a-6b7c-8d9e-0f1a-2b3c4d5e6f7a

// Package tags reads embedded audio metadata (ID3, Vorbis comments, MP4
// atoms) into track metadata. Reading is best-effort: a file with no or
// broken tags still yields a path-only record.
package tags

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tunevault/tunevault/internal/model"
)

// ErrTaglibUnavailable is returned by WriteBack in builds without the taglib
// build tag.
var ErrTaglibUnavailable = errors.New("taglib support not compiled in (build with -tags taglib)")

// WritingSupported reports whether this build can write tags back to files.
func WritingSupported() bool { return taglibAvailable }

// rawFallbacks maps format-native tag names to the canonical field they feed
// when the high-level accessors come back empty.
var rawFallbacks = map[string]string{
	// ID3 (MP3)
	"TIT2": "title", "TPE1": "artist", "TALB": "album",
	"TCON": "genre", "TRCK": "track", "TPE2": "albumartist",
	// Vorbis comments (FLAC, OGG)
	"TITLE": "title", "ARTIST": "artist", "ALBUM": "album",
	"GENRE": "genre", "TRACKNUMBER": "track", "ALBUMARTIST": "albumartist",
	// MP4 atoms (M4A)
	"\xa9nam": "title", "\xa9ART": "artist", "\xa9alb": "album",
	"\xa9gen": "genre", "trkn": "track", "aART": "albumartist",
}

// Extract reads path's embedded tags into a TrackMetadata. Unreadable or
// missing tags are not an error; the returned record then carries only the
// path. List-valued fields come back trimmed and deduplicated.
func Extract(path string) (model.TrackMetadata, error) {
	meta := model.NewTrackMetadata(path)

	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		log.Printf("[WARN] tags: could not read tags from %s: %v", path, err)
		return meta, nil
	}

	fields := map[string]string{
		"title":  strings.TrimSpace(m.Title()),
		"artist": strings.TrimSpace(m.Artist()),
		"album":  strings.TrimSpace(m.Album()),
		"genre":  strings.TrimSpace(m.Genre()),
	}
	if n, _ := m.Track(); n > 0 {
		fields["track"] = strconv.Itoa(n)
	}
	fillFromRaw(m.Raw(), fields)

	meta.Title = fields["title"]
	if fields["artist"] != "" {
		meta.Artists = strings.Join(model.SplitArtists(fields["artist"]), ", ")
	} else if fields["albumartist"] != "" {
		meta.Artists = strings.Join(model.SplitArtists(fields["albumartist"]), ", ")
	}
	if fields["album"] != "" {
		meta.Releases = []string{fields["album"]}
	}
	if fields["genre"] != "" {
		meta.Tags = normalizeTags(strings.Split(fields["genre"], ";"))
	}
	if fields["track"] != "" {
		if n, err := strconv.Atoi(strings.SplitN(fields["track"], "/", 2)[0]); err == nil {
			meta.TrackNumber = n
		}
	}
	return meta, nil
}

// fillFromRaw backfills empty canonical fields from the format-native tag
// map. Some encoders populate only the raw frames.
func fillFromRaw(raw map[string]interface{}, fields map[string]string) {
	for rawKey, field := range rawFallbacks {
		if fields[field] != "" {
			continue
		}
		value, ok := raw[rawKey]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			fields[field] = strings.TrimSpace(v)
		case int:
			fields[field] = strconv.Itoa(v)
		}
	}
}

// normalizeTags lowercases, trims and deduplicates a tag bag, preserving
// first-seen order.
func normalizeTags(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
