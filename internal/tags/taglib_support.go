// file: internal/tags/taglib_support.go
// version: 1.2.0
// guid: 4f5a6b7c-8d9e-0f1a-2b3c-4d5e6f7a8b9c

//go:build taglib
// +build taglib

// TagLib native writer support (optional via build tag 'taglib'). Default
// build without the tag excludes this file.

package tags

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	taglib "go.senan.xyz/taglib"

	"github.com/tunevault/tunevault/internal/fileops"
	"github.com/tunevault/tunevault/internal/model"
)

// taglibAvailable indicates native taglib path compiled in
var taglibAvailable = true

// WriteBack writes the resolved metadata into path's native tags using
// TagLib. Only populated fields are written; existing tags for other keys
// are left alone. The file is backed up first and restored if the write
// fails, so a crash mid-write never corrupts the audio file.
func WriteBack(path string, meta model.TrackMetadata) error {
	abs, _ := filepath.Abs(path)

	out := make(map[string][]string)
	if meta.Title != "" {
		out[taglib.Title] = []string{meta.Title}
	}
	if artists := model.SplitArtists(meta.Artists); len(artists) > 0 {
		out[taglib.Artist] = artists
	}
	if len(meta.Releases) > 0 {
		out[taglib.Album] = []string{meta.Releases[0]}
	}
	if len(meta.Tags) > 0 {
		out[taglib.Genre] = meta.Tags
	}
	if meta.TrackNumber > 0 {
		out[taglib.TrackNumber] = []string{strconv.Itoa(meta.TrackNumber)}
	}

	if len(out) == 0 {
		return fmt.Errorf("no writable metadata for %s", path)
	}

	guard, err := fileops.BeginEdit(abs)
	if err != nil {
		return fmt.Errorf("failed to back up %s before tag write: %w", path, err)
	}
	if err := taglib.WriteTags(abs, out, 0); err != nil {
		if rbErr := guard.Rollback(); rbErr != nil {
			log.Printf("[ERROR] tags: could not restore %s after failed write: %v", path, rbErr)
		}
		return fmt.Errorf("taglib write failed for %s: %w", path, err)
	}
	return guard.Commit()
}
