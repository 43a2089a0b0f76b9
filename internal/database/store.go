// file: internal/database/store.go
// version: 1.2.0
// guid: 8a9b0c1d-2e3f-4a5b-6c7d-8e9f0a1b2c3d

// Package database is the optional secondary catalog store: resolved songs
// and album contexts indexed for fast lookup, backed by PebbleDB (default)
// or SQLite3 (opt-in). The per-directory album_meta.json files remain the
// source of truth; the store is rebuildable from them.
package database

import (
	"errors"
	"fmt"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the catalog operations.
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Lifecycle
	Close() error
	Reset() error

	// Songs
	PutSong(song *model.Song) error
	GetSongByID(id string) (*model.Song, error)
	GetSongByFingerprint(fingerprint string) (*model.Song, error)
	GetSongByPath(path string) (*model.Song, error)
	AllSongs() ([]*model.Song, error)
	DeleteSong(id string) error
	CountSongs() (int, error)

	// Album contexts
	PutAlbumContext(album *albumctx.AlbumContext) error
	GetAlbumContext(id string) (*albumctx.AlbumContext, error)
	AllAlbumContexts() ([]*albumctx.AlbumContext, error)
	CountAlbumContexts() (int, error)

	// Settings
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Open creates a store of the given type ("pebble" or "sqlite") at path.
// An empty type selects pebble.
func Open(storeType, path string) (Store, error) {
	switch storeType {
	case "", "pebble":
		return NewPebbleStore(path)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown database type %q (want pebble or sqlite)", storeType)
	}
}
