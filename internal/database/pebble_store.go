// file: internal/database/pebble_store.go
// version: 1.3.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble/v2"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/model"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - song:<id>             -> Song JSON
// - song:fp:<fingerprint> -> song_id (for dedup lookups)
// - song:path:<path>      -> song_id (for path lookups)
// - album:<id>            -> AlbumContext JSON
// - setting:<key>         -> value
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Reset removes every record.
func (p *PebbleStore) Reset() error {
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("failed to iterate for reset: %w", err)
	}
	batch := p.db.NewBatch()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			iter.Close()
			batch.Close()
			return err
		}
	}
	if err := iter.Close(); err != nil {
		batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

func iterOptions(prefix string) *pebble.IterOptions {
	lower := []byte(prefix)
	return &pebble.IterOptions{
		LowerBound: lower,
		UpperBound: append(append([]byte(nil), lower...), 0xFF),
	}
}

func (p *PebbleStore) get(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// PutSong writes the song and its fingerprint and path indexes in one batch.
func (p *PebbleStore) PutSong(song *model.Song) error {
	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("failed to serialize song %s: %w", song.ID, err)
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte("song:"+song.ID), data, nil); err != nil {
		return err
	}
	if song.Fingerprint != "" {
		if err := batch.Set([]byte("song:fp:"+song.Fingerprint), []byte(song.ID), nil); err != nil {
			return err
		}
	}
	for _, path := range song.FilePaths {
		if err := batch.Set([]byte("song:path:"+path), []byte(song.ID), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// GetSongByID returns the song with the given ULID.
func (p *PebbleStore) GetSongByID(id string) (*model.Song, error) {
	data, err := p.get("song:" + id)
	if err != nil {
		return nil, err
	}
	var song model.Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("failed to parse song %s: %w", id, err)
	}
	return &song, nil
}

// GetSongByFingerprint follows the fingerprint index.
func (p *PebbleStore) GetSongByFingerprint(fingerprint string) (*model.Song, error) {
	id, err := p.get("song:fp:" + fingerprint)
	if err != nil {
		return nil, err
	}
	return p.GetSongByID(string(id))
}

// GetSongByPath follows the path index.
func (p *PebbleStore) GetSongByPath(path string) (*model.Song, error) {
	id, err := p.get("song:path:" + path)
	if err != nil {
		return nil, err
	}
	return p.GetSongByID(string(id))
}

// AllSongs returns every song, ordered by id.
func (p *PebbleStore) AllSongs() ([]*model.Song, error) {
	iter, err := p.db.NewIter(iterOptions("song:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var songs []*model.Song
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		// Skip the index keys sharing the prefix.
		if strings.HasPrefix(key, "song:fp:") || strings.HasPrefix(key, "song:path:") {
			continue
		}
		var song model.Song
		if err := json.Unmarshal(iter.Value(), &song); err != nil {
			return nil, fmt.Errorf("failed to parse song at %s: %w", key, err)
		}
		songs = append(songs, &song)
	}
	return songs, nil
}

// DeleteSong removes the song and its indexes. Unknown ids are a no-op.
func (p *PebbleStore) DeleteSong(id string) error {
	song, err := p.GetSongByID(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete([]byte("song:"+id), nil); err != nil {
		return err
	}
	if song.Fingerprint != "" {
		if err := batch.Delete([]byte("song:fp:"+song.Fingerprint), nil); err != nil {
			return err
		}
	}
	for _, path := range song.FilePaths {
		if err := batch.Delete([]byte("song:path:"+path), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// CountSongs counts stored songs.
func (p *PebbleStore) CountSongs() (int, error) {
	songs, err := p.AllSongs()
	if err != nil {
		return 0, err
	}
	return len(songs), nil
}

// PutAlbumContext writes an album context by id.
func (p *PebbleStore) PutAlbumContext(album *albumctx.AlbumContext) error {
	data, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("failed to serialize album context %s: %w", album.ID, err)
	}
	return p.db.Set([]byte("album:"+album.ID), data, pebble.Sync)
}

// GetAlbumContext returns one album context.
func (p *PebbleStore) GetAlbumContext(id string) (*albumctx.AlbumContext, error) {
	data, err := p.get("album:" + id)
	if err != nil {
		return nil, err
	}
	var album albumctx.AlbumContext
	if err := json.Unmarshal(data, &album); err != nil {
		return nil, fmt.Errorf("failed to parse album context %s: %w", id, err)
	}
	return &album, nil
}

// AllAlbumContexts returns every stored album context, ordered by id.
func (p *PebbleStore) AllAlbumContexts() ([]*albumctx.AlbumContext, error) {
	iter, err := p.db.NewIter(iterOptions("album:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var albums []*albumctx.AlbumContext
	for iter.First(); iter.Valid(); iter.Next() {
		var album albumctx.AlbumContext
		if err := json.Unmarshal(iter.Value(), &album); err != nil {
			return nil, fmt.Errorf("failed to parse album context at %s: %w", iter.Key(), err)
		}
		albums = append(albums, &album)
	}
	return albums, nil
}

// CountAlbumContexts counts stored album contexts.
func (p *PebbleStore) CountAlbumContexts() (int, error) {
	albums, err := p.AllAlbumContexts()
	if err != nil {
		return 0, err
	}
	return len(albums), nil
}

// GetSetting returns a setting value.
func (p *PebbleStore) GetSetting(key string) (string, error) {
	data, err := p.get("setting:" + key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetSetting writes a setting value.
func (p *PebbleStore) SetSetting(key, value string) error {
	return p.db.Set([]byte("setting:"+key), []byte(value), pebble.Sync)
}
