// file: internal/database/sqlite_store.go
// version: 1.10.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/model"
)

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		fingerprint TEXT UNIQUE,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS song_paths (
		path TEXT PRIMARY KEY,
		song_id TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_song_paths_song_id ON song_paths(song_id);

	CREATE TABLE IF NOT EXISTS album_contexts (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset removes every record.
func (s *SQLiteStore) Reset() error {
	_, err := s.db.Exec(`DELETE FROM song_paths; DELETE FROM songs; DELETE FROM album_contexts; DELETE FROM settings;`)
	return err
}

// PutSong upserts the song and rewrites its path index rows.
func (s *SQLiteStore) PutSong(song *model.Song) error {
	data, err := json.Marshal(song)
	if err != nil {
		return fmt.Errorf("failed to serialize song %s: %w", song.ID, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO songs (id, fingerprint, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fingerprint = excluded.fingerprint, data = excluded.data`,
		song.ID, nullable(song.Fingerprint), string(data),
	); err != nil {
		return fmt.Errorf("failed to upsert song %s: %w", song.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM song_paths WHERE song_id = ?`, song.ID); err != nil {
		return err
	}
	for _, path := range song.FilePaths {
		if _, err := tx.Exec(
			`INSERT INTO song_paths (path, song_id) VALUES (?, ?)
			 ON CONFLICT(path) DO UPDATE SET song_id = excluded.song_id`,
			path, song.ID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) scanSong(row *sql.Row) (*model.Song, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var song model.Song
	if err := json.Unmarshal([]byte(data), &song); err != nil {
		return nil, fmt.Errorf("failed to parse song row: %w", err)
	}
	return &song, nil
}

// GetSongByID returns the song with the given ULID.
func (s *SQLiteStore) GetSongByID(id string) (*model.Song, error) {
	return s.scanSong(s.db.QueryRow(`SELECT data FROM songs WHERE id = ?`, id))
}

// GetSongByFingerprint returns the song carrying fingerprint.
func (s *SQLiteStore) GetSongByFingerprint(fingerprint string) (*model.Song, error) {
	return s.scanSong(s.db.QueryRow(`SELECT data FROM songs WHERE fingerprint = ?`, fingerprint))
}

// GetSongByPath returns the song recorded at path.
func (s *SQLiteStore) GetSongByPath(path string) (*model.Song, error) {
	return s.scanSong(s.db.QueryRow(
		`SELECT songs.data FROM songs JOIN song_paths ON song_paths.song_id = songs.id WHERE song_paths.path = ?`,
		path))
}

// AllSongs returns every song, ordered by id.
func (s *SQLiteStore) AllSongs() ([]*model.Song, error) {
	rows, err := s.db.Query(`SELECT data FROM songs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*model.Song
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var song model.Song
		if err := json.Unmarshal([]byte(data), &song); err != nil {
			return nil, fmt.Errorf("failed to parse song row: %w", err)
		}
		songs = append(songs, &song)
	}
	return songs, rows.Err()
}

// DeleteSong removes the song and its path rows. Unknown ids are a no-op.
func (s *SQLiteStore) DeleteSong(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM song_paths WHERE song_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM songs WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CountSongs counts stored songs.
func (s *SQLiteStore) CountSongs() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

// PutAlbumContext upserts an album context.
func (s *SQLiteStore) PutAlbumContext(album *albumctx.AlbumContext) error {
	data, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("failed to serialize album context %s: %w", album.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO album_contexts (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		album.ID, string(data))
	return err
}

// GetAlbumContext returns one album context.
func (s *SQLiteStore) GetAlbumContext(id string) (*albumctx.AlbumContext, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM album_contexts WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var album albumctx.AlbumContext
	if err := json.Unmarshal([]byte(data), &album); err != nil {
		return nil, fmt.Errorf("failed to parse album context %s: %w", id, err)
	}
	return &album, nil
}

// AllAlbumContexts returns every stored album context, ordered by id.
func (s *SQLiteStore) AllAlbumContexts() ([]*albumctx.AlbumContext, error) {
	rows, err := s.db.Query(`SELECT data FROM album_contexts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*albumctx.AlbumContext
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var album albumctx.AlbumContext
		if err := json.Unmarshal([]byte(data), &album); err != nil {
			return nil, fmt.Errorf("failed to parse album context row: %w", err)
		}
		albums = append(albums, &album)
	}
	return albums, rows.Err()
}

// CountAlbumContexts counts stored album contexts.
func (s *SQLiteStore) CountAlbumContexts() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM album_contexts`).Scan(&n)
	return n, err
}

// GetSetting returns a setting value.
func (s *SQLiteStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting writes a setting value.
func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// nullable maps "" to NULL so the fingerprint UNIQUE constraint ignores
// songs without one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
