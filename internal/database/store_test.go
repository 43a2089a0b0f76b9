// file: internal/database/store_test.go
// version: 1.10.0
// guid: 9c0d1e2f-3a4b-5c6d-7e8f-9a0b1c2d3e4f

package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/model"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	pebbleStore, err := NewPebbleStore(filepath.Join(dir, "pebble"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		pebbleStore.Close()
		sqliteStore.Close()
	})
	return map[string]Store{"pebble": pebbleStore, "sqlite": sqliteStore}
}

func sampleSong(path string) *model.Song {
	meta := model.NewTrackMetadata(path)
	meta.Title = "Victoria"
	meta.Artists = "The Kinks"
	meta.Fingerprint = "fp-" + filepath.Base(path)
	return model.NewSong(meta, "")
}

func TestSongRoundTrip(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			song := sampleSong("/music/kinks/victoria.mp3")
			require.NoError(t, store.PutSong(song))

			byID, err := store.GetSongByID(song.ID)
			require.NoError(t, err)
			assert.Equal(t, song.ID, byID.ID)
			assert.Equal(t, "Victoria", byID.Metadata.Title)

			byFp, err := store.GetSongByFingerprint(song.Fingerprint)
			require.NoError(t, err)
			assert.Equal(t, song.ID, byFp.ID)

			byPath, err := store.GetSongByPath("/music/kinks/victoria.mp3")
			require.NoError(t, err)
			assert.Equal(t, song.ID, byPath.ID)

			n, err := store.CountSongs()
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestPutSongUpdatesPathIndex(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			song := sampleSong("/music/a.mp3")
			require.NoError(t, store.PutSong(song))

			song.FilePaths = append(song.FilePaths, "/music/copy of a.mp3")
			require.NoError(t, store.PutSong(song))

			byPath, err := store.GetSongByPath("/music/copy of a.mp3")
			require.NoError(t, err)
			assert.Equal(t, song.ID, byPath.ID)

			// Still one song, two paths.
			n, err := store.CountSongs()
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestDeleteSong(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			song := sampleSong("/music/b.mp3")
			require.NoError(t, store.PutSong(song))
			require.NoError(t, store.DeleteSong(song.ID))

			_, err := store.GetSongByID(song.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.GetSongByFingerprint(song.Fingerprint)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.GetSongByPath("/music/b.mp3")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting again is a no-op.
			assert.NoError(t, store.DeleteSong(song.ID))
		})
	}
}

func TestAllSongsSorted(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleSong("/music/one.mp3")
			second := sampleSong("/music/two.mp3")
			require.NoError(t, store.PutSong(second))
			require.NoError(t, store.PutSong(first))

			songs, err := store.AllSongs()
			require.NoError(t, err)
			require.Len(t, songs, 2)
			assert.Less(t, songs[0].ID, songs[1].ID)
		})
	}
}

func TestAlbumContextRoundTrip(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			album := &albumctx.AlbumContext{
				ID:           model.NewID(),
				Path:         "/music/kinks",
				Title:        "Arthur",
				Artists:      []string{"The Kinks"},
				Songs:        []*model.Song{},
				CreatedAt:    time.Now(),
				DefaultOrder: model.OrderAlbumThenExtract,
			}
			require.NoError(t, store.PutAlbumContext(album))

			got, err := store.GetAlbumContext(album.ID)
			require.NoError(t, err)
			assert.Equal(t, "Arthur", got.Title)
			assert.Equal(t, []string{"The Kinks"}, got.Artists)

			all, err := store.AllAlbumContexts()
			require.NoError(t, err)
			assert.Len(t, all, 1)

			n, err := store.CountAlbumContexts()
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, err = store.GetAlbumContext("missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSettings(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetSetting("default_order")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.SetSetting("default_order", "album_then_extracted"))
			require.NoError(t, store.SetSetting("default_order", "extracted_then_album"))

			got, err := store.GetSetting("default_order")
			require.NoError(t, err)
			assert.Equal(t, "extracted_then_album", got)
		})
	}
}

func TestReset(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.PutSong(sampleSong("/music/c.mp3")))
			require.NoError(t, store.SetSetting("k", "v"))
			require.NoError(t, store.Reset())

			n, err := store.CountSongs()
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			_, err = store.GetSetting("k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpenFactory(t *testing.T) {
	dir := t.TempDir()

	pebbleStore, err := Open("pebble", filepath.Join(dir, "p"))
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, pebbleStore)
	pebbleStore.Close()

	defaultStore, err := Open("", filepath.Join(dir, "d"))
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, defaultStore)
	defaultStore.Close()

	sqliteStore, err := Open("sqlite", filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	sqliteStore.Close()

	_, err = Open("mongodb", filepath.Join(dir, "m"))
	assert.Error(t, err)
}
