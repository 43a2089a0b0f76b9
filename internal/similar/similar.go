// file: internal/similar/similar.go
// version: 1.0.0
// guid: 2510a7fb-c235-4948-bedd-2c2e62a9b27a

// Package similar finds acoustically similar songs. Each analyzed song's MFCC
// mean vector is stored as an embedding in a chromem collection; similarity is
// cosine distance over those vectors. Songs that were never analyzed carry no
// vector and simply do not participate.
package similar

import (
	"context"
	"fmt"
	"math"

	"github.com/philippgille/chromem-go"

	"github.com/tunevault/tunevault/internal/model"
)

const collectionName = "songs"

// ErrNoFeatures is returned when a song has no MFCC vector to compare.
var ErrNoFeatures = fmt.Errorf("song has no analysis features")

// Neighbor is one similarity hit.
type Neighbor struct {
	SongID     string  `json:"song_id"`
	Similarity float32 `json:"similarity"` // cosine similarity, higher is closer
}

// Store holds the vector collection.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an in-memory store.
func New() (*Store, error) {
	db := chromem.NewDB()
	return newStore(db)
}

// Open creates a store persisted under dir.
func Open(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open similarity store %s: %w", dir, err)
	}
	return newStore(db)
}

func newStore(db *chromem.DB) (*Store, error) {
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open similarity collection: %w", err)
	}
	return &Store{db: db, col: col}, nil
}

// Add stores the song's MFCC vector. Songs without one return ErrNoFeatures.
func (s *Store) Add(ctx context.Context, song *model.Song) error {
	if len(song.Metadata.MfccMean) == 0 {
		return ErrNoFeatures
	}
	doc := chromem.Document{
		ID:        song.ID,
		Embedding: unit(song.Metadata.MfccMean),
		Metadata: map[string]string{
			"title": song.Metadata.Title,
			"path":  song.Metadata.Path,
		},
		Content: song.Metadata.Title,
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store vector for song %s: %w", song.ID, err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *Store) Count() int {
	return s.col.Count()
}

// Similar returns up to n songs closest to the given one, excluding itself.
func (s *Store) Similar(ctx context.Context, song *model.Song, n int) ([]Neighbor, error) {
	if len(song.Metadata.MfccMean) == 0 {
		return nil, ErrNoFeatures
	}
	if n <= 0 {
		n = 10
	}

	// Ask for one extra so dropping the song itself still yields n.
	want := n + 1
	if count := s.col.Count(); want > count {
		want = count
	}
	if want == 0 {
		return nil, nil
	}

	results, err := s.col.QueryEmbedding(ctx, unit(song.Metadata.MfccMean), want, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity query for song %s failed: %w", song.ID, err)
	}

	neighbors := make([]Neighbor, 0, n)
	for _, res := range results {
		if res.ID == song.ID {
			continue
		}
		neighbors = append(neighbors, Neighbor{SongID: res.ID, Similarity: res.Similarity})
		if len(neighbors) == n {
			break
		}
	}
	return neighbors, nil
}

// unit converts to float32 and scales to unit length, which chromem expects
// for cosine similarity.
func unit(v []float64) []float32 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}
