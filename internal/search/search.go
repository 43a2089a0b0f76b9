// file: internal/search/search.go
// version: 1.0.0
// guid: 8857e447-8496-41e9-9cb3-35849185a2ba

// Package search maintains a full-text index over resolved songs. Bleve
// answers analyzed queries over title, artists, releases, and tags; when a
// query produces no hits a fuzzy pass over the indexed titles catches typos
// the analyzer cannot. The index is derived data and can be rebuilt from the
// catalog at any time.
package search

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tunevault/tunevault/internal/model"
)

// DefaultLimit caps search results when the caller passes limit <= 0.
const DefaultLimit = 25

// document is the shape fed to bleve for each song.
type document struct {
	Title    string   `json:"title"`
	Artists  string   `json:"artists"`
	Releases []string `json:"releases"`
	Tags     []string `json:"tags"`
	Path     string   `json:"path"`
}

// Result is one search hit.
type Result struct {
	SongID string  `json:"song_id"`
	Score  float64 `json:"score"`
	Fuzzy  bool    `json:"fuzzy,omitempty"`
}

// Index wraps a bleve index plus the title table the fuzzy fallback ranks.
type Index struct {
	idx    bleve.Index
	titles map[string]string // song id -> folded title
}

func buildMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()
	keywordField := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", textField)
	doc.AddFieldMappingsAt("artists", textField)
	doc.AddFieldMappingsAt("releases", textField)
	doc.AddFieldMappingsAt("tags", textField)
	doc.AddFieldMappingsAt("path", keywordField)

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = doc
	return mapping
}

// Open opens the index at path, creating it when absent. The fuzzy title
// table only covers songs indexed in this process; callers holding a full
// catalog should re-feed it through IndexAll after reopening.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open search index %s: %w", path, err)
		}
		return &Index{idx: idx, titles: make(map[string]string)}, nil
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index %s: %w", path, err)
	}
	return &Index{idx: idx, titles: make(map[string]string)}, nil
}

// OpenMemory creates a throwaway in-memory index.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory search index: %w", err)
	}
	return &Index{idx: idx, titles: make(map[string]string)}, nil
}

// Close closes the underlying index.
func (ix *Index) Close() error {
	return ix.idx.Close()
}

// IndexSong adds or replaces one song.
func (ix *Index) IndexSong(song *model.Song) error {
	doc := document{
		Title:    song.Metadata.Title,
		Artists:  song.Metadata.Artists,
		Releases: song.Metadata.Releases,
		Tags:     song.Metadata.Tags,
		Path:     song.Metadata.Path,
	}
	if err := ix.idx.Index(song.ID, doc); err != nil {
		return fmt.Errorf("failed to index song %s: %w", song.ID, err)
	}
	ix.titles[song.ID] = Fold(song.Metadata.Title)
	return nil
}

// IndexAll batches the whole catalog in.
func (ix *Index) IndexAll(songs []*model.Song) error {
	batch := ix.idx.NewBatch()
	for _, song := range songs {
		doc := document{
			Title:    song.Metadata.Title,
			Artists:  song.Metadata.Artists,
			Releases: song.Metadata.Releases,
			Tags:     song.Metadata.Tags,
			Path:     song.Metadata.Path,
		}
		if err := batch.Index(song.ID, doc); err != nil {
			return fmt.Errorf("failed to batch song %s: %w", song.ID, err)
		}
		ix.titles[song.ID] = Fold(song.Metadata.Title)
	}
	if err := ix.idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit search batch: %w", err)
	}
	return nil
}

// Delete removes one song from the index.
func (ix *Index) Delete(songID string) error {
	delete(ix.titles, songID)
	return ix.idx.Delete(songID)
}

// Count returns the number of indexed songs.
func (ix *Index) Count() (uint64, error) {
	return ix.idx.DocCount()
}

// Search runs an analyzed query over the indexed fields. When bleve finds
// nothing, a fuzzy ranking over folded titles is tried so near-miss queries
// ("vicotria") still land.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	match := bleve.NewMatchQuery(query)
	prefix := bleve.NewPrefixQuery(strings.ToLower(query))
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(match, prefix), limit, 0, false)

	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", query, err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{SongID: hit.ID, Score: hit.Score})
	}
	if len(results) > 0 {
		return results, nil
	}

	log.Printf("[DEBUG] search: no index hits for %q, trying fuzzy titles", query)
	return ix.fuzzyTitles(query, limit), nil
}

// fuzzyTitles ranks folded titles by edit distance against the folded query.
func (ix *Index) fuzzyTitles(query string, limit int) []Result {
	folded := Fold(query)
	if folded == "" {
		return nil
	}

	type ranked struct {
		id       string
		distance int
	}
	var hits []ranked
	for id, title := range ix.titles {
		rank := fuzzy.RankMatchNormalizedFold(folded, title)
		if rank < 0 {
			continue
		}
		hits = append(hits, ranked{id: id, distance: rank})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		// Map edit distance into a descending pseudo-score.
		results = append(results, Result{SongID: h.id, Score: 1.0 / float64(1+h.distance), Fuzzy: true})
	}
	return results
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics so "Björk" and "bjork" compare equal.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
