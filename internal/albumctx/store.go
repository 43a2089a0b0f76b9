// file: internal/albumctx/store.go
// version: 1.4.0
// guid: 8f9a0b1c-2d3e-4f5a-6b7c-8d9e0f1a2b3c

package albumctx

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tunevault/tunevault/internal/fileops"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
)

// CorruptContextError reports an album_meta.json that exists but cannot be
// parsed or validated. The engine never guesses a merged state from a corrupt
// file; callers decide between Discard and aborting.
type CorruptContextError struct {
	Path string // the album_meta.json path
	Err  error
}

func (e *CorruptContextError) Error() string {
	return fmt.Sprintf("corrupt album context at %s: %v", e.Path, e.Err)
}

func (e *CorruptContextError) Unwrap() error { return e.Err }

// Store resolves directories to album contexts, consulting the naming oracle
// for directories seen for the first time. Contexts are cached per path for
// the run and written back eagerly on every mutation.
type Store struct {
	oracle oracle.Oracle
	cache  map[string]*AlbumContext
}

// NewStore creates a store backed by the given naming oracle.
func NewStore(o oracle.Oracle) *Store {
	return &Store{oracle: o, cache: make(map[string]*AlbumContext)}
}

// Resolve returns the album context for path's directory (path may be a file
// or the directory itself): from the run cache, from a persisted
// album_meta.json, or freshly created via the naming oracle.
func (s *Store) Resolve(path string) (*AlbumContext, error) {
	dir, sample := splitDirSample(path)

	if ctx, ok := s.cache[dir]; ok {
		return ctx, nil
	}

	metaPath := filepath.Join(dir, MetaFilename)
	if _, err := os.Stat(metaPath); err == nil {
		ctx, err := s.load(metaPath)
		if err != nil {
			return nil, err
		}
		s.cache[dir] = ctx
		return ctx, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", metaPath, err)
	}

	return s.create(dir, sample)
}

// Discard removes a persisted context so the next Resolve recreates it. Used
// after a CorruptContextError when the operator chooses recreation.
func (s *Store) Discard(dirOrFilePath string) error {
	dir, _ := splitDirSample(dirOrFilePath)
	delete(s.cache, dir)
	metaPath := filepath.Join(dir, MetaFilename)
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to discard %s: %w", metaPath, err)
	}
	log.Printf("[INFO] albumctx: discarded %s", metaPath)
	return nil
}

// RecordSong idempotently adds song to the context (by identifier) and
// persists immediately.
func (s *Store) RecordSong(ctx *AlbumContext, song *model.Song) error {
	for _, existing := range ctx.Songs {
		if existing.ID == song.ID {
			return nil
		}
	}
	ctx.Songs = append(ctx.Songs, song)
	return s.save(ctx)
}

// SetDefaultOrder records the directory's merge-source priority and persists
// immediately, so later files skip re-querying the oracle.
func (s *Store) SetDefaultOrder(ctx *AlbumContext, order model.SourceOrder) error {
	ctx.DefaultOrder = order.Normalize()
	return s.save(ctx)
}

// Save persists a context explicitly (normally unnecessary; mutating methods
// persist eagerly).
func (s *Store) Save(ctx *AlbumContext) error {
	return s.save(ctx)
}

// Cached returns the contexts loaded or created during this run, sorted by
// path for stable iteration.
func (s *Store) Cached() []*AlbumContext {
	out := make([]*AlbumContext, 0, len(s.cache))
	for _, ctx := range s.cache {
		out = append(out, ctx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Adopt inserts an already-validated context (e.g. from a library snapshot)
// into the run cache without touching disk.
func (s *Store) Adopt(ctx *AlbumContext) {
	s.cache[ctx.Path] = ctx
}

func (s *Store) load(metaPath string) (*AlbumContext, error) {
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", metaPath, err)
	}
	var ctx AlbumContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, &CorruptContextError{Path: metaPath, Err: err}
	}
	if err := ctx.Validate(); err != nil {
		return nil, &CorruptContextError{Path: metaPath, Err: err}
	}
	log.Printf("[INFO] albumctx: loaded context %q (%d songs) from %s", ctx.Title, len(ctx.Songs), metaPath)
	return &ctx, nil
}

func (s *Store) create(dir, sample string) (*AlbumContext, error) {
	naming, err := s.oracle.NameAlbum(oracle.AlbumNamingRequest{
		Dir:            dir,
		DefaultTitle:   filepath.Base(dir),
		SampleFilename: sample,
	})
	if err != nil {
		return nil, fmt.Errorf("naming oracle failed for %s: %w", dir, err)
	}

	ctx := &AlbumContext{
		ID:                      model.NewID(),
		Path:                    dir,
		Title:                   naming.Title,
		Artists:                 naming.Artists,
		FilenameMetadataPattern: naming.Pattern,
		CreatedAt:               time.Now(),
	}
	if ctx.Title == "" {
		ctx.Title = filepath.Base(dir)
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("oracle produced an invalid context for %s: %w", dir, err)
	}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	s.cache[ctx.Path] = ctx
	log.Printf("[INFO] albumctx: created context %q for %s", ctx.Title, dir)
	return ctx, nil
}

// save writes album_meta.json with write-validate-then-replace semantics: a
// serialization problem reports an error and leaves the previous file alone.
func (s *Store) save(ctx *AlbumContext) error {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize album context for %s: %w", ctx.Path, err)
	}
	metaPath := filepath.Join(ctx.Path, MetaFilename)
	validate := func(b []byte) error {
		var check AlbumContext
		if err := json.Unmarshal(b, &check); err != nil {
			return err
		}
		return check.Validate()
	}
	if err := fileops.WriteFileAtomic(metaPath, data, validate); err != nil {
		return fmt.Errorf("failed to persist album context: %w", err)
	}
	return nil
}

// splitDirSample maps a file-or-directory path to its context directory and a
// sample filename for oracle test-parsing. For a directory, the first audio
// file found serves as the sample.
func splitDirSample(path string) (dir, sample string) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path, firstAudioName(path)
	}
	return filepath.Dir(path), filepath.Base(path)
}

var audioExtensions = defaultAudioExtensions()

func defaultAudioExtensions() map[string]bool {
	return map[string]bool{
		".mp3": true, ".flac": true, ".ogg": true, ".m4a": true,
		".aac": true, ".wav": true, ".wma": true, ".opus": true,
	}
}

// SetAudioExtensions replaces the recognized audio extension set, normally
// from the supported_extensions config key. Entries are lower-cased and get
// a leading dot when missing; an empty list restores the defaults. Call
// before any resolution starts; the set is not guarded for concurrent
// mutation.
func SetAudioExtensions(exts []string) {
	if len(exts) == 0 {
		audioExtensions = defaultAudioExtensions()
		return
	}
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m[ext] = true
	}
	audioExtensions = m
}

// IsAudioPath reports whether path has a recognized audio extension.
func IsAudioPath(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

func firstAudioName(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && IsAudioPath(e.Name()) {
			return e.Name()
		}
	}
	return ""
}
