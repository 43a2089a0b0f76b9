// file: internal/library/resolve.go
// version: 1.4.0
// guid: 4d5e6f7a-8b9c-0d1e-2f3a-4b5c6d7e8f9a

package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/analysis"
	"github.com/tunevault/tunevault/internal/metrics"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
)

// Status classifies a per-file resolution outcome.
type Status string

const (
	// StatusResolved means a new song was constructed for the file.
	StatusResolved Status = "resolved"
	// StatusDuplicate means the fingerprint matched an existing song; the
	// path was added to it.
	StatusDuplicate Status = "duplicate"
	// StatusKnown means the path was already recorded in its album context
	// and nothing was re-fingerprinted.
	StatusKnown Status = "known"
	// StatusInvalid means the file is empty or not audio; it was skipped
	// and recorded in the failure ledger.
	StatusInvalid Status = "invalid"
)

// Resolution is the outcome of processing one file. Song is nil only for
// StatusInvalid.
type Resolution struct {
	Status Status
	Song   *model.Song
}

// UnexpectedExtractionError reports a file the audio probe accepts but the
// fingerprint extractor cannot handle. It indicates a tooling problem and is
// never skipped silently.
type UnexpectedExtractionError struct {
	Path string
	Err  error
}

func (e *UnexpectedExtractionError) Error() string {
	return fmt.Sprintf("%s appears to be valid audio but fingerprinting failed: %v", e.Path, e.Err)
}

func (e *UnexpectedExtractionError) Unwrap() error { return e.Err }

// ProcessFile resolves one file to a song. The file must exist; an empty
// file is invalid rather than an error. Cache and album-context mutations
// only happen after a song is fully constructed.
func (s *Session) ProcessFile(ctx context.Context, path string) (Resolution, error) {
	start := time.Now()
	defer func() { metrics.ObserveResolveDuration(time.Since(start)) }()

	info, err := os.Stat(path)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		log.Printf("[WARN] library: %s is empty, skipping", path)
		s.Failures.Add(path)
		metrics.IncFileProcessed(string(StatusInvalid))
		return Resolution{Status: StatusInvalid}, nil
	}

	album, err := s.resolveAlbum(path)
	if err != nil {
		return Resolution{}, err
	}

	// Short-circuit: a path the context already lists is never
	// re-fingerprinted and consults no oracle.
	if song := album.SongForPath(path); song != nil {
		s.recordFile(path, album)
		s.adopt(song)
		metrics.IncFileProcessed(string(StatusKnown))
		return Resolution{Status: StatusKnown, Song: song}, nil
	}

	duration, fp, err := s.Extract.Extract(ctx, path)
	if err != nil {
		if s.Probe != nil && s.Probe.IsAudio(ctx, path) {
			return Resolution{}, &UnexpectedExtractionError{Path: path, Err: err}
		}
		log.Printf("[WARN] library: %s is not valid audio, skipping: %v", path, err)
		s.Failures.Add(path)
		metrics.IncFileProcessed(string(StatusInvalid))
		return Resolution{Status: StatusInvalid}, nil
	}

	if song := s.SongForFingerprint(fp); song != nil {
		song.AddPath(path)
		s.recordFile(path, album)
		if err := s.Albums.RecordSong(album, song); err != nil {
			return Resolution{}, err
		}
		log.Printf("[INFO] library: %s duplicates song %s", path, song.ID)
		metrics.IncFileProcessed(string(StatusDuplicate))
		return Resolution{Status: StatusDuplicate, Song: song}, nil
	}

	meta, err := s.buildMetadata(ctx, album, path, duration, fp)
	if err != nil {
		return Resolution{}, err
	}

	song := model.NewSong(meta, album.ID)
	canonical, inserted := s.publish(fp, song)
	if !inserted {
		// Another resolution won the fingerprint; fold this path in.
		canonical.AddPath(path)
		song = canonical
	}
	s.recordFile(path, album)
	if err := s.Albums.RecordSong(album, song); err != nil {
		return Resolution{}, err
	}

	status := StatusResolved
	if !inserted {
		status = StatusDuplicate
	}
	metrics.IncFileProcessed(string(status))
	metrics.SetSongs(s.SongCount())
	return Resolution{Status: status, Song: song}, nil
}

// resolveAlbum resolves path's album context, offering discard-and-recreate
// when the persisted context is corrupt. A declined (or unanswerable) offer
// propagates the corruption, so the run aborts rather than guessing a merged
// state from a broken file.
func (s *Session) resolveAlbum(path string) (*albumctx.AlbumContext, error) {
	album, err := s.Albums.Resolve(path)
	if err == nil {
		return album, nil
	}
	var corrupt *albumctx.CorruptContextError
	if !errors.As(err, &corrupt) || s.ConfirmDiscard == nil || !s.ConfirmDiscard(corrupt) {
		return nil, err
	}
	log.Printf("[WARN] library: discarding corrupt album context %s", corrupt.Path)
	if err := s.Albums.Discard(path); err != nil {
		return nil, err
	}
	return s.Albums.Resolve(path)
}

// buildMetadata assembles the combined record from the base
// (path/duration/fingerprint), the filename-derived record, and the embedded
// tags, then best-effort enriches it with the remote match and acoustic
// features.
func (s *Session) buildMetadata(ctx context.Context, album *albumctx.AlbumContext, path string, duration float64, fp string) (model.TrackMetadata, error) {
	base := model.NewTrackMetadata(path)
	base.Duration = duration
	base.Fingerprint = fp

	albumMeta := album.ParseFilename(path)

	extracted := model.NewTrackMetadata(path)
	if s.ReadTags != nil {
		if m, err := s.ReadTags(path); err != nil {
			log.Printf("[WARN] library: tag read failed for %s: %v", path, err)
		} else {
			extracted = m
		}
	}

	order := album.DefaultOrder
	if !order.Valid() && s.DefaultOrder.Valid() {
		order = s.DefaultOrder
	}
	if !order.Valid() {
		choice, err := s.Oracle.ChooseMergePolicy(oracle.MergePolicyRequest{
			Path:      path,
			Album:     albumMeta,
			Extracted: extracted,
		})
		if err != nil {
			return model.TrackMetadata{}, fmt.Errorf("merge policy choice failed for %s: %w", path, err)
		}
		metrics.IncOracleCall("merge_policy")
		order = choice.Order.Normalize()
		if choice.Remember {
			if err := s.Albums.SetDefaultOrder(album, order); err != nil {
				return model.TrackMetadata{}, err
			}
		}
	}

	combined, err := order.Combine(albumMeta, extracted)
	if err != nil {
		return model.TrackMetadata{}, err
	}
	combined, err = model.Merge(combined, base, model.ValueSelf, model.ListMerge)
	if err != nil {
		return model.TrackMetadata{}, err
	}

	if s.Identify != nil {
		metrics.IncLookup()
		match, err := s.Identify.Identify(ctx, path, combined.Title, fp, duration)
		if err != nil {
			// Lookup failures (including timeouts) are normal; the record
			// stays local-only.
			metrics.IncLookupFailure()
			log.Printf("[WARN] library: %v", err)
		} else if match != nil {
			combined, err = model.Merge(combined, match.Fragment(path), model.ValueSelf, model.ListMerge)
			if err != nil {
				return model.TrackMetadata{}, err
			}
		}
	}

	if s.Analyze != nil {
		if features, err := s.Analyze.Analyze(ctx, path); err != nil {
			log.Printf("[WARN] library: analysis failed for %s: %v", path, err)
		} else {
			analysis.Apply(&combined, features)
		}
	}

	return combined, nil
}

// adopt re-seats a song loaded from a persisted album context into the
// fingerprint cache, so later files with the same fingerprint dedup against
// it.
func (s *Session) adopt(song *model.Song) {
	if song.Fingerprint == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.songs[song.Fingerprint]; !ok {
		s.songs[song.Fingerprint] = song
	}
}
