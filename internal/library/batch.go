// file: internal/library/batch.go
// version: 1.3.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2e

package library

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/metrics"
)

// Report summarizes one batch run.
type Report struct {
	Processed  int
	Resolved   int
	Duplicates int
	Known      int
	Invalid    int
	Failed     int
	SkippedBad int // skipped because the failure ledger listed them

	FailedPaths []string
}

// FileHook observes each processed file; used by the CLI for progress
// output. err is nil unless the file failed non-fatally.
type FileHook func(path string, res Resolution, err error)

// ProcessDirectory walks root in traversal order and resolves every audio
// file, one at a time. One file's failure never aborts the batch; it is
// recorded in the ledger and the run continues. Two exceptions abort loudly
// and are never ledgered: an UnexpectedExtractionFailure, which indicates
// broken tooling, and an undiscarded corrupt album context, where skipping
// would quietly orphan every file in the directory. The ledger is rewritten
// before returning.
func (s *Session) ProcessDirectory(ctx context.Context, root string, hook FileHook) (Report, error) {
	var report Report

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !albumctx.IsAudioPath(path) {
			return nil
		}
		if s.Failures.Contains(path) {
			log.Printf("[INFO] library: skipping known-bad file %s", path)
			report.SkippedBad++
			return nil
		}

		report.Processed++
		res, err := s.ProcessFile(ctx, path)
		if err != nil {
			var fatal *UnexpectedExtractionError
			if errors.As(err, &fatal) {
				return err
			}
			var corrupt *albumctx.CorruptContextError
			if errors.As(err, &corrupt) {
				return err
			}
			log.Printf("[ERROR] library: failed to process %s: %v", path, err)
			s.Failures.Add(path)
			report.Failed++
			report.FailedPaths = append(report.FailedPaths, path)
			if hook != nil {
				hook(path, Resolution{}, err)
			}
			return nil
		}

		switch res.Status {
		case StatusResolved:
			report.Resolved++
		case StatusDuplicate:
			report.Duplicates++
		case StatusKnown:
			report.Known++
		case StatusInvalid:
			report.Invalid++
			report.FailedPaths = append(report.FailedPaths, path)
		}
		if hook != nil {
			hook(path, res, nil)
		}
		return nil
	})

	metrics.SetSongs(s.SongCount())
	metrics.SetAlbums(len(s.Albums.Cached()))
	metrics.SetFailedFiles(s.Failures.Len())

	if err := s.Failures.Save(); err != nil {
		log.Printf("[ERROR] library: %v", err)
		if walkErr == nil {
			walkErr = err
		}
	}
	return report, walkErr
}
