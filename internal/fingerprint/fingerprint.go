// file: internal/fingerprint/fingerprint.go
// version: 1.2.0
// guid: 0b1c2d3e-4f5a-6b7c-8d9e-0f1a2b3c4d5e

// Package fingerprint produces Chromaprint audio fingerprints by shelling out
// to fpcalc, with an ffprobe check to tell corrupt files apart from files
// that are not audio at all.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"
)

// DefaultBinary is the fpcalc executable looked up on PATH when no explicit
// path is configured.
const DefaultBinary = "fpcalc"

// DefaultProbeBinary is the ffprobe executable used for the validity check.
const DefaultProbeBinary = "ffprobe"

// DefaultTimeout bounds a single fpcalc or ffprobe invocation.
const DefaultTimeout = 30 * time.Second

// Extractor computes an audio fingerprint and duration for a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (duration float64, fingerprint string, err error)
}

// Prober reports whether a file contains a decodable audio stream.
type Prober interface {
	IsAudio(ctx context.Context, path string) bool
}

// GenerationError reports that fpcalc ran but produced no usable fingerprint.
type GenerationError struct {
	Path string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("fingerprint generation failed for %s: %v", e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Fpcalc is the production Extractor and Prober, backed by the Chromaprint
// fpcalc tool and ffmpeg's ffprobe.
type Fpcalc struct {
	Binary      string
	ProbeBinary string
	Timeout     time.Duration
}

// NewFpcalc creates an extractor using the given fpcalc path, or the PATH
// default when empty.
func NewFpcalc(binary string) *Fpcalc {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Fpcalc{Binary: binary, ProbeBinary: DefaultProbeBinary, Timeout: DefaultTimeout}
}

// fpcalcOutput matches the JSON emitted by `fpcalc -json`.
type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

// Extract runs `fpcalc -json` on path and returns the decoded duration and
// compressed fingerprint. A run that succeeds but yields an empty fingerprint
// or zero duration is still a *GenerationError.
func (f *Fpcalc) Extract(ctx context.Context, path string) (float64, string, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, f.Binary, "-json", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, "", &GenerationError{Path: path, Err: fmt.Errorf("%s: %w (%s)", f.Binary, err, bytes.TrimSpace(stderr.Bytes()))}
	}

	var out fpcalcOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, "", &GenerationError{Path: path, Err: fmt.Errorf("unparseable fpcalc output: %w", err)}
	}
	if out.Fingerprint == "" {
		return 0, "", &GenerationError{Path: path, Err: fmt.Errorf("fpcalc produced no fingerprint")}
	}
	if out.Duration <= 0 {
		return 0, "", &GenerationError{Path: path, Err: fmt.Errorf("fpcalc produced no duration")}
	}

	log.Printf("[DEBUG] fingerprint: %s -> %.1fs, %d chars", path, out.Duration, len(out.Fingerprint))
	return out.Duration, out.Fingerprint, nil
}

// probeOutput matches the subset of `ffprobe -of json` we ask for.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// IsAudio runs ffprobe restricted to audio streams and reports whether any
// were found. Probe failures count as "not audio": a file ffprobe cannot read
// is not something fpcalc could have fingerprinted either.
func (f *Fpcalc) IsAudio(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); err != nil {
		log.Printf("[WARN] fingerprint: probe target missing: %s", path)
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, f.ProbeBinary,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "json",
		path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Printf("[INFO] fingerprint: %s is invalid or corrupted: %v (%s)", path, err, bytes.TrimSpace(stderr.Bytes()))
		return false
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		log.Printf("[WARN] fingerprint: unparseable ffprobe output for %s: %v", path, err)
		return false
	}
	if len(out.Streams) == 0 {
		log.Printf("[INFO] fingerprint: %s does not contain an audio stream", path)
		return false
	}
	return true
}

func (f *Fpcalc) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultTimeout
}
