// file: internal/analysis/analysis.go
// version: 1.1.0
// guid: 6b7c8d9e-0f1a-2b3c-4d5e-6f7a8b9c0d1e

// Package analysis derives acoustic features (tempo, brightness, timbre,
// mood) for a track by delegating signal processing to an external analyzer
// tool. Analysis is strictly best-effort: tracks without features are still
// fully resolvable.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/tunevault/tunevault/internal/model"
)

// Mood-normalization constants. Raw RMS energy and spectral centroid are
// mapped onto 0..1 scales against typical popular-music ranges.
const (
	energyCeiling     = 0.3
	brightnessCeiling = 3000.0
	tempoFloor        = 60.0
	tempoRange        = 140.0
)

// DefaultTimeout bounds one analyzer invocation; full-track decoding and
// beat tracking are slow on long files.
const DefaultTimeout = 2 * time.Minute

// KeyNames are the pitch-class labels an analyzer may report.
var KeyNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Features holds the raw analyzer output. Energy and DynamicRange are RMS
// statistics before mood normalization.
type Features struct {
	SampleRate   float64   `json:"sample_rate"`
	Tempo        float64   `json:"tempo"`
	Brightness   float64   `json:"brightness"`
	MfccMean     []float64 `json:"mfcc_mean"`
	Key          string    `json:"key"`
	Energy       float64   `json:"energy"`
	DynamicRange float64   `json:"dynamic_range"`
	ZCR          float64   `json:"zcr"`
}

// Analyzer computes acoustic features for an audio file.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (Features, error)
}

// Exec shells out to an analyzer binary that prints a Features JSON object
// on stdout.
type Exec struct {
	Binary  string
	Timeout time.Duration
}

// NewExec creates an analyzer using the given binary. An empty binary
// disables analysis; Analyze then reports an error the caller treats as a
// missing-features condition.
func NewExec(binary string) *Exec {
	return &Exec{Binary: binary, Timeout: DefaultTimeout}
}

// Analyze runs the analyzer tool on path and decodes its JSON output.
func (e *Exec) Analyze(ctx context.Context, path string) (Features, error) {
	if e.Binary == "" {
		return Features{}, fmt.Errorf("no analyzer binary configured")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, e.Binary, "--json", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Features{}, fmt.Errorf("analyzer failed for %s: %w (%s)", path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var f Features
	if err := json.Unmarshal(stdout.Bytes(), &f); err != nil {
		return Features{}, fmt.Errorf("unparseable analyzer output for %s: %w", path, err)
	}
	log.Printf("[DEBUG] analysis: %s tempo=%.1f key=%s", path, f.Tempo, f.Key)
	return f, nil
}

// Apply writes features into meta, normalizing energy onto 0..1 and deriving
// valence from brightness and tempo.
func Apply(meta *model.TrackMetadata, f Features) {
	meta.SampleRate = f.SampleRate
	meta.Tempo = f.Tempo
	meta.Brightness = f.Brightness
	if len(f.MfccMean) > 0 {
		meta.MfccMean = append([]float64(nil), f.MfccMean...)
	}
	meta.Key = f.Key
	meta.Energy = clamp01(f.Energy / energyCeiling)
	meta.DynamicRange = f.DynamicRange
	meta.ZCR = f.ZCR
	meta.Valence = valence(f.Brightness, f.Tempo)
}

// valence estimates mood from brightness and tempo, each normalized onto
// 0..1 before averaging.
func valence(brightness, tempo float64) float64 {
	brightnessNorm := clamp01(brightness / brightnessCeiling)
	tempoNorm := clamp01((tempo - tempoFloor) / tempoRange)
	return (brightnessNorm + tempoNorm) / 2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
