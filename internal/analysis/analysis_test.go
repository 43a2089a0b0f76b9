// file: internal/analysis/analysis_test.go
// version: 1.2.0
// guid: 7c8d9e0f-1a2b-3c4d-5e6f-7a8b9c0d1e2f

package analysis

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevault/tunevault/internal/model"
)

func stubAnalyzer(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "analyzer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestAnalyzeParsesFeatures(t *testing.T) {
	bin := stubAnalyzer(t, `echo '{"sample_rate": 44100, "tempo": 128.5, "brightness": 2100.0, "mfcc_mean": [1.5, -2.0], "key": "F#", "energy": 0.15, "dynamic_range": 0.04, "zcr": 0.09}'`)

	f, err := NewExec(bin).Analyze(context.Background(), "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, 128.5, f.Tempo)
	assert.Equal(t, "F#", f.Key)
	assert.Equal(t, []float64{1.5, -2.0}, f.MfccMean)
}

func TestAnalyzeNoBinary(t *testing.T) {
	_, err := NewExec("").Analyze(context.Background(), "song.mp3")
	require.Error(t, err)
}

func TestAnalyzeToolFailure(t *testing.T) {
	bin := stubAnalyzer(t, `echo 'decode error' >&2; exit 2`)
	_, err := NewExec(bin).Analyze(context.Background(), "song.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer failed")
}

func TestApplyNormalizesMood(t *testing.T) {
	meta := model.NewTrackMetadata("song.mp3")
	Apply(&meta, Features{
		SampleRate:   44100,
		Tempo:        130,
		Brightness:   1500,
		MfccMean:     []float64{0.5},
		Key:          "A",
		Energy:       0.15,
		DynamicRange: 0.04,
		ZCR:          0.09,
	})

	assert.InDelta(t, 0.5, meta.Energy, 1e-9)  // 0.15 / 0.3
	assert.InDelta(t, 0.5, meta.Valence, 1e-9) // (1500/3000 + (130-60)/140) / 2
	assert.Equal(t, 44100.0, meta.SampleRate)
	assert.Equal(t, "A", meta.Key)
}

func TestApplyClampsExtremes(t *testing.T) {
	meta := model.NewTrackMetadata("song.mp3")
	Apply(&meta, Features{Tempo: 300, Brightness: 9000, Energy: 5})

	assert.Equal(t, 1.0, meta.Energy)
	assert.Equal(t, 1.0, meta.Valence)

	slow := model.NewTrackMetadata("slow.mp3")
	Apply(&slow, Features{Tempo: 40, Brightness: 0, Energy: 0})
	assert.Equal(t, 0.0, slow.Valence)
}
