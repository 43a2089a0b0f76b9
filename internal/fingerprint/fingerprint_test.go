// file: internal/fingerprint/fingerprint_test.go
// version: 1.1.0
// guid: 1c2d3e4f-5a6b-7c8d-9e0f-1a2b3c4d5e6f

package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool writes an executable shell script standing in for fpcalc/ffprobe.
func stubTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o644))
	return path
}

func TestExtractParsesFpcalcJSON(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo '{"duration": 215.73, "fingerprint": "AQAA_test"}'`))

	duration, fp, err := f.Extract(context.Background(), audioFile(t))
	require.NoError(t, err)
	assert.InDelta(t, 215.73, duration, 0.001)
	assert.Equal(t, "AQAA_test", fp)
}

func TestExtractMissingFile(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo '{}'`))

	_, _, err := f.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"))
	require.Error(t, err)
	// A missing file is not a generation failure; the tool never ran.
	var genErr *GenerationError
	assert.NotErrorAs(t, err, &genErr)
}

func TestExtractToolFailure(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo 'ERROR: decoding failed' >&2; exit 1`))

	_, _, err := f.Extract(context.Background(), audioFile(t))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Error(), "fingerprint generation failed")
}

func TestExtractEmptyFingerprint(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo '{"duration": 12.0, "fingerprint": ""}'`))

	_, _, err := f.Extract(context.Background(), audioFile(t))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestExtractZeroDuration(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo '{"duration": 0, "fingerprint": "AQAA"}'`))

	_, _, err := f.Extract(context.Background(), audioFile(t))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestExtractGarbageOutput(t *testing.T) {
	f := NewFpcalc(stubTool(t, `echo 'not json at all'`))

	_, _, err := f.Extract(context.Background(), audioFile(t))
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
}

func TestIsAudio(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"audio stream present", `echo '{"streams": [{"codec_type": "audio"}]}'`, true},
		{"no streams", `echo '{"streams": []}'`, false},
		{"probe failure", `echo 'invalid data' >&2; exit 1`, false},
		{"garbage output", `echo 'nope'`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFpcalc("fpcalc")
			f.ProbeBinary = stubTool(t, tt.script)
			assert.Equal(t, tt.want, f.IsAudio(context.Background(), audioFile(t)))
		})
	}
}

func TestIsAudioMissingFile(t *testing.T) {
	f := NewFpcalc("fpcalc")
	f.ProbeBinary = stubTool(t, `echo '{"streams": [{"codec_type": "audio"}]}'`)
	assert.False(t, f.IsAudio(context.Background(), filepath.Join(t.TempDir(), "absent.mp3")))
}
