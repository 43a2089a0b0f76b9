// file: internal/library/library_test.go
// version: 1.3.0
// guid: d638de8b-c206-40f2-8463-2bd420cfa31a

package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevault/tunevault/internal/acoustid"
	"github.com/tunevault/tunevault/internal/albumctx"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
)

// fakeExtractor serves fingerprints from a fixed table and counts calls.
type fakeExtractor struct {
	results map[string]extractResult
	calls   int
}

type extractResult struct {
	duration    float64
	fingerprint string
	err         error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (float64, string, error) {
	f.calls++
	r, ok := f.results[path]
	if !ok {
		return 0, "", fmt.Errorf("no fixture for %s", path)
	}
	return r.duration, r.fingerprint, r.err
}

// fakeProber answers from a fixed set of valid-audio paths.
type fakeProber struct {
	audio map[string]bool
}

func (f *fakeProber) IsAudio(_ context.Context, path string) bool { return f.audio[path] }

// fakeIdentifier returns a fixed match and counts lookups.
type fakeIdentifier struct {
	match *acoustid.Match
	calls int
}

func (f *fakeIdentifier) Identify(_ context.Context, _, _, _ string, _ float64) (*acoustid.Match, error) {
	f.calls++
	return f.match, nil
}

func writeAudio(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("audio bytes"), 0o644))
	return path
}

func newTestSession(o oracle.Oracle, ext *fakeExtractor) *Session {
	s := NewSession(albumctx.NewStore(o), o, ext, &fakeProber{audio: map[string]bool{}})
	s.ReadTags = func(path string) (model.TrackMetadata, error) {
		return model.NewTrackMetadata(path), nil
	}
	return s
}

func TestProcessFileEmptyFileIsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.mp3")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	o := oracle.NewCanned()
	s := newTestSession(o, &fakeExtractor{})

	res, err := s.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, res.Status)
	assert.Nil(t, res.Song)
	assert.True(t, s.Failures.Contains(path))
	assert.Zero(t, o.NameAlbumCalls)
}

func TestProcessFileDeduplicatesByFingerprint(t *testing.T) {
	dir := t.TempDir()
	p1 := writeAudio(t, dir, "01 - Victoria.mp3")
	p2 := writeAudio(t, dir, "01 - Victoria (copy).mp3")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		p1: {duration: 214, fingerprint: "AQAA_same"},
		p2: {duration: 214, fingerprint: "AQAA_same"},
	}}
	s := newTestSession(o, ext)

	first, err := s.ProcessFile(context.Background(), p1)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, first.Status)

	second, err := s.ProcessFile(context.Background(), p2)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)

	assert.Equal(t, first.Song.ID, second.Song.ID)
	assert.True(t, second.Song.HasPath(p1))
	assert.True(t, second.Song.HasPath(p2))
	assert.Equal(t, 1, s.SongCount())
}

func TestProcessFileUnexpectedExtractionFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Broken.mp3")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {err: fmt.Errorf("fpcalc exploded")},
	}}
	s := newTestSession(o, ext)
	s.Probe = &fakeProber{audio: map[string]bool{path: true}}

	_, err := s.ProcessFile(context.Background(), path)
	var fatal *UnexpectedExtractionError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, path, fatal.Path)
}

func TestProcessFileNotAudioIsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "cover.mp3") // wrong bytes, extractor fails

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {err: fmt.Errorf("decode failed")},
	}}
	s := newTestSession(o, ext)

	res, err := s.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, res.Status)
	assert.True(t, s.Failures.Contains(path))
}

func TestProcessFileRemembersMergePolicy(t *testing.T) {
	dir := t.TempDir()
	p1 := writeAudio(t, dir, "01 - First.mp3")
	p2 := writeAudio(t, dir, "02 - Second.mp3")

	o := oracle.NewCanned()
	o.Policy = oracle.MergePolicyChoice{Order: model.OrderExtractThenAlbum, Remember: true}
	ext := &fakeExtractor{results: map[string]extractResult{
		p1: {duration: 100, fingerprint: "AQAA_1"},
		p2: {duration: 110, fingerprint: "AQAA_2"},
	}}
	s := newTestSession(o, ext)

	_, err := s.ProcessFile(context.Background(), p1)
	require.NoError(t, err)
	assert.Equal(t, 1, o.ChoosePolicyCalls)

	_, err = s.ProcessFile(context.Background(), p2)
	require.NoError(t, err)
	// The remembered default means the second file never consults the oracle.
	assert.Equal(t, 1, o.ChoosePolicyCalls)

	album, err := s.Albums.Resolve(p1)
	require.NoError(t, err)
	assert.Equal(t, model.OrderExtractThenAlbum, album.DefaultOrder)
}

func TestProcessFileSessionDefaultOrderSkipsOracle(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Victoria.mp3")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {duration: 214, fingerprint: "AQAA_fp"},
	}}
	s := newTestSession(o, ext)
	s.DefaultOrder = model.OrderExtractThenAlbum

	res, err := s.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, res.Status)
	assert.Zero(t, o.ChoosePolicyCalls)

	// The session-wide default does not get written onto the album, so a
	// later per-album choice can still be recorded.
	album, err := s.Albums.Resolve(path)
	require.NoError(t, err)
	assert.False(t, album.DefaultOrder.Valid())
}

func TestProcessFileMergesRemoteMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "track07.mp3")

	o := oracle.NewCanned()
	o.Policy = oracle.MergePolicyChoice{Order: model.OrderAlbumThenExtract}
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {duration: 214, fingerprint: "AQAA_fp"},
	}}
	s := newTestSession(o, ext)
	id := &fakeIdentifier{match: &acoustid.Match{
		RecordingID: "rec-1",
		Title:       "Victoria",
		Artists:     []string{"The Kinks"},
		Releases:    []string{"Arthur"},
	}}
	s.Identify = id

	res, err := s.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.Status)
	assert.Equal(t, 1, id.calls)
	assert.Equal(t, "Victoria", res.Song.Metadata.Title)
	assert.Equal(t, "The Kinks", res.Song.Metadata.Artists)
	assert.Contains(t, res.Song.Metadata.Releases, "Arthur")
}

func TestRerunPerformsNoOracleCallsOrLookups(t *testing.T) {
	dir := t.TempDir()
	p1 := writeAudio(t, dir, "01 - Victoria.mp3")
	p2 := writeAudio(t, dir, "02 - Yes Sir, No Sir.mp3")

	results := map[string]extractResult{
		p1: {duration: 214, fingerprint: "AQAA_1"},
		p2: {duration: 246, fingerprint: "AQAA_2"},
	}

	first := oracle.NewCanned()
	first.Policy = oracle.MergePolicyChoice{Order: model.OrderAlbumThenExtract, Remember: true}
	s1 := newTestSession(first, &fakeExtractor{results: results})
	report, err := s1.ProcessDirectory(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Resolved)

	// Fresh session, fresh oracle, same directory: everything is already
	// recorded in album_meta.json.
	second := oracle.NewCanned()
	ext := &fakeExtractor{results: results}
	s2 := newTestSession(second, ext)
	id := &fakeIdentifier{}
	s2.Identify = id

	report, err = s2.ProcessDirectory(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Known)
	assert.Zero(t, second.NameAlbumCalls)
	assert.Zero(t, second.ChoosePolicyCalls)
	assert.Zero(t, second.ChooseCandidateCalls)
	assert.Zero(t, id.calls)
	assert.Zero(t, ext.calls)
}

func TestProcessFileCorruptContextAbortsWithoutHandler(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Victoria.mp3")
	metaPath := filepath.Join(dir, albumctx.MetaFilename)
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {duration: 214, fingerprint: "AQAA_fp"},
	}}
	s := newTestSession(o, ext)

	_, err := s.ProcessFile(context.Background(), path)
	var corrupt *albumctx.CorruptContextError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, metaPath, corrupt.Path)
	assert.False(t, s.Failures.Contains(path), "corruption must not ledger the file")
}

func TestProcessFileCorruptContextDiscardAndRecreate(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Victoria.mp3")
	metaPath := filepath.Join(dir, albumctx.MetaFilename)
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {duration: 214, fingerprint: "AQAA_fp"},
	}}
	s := newTestSession(o, ext)
	var offered *albumctx.CorruptContextError
	s.ConfirmDiscard = func(e *albumctx.CorruptContextError) bool {
		offered = e
		return true
	}

	res, err := s.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, res.Status)
	require.NotNil(t, offered)
	assert.Equal(t, metaPath, offered.Path)

	// The context was rebuilt and persisted in place of the corrupt file.
	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestProcessFileCorruptContextDeclinedDiscardPropagates(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Victoria.mp3")
	metaPath := filepath.Join(dir, albumctx.MetaFilename)
	require.NoError(t, os.WriteFile(metaPath, []byte("{not json"), 0o644))

	o := oracle.NewCanned()
	s := newTestSession(o, &fakeExtractor{})
	s.ConfirmDiscard = func(*albumctx.CorruptContextError) bool { return false }

	_, err := s.ProcessFile(context.Background(), path)
	var corrupt *albumctx.CorruptContextError
	require.ErrorAs(t, err, &corrupt)

	// The corrupt file is left for the operator.
	data, readErr := os.ReadFile(metaPath)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestProcessDirectoryCorruptContextNeverLedgersFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeAudio(t, dir, "01 - Good.mp3")
	require.NoError(t, os.WriteFile(filepath.Join(dir, albumctx.MetaFilename), []byte("{not json"), 0o644))

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		good: {duration: 100, fingerprint: "AQAA_good"},
	}}
	s := newTestSession(o, ext)

	report, err := s.ProcessDirectory(context.Background(), dir, nil)
	var corrupt *albumctx.CorruptContextError
	require.ErrorAs(t, err, &corrupt)
	assert.Zero(t, report.Failed)
	assert.False(t, s.Failures.Contains(good))

	// Once the operator repairs the directory, the same session picks the
	// file up normally instead of skipping it as known-bad.
	require.NoError(t, os.Remove(corrupt.Path))
	report, err = s.ProcessDirectory(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Zero(t, report.SkippedBad)
}

func TestProcessDirectorySkipsLedgeredFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeAudio(t, dir, "01 - Good.mp3")
	bad := writeAudio(t, dir, "02 - Bad.mp3")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		good: {duration: 100, fingerprint: "AQAA_good"},
	}}
	s := newTestSession(o, ext)
	s.Failures.Add(bad)

	report, err := s.ProcessDirectory(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, report.SkippedBad)
	assert.Equal(t, 1, report.Processed)
}

func TestProcessDirectoryAbortsOnUnexpectedExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Broken.mp3")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {err: fmt.Errorf("fpcalc exploded")},
	}}
	s := newTestSession(o, ext)
	s.Probe = &fakeProber{audio: map[string]bool{path: true}}

	_, err := s.ProcessDirectory(context.Background(), dir, nil)
	var fatal *UnexpectedExtractionError
	require.ErrorAs(t, err, &fatal)
}

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errored_files.json")
	l := NewLedger(path)
	l.Add("/music/bad1.mp3")
	l.Add("/music/bad2.mp3")
	l.Add("/music/bad1.mp3")
	require.NoError(t, l.Save())

	loaded, err := LoadLedger(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/music/bad1.mp3", "/music/bad2.mp3"}, loaded.Paths())
	assert.True(t, loaded.Contains("/music/bad1.mp3"))

	loaded.Remove("/music/bad1.mp3")
	assert.Equal(t, 1, loaded.Len())
}

func TestLoadLedgerAbsent(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Zero(t, l.Len())
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeAudio(t, dir, "01 - Victoria.mp3")
	snapPath := filepath.Join(t.TempDir(), "library_data.json")

	o := oracle.NewCanned()
	ext := &fakeExtractor{results: map[string]extractResult{
		path: {duration: 214, fingerprint: "AQAA_fp"},
	}}
	s1 := newTestSession(o, ext)
	res, err := s1.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveSnapshot(snapPath))

	s2 := newTestSession(oracle.NewCanned(), &fakeExtractor{})
	require.NoError(t, s2.LoadSnapshot(snapPath))

	song := s2.SongForFingerprint("AQAA_fp")
	require.NotNil(t, song)
	assert.Equal(t, res.Song.ID, song.ID)
	require.Len(t, s2.Albums.Cached(), 1)
	assert.Equal(t, dir, s2.Albums.Cached()[0].Path)
}

func TestLoadSnapshotAbsent(t *testing.T) {
	s := newTestSession(oracle.NewCanned(), &fakeExtractor{})
	require.NoError(t, s.LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")))
}
