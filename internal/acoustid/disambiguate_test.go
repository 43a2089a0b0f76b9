// file: internal/acoustid/disambiguate_test.go
// version: 1.2.0
// guid: 2b3c4d5e-6f7a-8b9c-0d1e-2f3a4b5c6d7e

package acoustid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevault/tunevault/internal/oracle"
)

func group(id string, score float64, recs ...Recording) ResultGroup {
	return ResultGroup{ID: id, Score: score, Recordings: recs}
}

func recording(id, title, artist string, rgs ...ReleaseGroup) Recording {
	return Recording{
		ID:            id,
		Title:         title,
		Artists:       []Artist{{ID: "a-" + id, Name: artist}},
		ReleaseGroups: rgs,
	}
}

func newTestDisambiguator(o oracle.Oracle) *Disambiguator {
	return NewDisambiguator(nil, o)
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)
	tests := []struct {
		in, want string
	}{
		{"Midnight Run", "midnight run"},
		{"midnight, run!!", "midnight run"},
		{"The Village Green Preservation Society", "village green preservation society"},
		{"  Spaced    Out  ", "spaced out"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(tt.in), tt.in)
	}
}

func TestNormalizerCustomStopWords(t *testing.T) {
	n := NewNormalizer([]string{"live"})
	assert.True(t, n.TitlesMatch("Victoria (Live)", "Victoria"))
}

func TestChooseScoreFilterRunsBeforeTitleMatching(t *testing.T) {
	o := oracle.NewCanned()
	d := newTestDisambiguator(o)

	groups := []ResultGroup{
		group("g1", 0.9, recording("rec-high", "Victoria", "The Kinks")),
		group("g2", 0.75, recording("rec-mid", "Victoria (Mono)", "The Kinks")),
		group("g3", 0.5, recording("rec-low", "Victoria", "The Kinks")),
	}

	match, err := d.Choose("/music/01 - Victoria.mp3", "Victoria", groups)
	require.NoError(t, err)
	require.NotNil(t, match)
	// The 0.5 group never reaches title matching; the 0.9 exact-title
	// candidate wins over the mono titling.
	assert.Equal(t, "rec-high", match.RecordingID)
}

func TestChooseNoCandidatesAboveThreshold(t *testing.T) {
	d := newTestDisambiguator(oracle.NewCanned())
	match, err := d.Choose("x.mp3", "Victoria", []ResultGroup{
		group("g1", 0.4, recording("r1", "Victoria", "The Kinks")),
	})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestChooseSingleCandidateAcceptedDirectly(t *testing.T) {
	o := oracle.NewCanned()
	d := newTestDisambiguator(o)
	match, err := d.Choose("x.mp3", "", []ResultGroup{
		group("g1", 0.8, recording("r1", "Victoria", "The Kinks")),
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "r1", match.RecordingID)
	assert.Zero(t, o.ChooseCandidateCalls)
}

func TestChooseEquivalentTitlesCollapseConsistently(t *testing.T) {
	o := oracle.NewCanned()
	d := newTestDisambiguator(o)

	groups := []ResultGroup{
		group("g1", 0.8, recording("r1", "Midnight Run", "Alice")),
		group("g2", 0.8, recording("r2", "midnight, run!!", "alice")),
	}

	match, err := d.Choose("x.mp3", "Midnight Run", groups)
	require.NoError(t, err)
	require.NotNil(t, match)
	// Equivalent candidates collapse to one deterministic pick; no oracle
	// round trip.
	assert.Equal(t, "r1", match.RecordingID)
	assert.Zero(t, o.ChooseCandidateCalls)
}

func TestChooseReleaseGroupNarrowing(t *testing.T) {
	o := oracle.NewCanned()
	d := newTestDisambiguator(o)

	arthur := ReleaseGroup{ID: "rg-arthur", Title: "Arthur", PrimaryType: "Album"}
	single := ReleaseGroup{ID: "rg-single", Title: "Victoria", PrimaryType: "Single"}
	groups := []ResultGroup{
		group("g1", 0.85, recording("r1", "Victoria", "The Kinks", arthur)),
		group("g2", 0.85, recording("r2", "Victoria", "The Kinks (Tribute)", single)),
	}

	match, err := d.Choose("/music/The Kinks - Arthur - 01 - Victoria.mp3", "Victoria", groups)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "r1", match.RecordingID)
	assert.Zero(t, o.ChooseCandidateCalls)
}

func TestChooseFallsBackToOracle(t *testing.T) {
	o := oracle.NewCanned()
	o.Candidate = 1
	d := newTestDisambiguator(o)

	groups := []ResultGroup{
		group("g1", 0.85, recording("r1", "Victoria", "The Kinks")),
		group("g2", 0.85, recording("r2", "Victoria", "The Fall")),
	}

	match, err := d.Choose("/music/victoria.mp3", "Victoria", groups)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, 1, o.ChooseCandidateCalls)
	assert.Equal(t, "r2", match.RecordingID)
}

func TestChooseOracleDeclineIsNoMatch(t *testing.T) {
	o := oracle.NewCanned() // default candidate choice is -1
	d := newTestDisambiguator(o)

	groups := []ResultGroup{
		group("g1", 0.85, recording("r1", "Victoria", "The Kinks")),
		group("g2", 0.85, recording("r2", "Victoria", "The Fall")),
	}

	match, err := d.Choose("/music/victoria.mp3", "Victoria", groups)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.Equal(t, 1, o.ChooseCandidateCalls)
}

func TestPairwiseDiffs(t *testing.T) {
	diffs := pairwiseDiffs([]Match{
		{RecordingID: "r1", Title: "Victoria", Artists: []string{"The Kinks"}, Score: 0.9},
		{RecordingID: "r2", Title: "Victoria", Artists: []string{"The Fall"}, Score: 0.8},
	})
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "r1 vs r2")
	assert.Contains(t, diffs[0], "artists")
	assert.Contains(t, diffs[0], "score")
}

func TestFragment(t *testing.T) {
	m := Match{Title: "Victoria", Artists: []string{"The Kinks"}, Releases: []string{"Arthur"}}
	frag := m.Fragment("/music/01.mp3")
	assert.Equal(t, "/music/01.mp3", frag.Path)
	assert.Equal(t, "Victoria", frag.Title)
	assert.Equal(t, "The Kinks", frag.Artists)
	assert.Equal(t, []string{"Arthur"}, frag.Releases)
}
