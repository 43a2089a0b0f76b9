// file: internal/acoustid/disambiguate.go
// version: 1.3.0
// guid: 0f1a2b3c-4d5e-6f7a-8b9c-0d1e2f3a4b5c

package acoustid

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/oracle"
	"github.com/tunevault/tunevault/internal/pattern"
)

// DefaultScoreThreshold is the minimum result-group score considered at all.
const DefaultScoreThreshold = 0.7

// Match is the accepted candidate: the metadata fragment merged into the
// track's combined record.
type Match struct {
	RecordingID string
	Score       float64
	Title       string
	Artists     []string
	Releases    []string

	releaseGroups []ReleaseGroup
}

// Fragment converts the match into a TrackMetadata carrying title, artists
// and release titles for merging.
func (m *Match) Fragment(path string) model.TrackMetadata {
	meta := model.NewTrackMetadata(path)
	meta.Title = m.Title
	meta.Artists = strings.Join(m.Artists, ", ")
	meta.Releases = append([]string(nil), m.Releases...)
	return meta
}

// Disambiguator narrows lookup results to at most one accepted candidate.
// Past the automatic rules it defers to the naming oracle; it never
// auto-picks by score alone.
type Disambiguator struct {
	Lookup     Lookuper
	Oracle     oracle.Oracle
	Threshold  float64
	Normalizer *Normalizer
}

// NewDisambiguator creates a disambiguator with the default threshold and
// stop-word set.
func NewDisambiguator(lookup Lookuper, o oracle.Oracle) *Disambiguator {
	return &Disambiguator{
		Lookup:     lookup,
		Oracle:     o,
		Threshold:  DefaultScoreThreshold,
		Normalizer: NewNormalizer(nil),
	}
}

// Identify looks the fingerprint up remotely and disambiguates the results.
// A nil match with nil error means "no match", a normal outcome, recorded
// but not retried as an error.
func (d *Disambiguator) Identify(ctx context.Context, path, localTitle, fingerprint string, duration float64) (*Match, error) {
	groups, err := d.Lookup.LookupByFingerprint(ctx, fingerprint, duration)
	if err != nil {
		return nil, fmt.Errorf("remote lookup failed for %s: %w", path, err)
	}
	return d.Choose(path, localTitle, groups)
}

// Choose applies the narrowing rules to already-fetched result groups:
// score filter, title matching, release-group preference, then the oracle.
func (d *Disambiguator) Choose(path, localTitle string, groups []ResultGroup) (*Match, error) {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}

	candidates := collectCandidates(groups, threshold)
	if len(candidates) == 0 {
		log.Printf("[INFO] acoustid: no candidates above %.2f for %s", threshold, path)
		return nil, nil
	}
	if len(candidates) == 1 {
		return accept(candidates[0], "single candidate"), nil
	}

	// Title matching. When nothing matches the local title the full set
	// stays in play; an empty set would leave the oracle nothing to choose
	// from.
	if localTitle != "" {
		matched := candidates[:0:0]
		for _, c := range candidates {
			if d.Normalizer.TitlesMatch(localTitle, c.Title) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			candidates = matched
		} else {
			log.Printf("[INFO] acoustid: no candidate title matches %q; keeping all %d", localTitle, len(candidates))
		}
	}
	candidates = d.dedupEquivalent(candidates)
	if len(candidates) == 1 {
		return accept(candidates[0], "title match"), nil
	}

	if narrowed := d.narrowByReleaseGroup(path, candidates); len(narrowed) == 1 {
		return accept(narrowed[0], "release-group match"), nil
	} else if len(narrowed) > 0 {
		candidates = narrowed
	}

	return d.askOracle(path, localTitle, candidates)
}

// collectCandidates flattens surviving result groups into recordings,
// deduplicated by recording id at the highest score, sorted by score then id
// for stable behavior.
func collectCandidates(groups []ResultGroup, threshold float64) []Match {
	byID := make(map[string]Match)
	for _, g := range groups {
		if g.Score < threshold {
			log.Printf("[DEBUG] acoustid: discarding group %s (score %.2f)", g.ID, g.Score)
			continue
		}
		for _, rec := range g.Recordings {
			m := Match{
				RecordingID:   rec.ID,
				Score:         g.Score,
				Title:         rec.Title,
				Artists:       artistNames(rec.Artists),
				Releases:      releaseTitles(rec.ReleaseGroups),
				releaseGroups: rec.ReleaseGroups,
			}
			if prev, ok := byID[rec.ID]; !ok || m.Score > prev.Score {
				byID[rec.ID] = m
			}
		}
	}

	out := make([]Match, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RecordingID < out[j].RecordingID
	})
	return out
}

// dedupEquivalent collapses candidates that are the same recording in all
// but id: equal normalized title, artists and releases. The highest-scored
// representative survives, so remasters listed twice resolve consistently.
func (d *Disambiguator) dedupEquivalent(candidates []Match) []Match {
	seen := make(map[string]bool)
	out := candidates[:0:0]
	for _, c := range candidates {
		key := d.Normalizer.Normalize(c.Title) + "\x00" +
			strings.ToLower(strings.Join(c.Artists, ",")) + "\x00" +
			strings.ToLower(strings.Join(c.Releases, ","))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// narrowByReleaseGroup prefers candidates on an "Album"-typed release group
// whose normalized title appears in the filename.
func (d *Disambiguator) narrowByReleaseGroup(path string, candidates []Match) []Match {
	stem := d.Normalizer.Normalize(pattern.Stem(path))
	for _, c := range candidates {
		for _, rg := range c.releaseGroups {
			if !strings.EqualFold(rg.PrimaryType, "Album") || rg.Title == "" {
				continue
			}
			title := d.Normalizer.Normalize(rg.Title)
			if title == "" || !strings.Contains(stem, title) {
				continue
			}
			log.Printf("[INFO] acoustid: album title %q matches filename, narrowing by release group %s", rg.Title, rg.ID)
			var kept []Match
			for _, other := range candidates {
				if hasReleaseGroup(other, rg.ID) {
					kept = append(kept, other)
				}
			}
			return kept
		}
	}
	return candidates
}

// askOracle surfaces the remaining candidates and their pairwise differences
// for a manual pick. A declined choice is "no match", not an error.
func (d *Disambiguator) askOracle(path, localTitle string, candidates []Match) (*Match, error) {
	req := oracle.CandidateRequest{
		Path:       path,
		LocalTitle: localTitle,
		Diffs:      pairwiseDiffs(candidates),
	}
	for _, c := range candidates {
		req.Candidates = append(req.Candidates, oracle.Candidate{
			ID:       c.RecordingID,
			Score:    c.Score,
			Title:    c.Title,
			Artists:  c.Artists,
			Releases: c.Releases,
		})
	}

	idx, err := d.Oracle.ChooseCandidate(req)
	if err != nil {
		return nil, fmt.Errorf("candidate choice failed for %s: %w", path, err)
	}
	if idx < 0 || idx >= len(candidates) {
		log.Printf("[INFO] acoustid: no candidate chosen for %s", path)
		return nil, nil
	}
	return accept(candidates[idx], "manual choice"), nil
}

func accept(m Match, reason string) *Match {
	log.Printf("[INFO] acoustid: accepted recording %s %q (score %.2f, %s)", m.RecordingID, m.Title, m.Score, reason)
	return &m
}

// pairwiseDiffs describes how each pair of candidates differs, field by
// field, so a human (or model) can pick between near-identical entries.
func pairwiseDiffs(candidates []Match) []string {
	var diffs []string
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			var parts []string
			if a.Title != b.Title {
				parts = append(parts, fmt.Sprintf("title %q vs %q", a.Title, b.Title))
			}
			if as, bs := strings.Join(a.Artists, ", "), strings.Join(b.Artists, ", "); as != bs {
				parts = append(parts, fmt.Sprintf("artists [%s] vs [%s]", as, bs))
			}
			if ar, br := strings.Join(a.Releases, ", "), strings.Join(b.Releases, ", "); ar != br {
				parts = append(parts, fmt.Sprintf("releases [%s] vs [%s]", ar, br))
			}
			if a.Score != b.Score {
				parts = append(parts, fmt.Sprintf("score %.2f vs %.2f", a.Score, b.Score))
			}
			if len(parts) == 0 {
				parts = append(parts, "no structural differences")
			}
			diffs = append(diffs, fmt.Sprintf("%s vs %s: %s", a.RecordingID, b.RecordingID, strings.Join(parts, "; ")))
		}
	}
	return diffs
}

func artistNames(artists []Artist) []string {
	var names []string
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func releaseTitles(groups []ReleaseGroup) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, g := range groups {
		if g.Title == "" || seen[g.Title] {
			continue
		}
		seen[g.Title] = true
		titles = append(titles, g.Title)
	}
	return titles
}

func hasReleaseGroup(m Match, id string) bool {
	for _, rg := range m.releaseGroups {
		if rg.ID == id {
			return true
		}
	}
	return false
}
