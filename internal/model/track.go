// file: internal/model/track.go
// version: 1.3.0
// guid: 11e14500-1496-4d17-9328-8c8da41da66e

package model

import (
	"log"
	"slices"
	"strings"
	"time"
)

// ValuePolicy governs how a conflicting scalar field is resolved when merging
// two metadata records.
type ValuePolicy string

const (
	ValueSelf   ValuePolicy = "self"   // keep the left operand's value
	ValueOther  ValuePolicy = "other"  // keep the right operand's value
	ValueUpdate ValuePolicy = "update" // same as self; named for symmetry with list policies
	ValueRaise  ValuePolicy = "raise"  // fail with a ValueConflictError
)

// ListPolicy governs how conflicting list-valued fields are resolved.
type ListPolicy string

const (
	ListMerge  ListPolicy = "merge"  // set union of both sides
	ListUpdate ListPolicy = "update" // fill blanks from the other side (same result as merge)
	ListRaise  ListPolicy = "raise"  // fail with a ListConflictError on any non-identical pair
)

// TrackMetadata describes one track. The zero value of a field means "unset";
// merge logic relies on that convention.
type TrackMetadata struct {
	Path        string    `json:"path"`
	TrackNumber int       `json:"track_number,omitempty"`
	Title       string    `json:"title,omitempty"`
	Artists     string    `json:"artists,omitempty"` // comma-delimited
	Releases    []string  `json:"releases,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Duration    float64   `json:"duration,omitempty"` // seconds
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Analyzer-derived features; unset when analysis failed or was skipped.
	Tempo        float64   `json:"tempo,omitempty"`
	Brightness   float64   `json:"brightness,omitempty"`
	MfccMean     []float64 `json:"mfcc_mean,omitempty"`
	Key          string    `json:"key,omitempty"`
	Energy       float64   `json:"energy,omitempty"`
	DynamicRange float64   `json:"dynamic_range,omitempty"`
	ZCR          float64   `json:"zcr,omitempty"`
	Valence      float64   `json:"valence,omitempty"`
	SampleRate   float64   `json:"sample_rate,omitempty"`

	// Best-effort values recovered from the filename.
	ParsedTitle string `json:"parsed_title,omitempty"`
	ParsedTrack int    `json:"parsed_track,omitempty"`
}

// NewTrackMetadata returns a record with path set and timestamps initialized.
func NewTrackMetadata(path string) TrackMetadata {
	now := time.Now()
	return TrackMetadata{Path: path, CreatedAt: now, UpdatedAt: now}
}

// Merge combines two records into a new one without mutating either input.
// Preconditions: equal paths, and equal fingerprints whenever both are set.
// Matched fields (path, fingerprint, timestamps) take whichever side is
// non-empty. List fields union under merge/update and fail under raise.
// Scalar fields take the non-empty side; when both are set and unequal the
// value policy decides. UpdatedAt is always stamped to the merge time.
func Merge(a, b TrackMetadata, valuePolicy ValuePolicy, listPolicy ListPolicy) (TrackMetadata, error) {
	if a.Path != b.Path {
		return TrackMetadata{}, &PathConflictError{Self: a.Path, Other: b.Path}
	}
	if a.Fingerprint != "" && b.Fingerprint != "" && a.Fingerprint != b.Fingerprint {
		return TrackMetadata{}, &FingerprintConflictError{Self: a.Fingerprint, Other: b.Fingerprint}
	}

	out := TrackMetadata{
		Path:        a.Path,
		Fingerprint: firstNonEmpty(a.Fingerprint, b.Fingerprint),
	}
	out.CreatedAt = a.CreatedAt
	if out.CreatedAt.IsZero() {
		out.CreatedAt = b.CreatedAt
	}

	var err error
	merge := func(field string, av, bv string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = mergeScalarString(field, av, bv, valuePolicy)
		return v
	}
	mergeInt := func(field string, av, bv int) int {
		if err != nil {
			return 0
		}
		var v int
		v, err = mergeScalarInt(field, av, bv, valuePolicy)
		return v
	}
	mergeFloat := func(field string, av, bv float64) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = mergeScalarFloat(field, av, bv, valuePolicy)
		return v
	}

	out.Title = merge("title", a.Title, b.Title)
	out.Key = merge("key", a.Key, b.Key)
	out.ParsedTitle = merge("parsed_title", a.ParsedTitle, b.ParsedTitle)
	out.TrackNumber = mergeInt("track_number", a.TrackNumber, b.TrackNumber)
	out.ParsedTrack = mergeInt("parsed_track", a.ParsedTrack, b.ParsedTrack)
	out.Duration = mergeFloat("duration", a.Duration, b.Duration)
	out.Tempo = mergeFloat("tempo", a.Tempo, b.Tempo)
	out.Brightness = mergeFloat("brightness", a.Brightness, b.Brightness)
	out.Energy = mergeFloat("energy", a.Energy, b.Energy)
	out.DynamicRange = mergeFloat("dynamic_range", a.DynamicRange, b.DynamicRange)
	out.ZCR = mergeFloat("zcr", a.ZCR, b.ZCR)
	out.Valence = mergeFloat("valence", a.Valence, b.Valence)
	out.SampleRate = mergeFloat("sample_rate", a.SampleRate, b.SampleRate)
	if err != nil {
		return TrackMetadata{}, err
	}

	out.MfccMean, err = mergeMfcc(a.MfccMean, b.MfccMean, valuePolicy)
	if err != nil {
		return TrackMetadata{}, err
	}

	out.Artists, err = mergeArtists(a.Artists, b.Artists, listPolicy)
	if err != nil {
		return TrackMetadata{}, err
	}
	out.Releases, err = mergeList("releases", a.Releases, b.Releases, listPolicy)
	if err != nil {
		return TrackMetadata{}, err
	}
	out.Tags, err = mergeList("tags", a.Tags, b.Tags, listPolicy)
	if err != nil {
		return TrackMetadata{}, err
	}

	out.UpdatedAt = time.Now()
	return out, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func mergeScalarString(field, a, b string, policy ValuePolicy) (string, error) {
	if a == "" {
		return b, nil
	}
	if b == "" || a == b {
		return a, nil
	}
	return resolveConflict(field, a, b, a, b, policy)
}

func mergeScalarInt(field string, a, b int, policy ValuePolicy) (int, error) {
	if a == 0 {
		return b, nil
	}
	if b == 0 || a == b {
		return a, nil
	}
	return resolveConflict(field, a, b, a, b, policy)
}

func mergeScalarFloat(field string, a, b float64, policy ValuePolicy) (float64, error) {
	if a == 0 {
		return b, nil
	}
	if b == 0 || a == b {
		return a, nil
	}
	return resolveConflict(field, a, b, a, b, policy)
}

// resolveConflict applies the value policy once both sides are known to be
// set and unequal.
func resolveConflict[T any](field string, a, b T, selfVal, otherVal any, policy ValuePolicy) (T, error) {
	switch policy {
	case ValueSelf, ValueUpdate:
		log.Printf("[INFO] merge: conflict for %q: %v vs %v - keeping %v", field, selfVal, otherVal, selfVal)
		return a, nil
	case ValueOther:
		log.Printf("[INFO] merge: conflict for %q: %v vs %v - keeping %v", field, selfVal, otherVal, otherVal)
		return b, nil
	case ValueRaise:
		var zero T
		return zero, &ValueConflictError{Field: field, Self: selfVal, Other: otherVal}
	default:
		var zero T
		return zero, &ValueConflictError{Field: field, Self: selfVal, Other: otherVal}
	}
}

func mergeMfcc(a, b []float64, policy ValuePolicy) ([]float64, error) {
	if len(a) == 0 {
		return slices.Clone(b), nil
	}
	if len(b) == 0 || slices.Equal(a, b) {
		return slices.Clone(a), nil
	}
	return resolveConflict("mfcc_mean", slices.Clone(a), slices.Clone(b), a, b, policy)
}

// mergeArtists treats the comma-delimited artists string as a set: split,
// trim, union, rejoin with ", ". Dedup is case-insensitive; the first-seen
// casing wins.
func mergeArtists(a, b string, policy ListPolicy) (string, error) {
	if policy == ListRaise && a != "" && b != "" && a != b {
		return "", &ListConflictError{Field: "artists", Self: a, Other: b}
	}
	var union []string
	seen := make(map[string]bool)
	for _, name := range append(SplitArtists(a), SplitArtists(b)...) {
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			union = append(union, name)
		}
	}
	return strings.Join(union, ", "), nil
}

// SplitArtists splits a comma-delimited artist string into trimmed names,
// dropping blanks.
func SplitArtists(s string) []string {
	if s == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func mergeList(field string, a, b []string, policy ListPolicy) ([]string, error) {
	if policy == ListRaise && len(a) > 0 && len(b) > 0 && !slices.Equal(a, b) {
		return nil, &ListConflictError{Field: field, Self: a, Other: b}
	}
	union := slices.Clone(a)
	seen := make(map[string]bool, len(union))
	for _, v := range union {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			union = append(union, v)
		}
	}
	return union, nil
}
