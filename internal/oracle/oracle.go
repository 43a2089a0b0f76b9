// file: internal/oracle/oracle.go
// version: 1.2.0
// guid: 2f3a4b5c-6d7e-8f9a-0b1c-2d3e4f5a6b7c

// Package oracle abstracts every choice the engine cannot make on its own:
// naming a new album directory, picking a merge-source priority, and breaking
// candidate-recording ties. The CLI implementation prompts a human; tests
// supply canned answers.
package oracle

import (
	"github.com/tunevault/tunevault/internal/model"
)

// AlbumNamingRequest describes a directory that has no persisted album
// context yet.
type AlbumNamingRequest struct {
	Dir            string
	DefaultTitle   string // directory base name
	SampleFilename string // one filename from the directory for test-parsing
}

// AlbumNaming is the oracle's answer to an AlbumNamingRequest.
type AlbumNaming struct {
	Title   string
	Artists []string
	Pattern string // named-group regex, may be empty
}

// MergePolicyRequest carries both candidate records, reduced to the fields a
// chooser needs to compare.
type MergePolicyRequest struct {
	Path      string
	Album     model.TrackMetadata // filename-derived record
	Extracted model.TrackMetadata // embedded-tag record
}

// MergePolicyChoice is a selected source order, optionally remembered as the
// directory default.
type MergePolicyChoice struct {
	Order    model.SourceOrder
	Remember bool
}

// Candidate is one remaining recording after automatic disambiguation has
// been exhausted.
type Candidate struct {
	ID       string
	Score    float64
	Title    string
	Artists  []string
	Releases []string
}

// CandidateRequest asks for a manual pick among candidates that automatic
// rules could not separate. Diffs holds human-readable pairwise differences.
type CandidateRequest struct {
	Path       string
	LocalTitle string
	Candidates []Candidate
	Diffs      []string
}

// Oracle resolves the choices interactive prompting handled in older
// revisions of this tool.
type Oracle interface {
	// NameAlbum supplies title, artists and filename pattern for a new
	// directory. Implementations should validate a candidate pattern by
	// test-parsing SampleFilename before committing to it.
	NameAlbum(req AlbumNamingRequest) (AlbumNaming, error)

	// ChooseMergePolicy picks one of the four source orders.
	ChooseMergePolicy(req MergePolicyRequest) (MergePolicyChoice, error)

	// ChooseCandidate returns the index of the chosen candidate, or -1 to
	// accept none. It is only consulted after every automatic rule has
	// failed to narrow the set to one.
	ChooseCandidate(req CandidateRequest) (int, error)
}
