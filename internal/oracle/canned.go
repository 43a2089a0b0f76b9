// file: internal/oracle/canned.go
// version: 1.0.0
// guid: 5c6d7e8f-9a0b-1c2d-3e4f-5a6b7c8d9e0f

package oracle

import "github.com/tunevault/tunevault/internal/model"

// Canned is an Oracle returning fixed answers, for tests and unattended runs.
// Counters record how often each method was consulted.
type Canned struct {
	Naming    AlbumNaming
	Policy    MergePolicyChoice
	Candidate int // index, or -1 for none

	NameAlbumCalls       int
	ChoosePolicyCalls    int
	ChooseCandidateCalls int
}

// NewCanned returns a canned oracle with conservative defaults: directory
// name as title, no pattern, album-then-extracted not remembered, no
// candidate accepted.
func NewCanned() *Canned {
	return &Canned{
		Policy:    MergePolicyChoice{Order: model.OrderAlbumThenExtract},
		Candidate: -1,
	}
}

func (c *Canned) NameAlbum(req AlbumNamingRequest) (AlbumNaming, error) {
	c.NameAlbumCalls++
	naming := c.Naming
	if naming.Title == "" {
		naming.Title = req.DefaultTitle
	}
	return naming, nil
}

func (c *Canned) ChooseMergePolicy(MergePolicyRequest) (MergePolicyChoice, error) {
	c.ChoosePolicyCalls++
	return c.Policy, nil
}

func (c *Canned) ChooseCandidate(CandidateRequest) (int, error) {
	c.ChooseCandidateCalls++
	return c.Candidate, nil
}
