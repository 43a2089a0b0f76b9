// file: internal/acoustid/normalize.go
// version: 1.1.0
// guid: 9e0f1a2b-3c4d-5e6f-7a8b-9c0d1e2f3a4b

package acoustid

import (
	"regexp"
	"strings"
)

// DefaultStopWords are dropped from titles before comparison. The set is a
// heuristic; callers may supply their own.
var DefaultStopWords = []string{"the", "a", "an", "and", "of", "in", "on", "for"}

var (
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Normalizer reduces titles to a canonical comparison form: lowercase, no
// punctuation, collapsed whitespace, stop words removed.
type Normalizer struct {
	stopWords map[string]bool
}

// NewNormalizer creates a normalizer with the given stop-word set, or
// DefaultStopWords when nil.
func NewNormalizer(stopWords []string) *Normalizer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	set := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return &Normalizer{stopWords: set}
}

// Normalize returns the canonical comparison form of title.
func (n *Normalizer) Normalize(title string) string {
	title = strings.ToLower(title)
	title = punctuationRe.ReplaceAllString(title, "")
	title = strings.TrimSpace(whitespaceRe.ReplaceAllString(title, " "))

	words := strings.Split(title, " ")
	kept := words[:0]
	for _, w := range words {
		if w != "" && !n.stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// TitlesMatch reports whether two titles are equal after normalization.
func (n *Normalizer) TitlesMatch(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}
