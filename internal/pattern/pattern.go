// file: internal/pattern/pattern.go
// version: 1.1.0
// guid: b35129c4-52fd-4306-9e7e-60ca6a45de19

package pattern

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Parser matches filenames against a regular expression with named capture
// groups (e.g. artist, album, track, title). The match is anchored and runs
// against the filename stem with the extension stripped.
type Parser struct {
	source string
	re     *regexp.Regexp
}

// Compile validates and compiles a filename pattern. An invalid pattern fails
// here, not at match time.
func Compile(source string) (*Parser, error) {
	if source == "" {
		return nil, fmt.Errorf("filename pattern is empty")
	}
	anchored := source
	if !strings.HasPrefix(anchored, "^") {
		anchored = "^" + anchored
	}
	if !strings.HasSuffix(anchored, "$") {
		anchored += "$"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, fmt.Errorf("invalid filename pattern %q: %w", source, err)
	}
	return &Parser{source: source, re: re}, nil
}

// Source returns the pattern string the parser was compiled from.
func (p *Parser) Source() string {
	return p.source
}

// Parse matches filename (basename or full path) against the pattern and
// returns the named capture groups. Returns nil when the pattern does not
// match the full stem. Captured values are raw strings; callers interpret
// fields like "track" themselves.
func (p *Parser) Parse(filename string) map[string]string {
	stem := Stem(filename)
	match := p.re.FindStringSubmatch(stem)
	if match == nil {
		return nil
	}
	fields := make(map[string]string)
	for i, name := range p.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = match[i]
	}
	return fields
}

// Stem returns the basename of path with its extension stripped.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// KnownPattern pairs a reusable filename convention with a short description
// shown when the naming oracle offers pattern choices.
type KnownPattern struct {
	Pattern     string
	Description string
}

// KnownPatterns lists common track-naming conventions, most specific first.
var KnownPatterns = []KnownPattern{
	{`(?P<artist>.+)\s+-\s+(?P<album>.+)\s+-\s+(?P<track>\d{1,3})\s+-\s+(?P<title>.+)`, "Artist - Album - 01 - Title"},
	{`(?P<artist>.+)\s+(?P<album>.+)\s+(?P<track>\d{1,3})\s+[-._\s]*(?P<title>.+)`, "Artist Album 01 Title"},
	{`Track\s*(?P<track>\d{1,3})\s*[-._\s]*(?P<title>.+)`, "Track 01 - Title"},
	{`(?P<track>\d{1,3})\s*[-._\s]+(?P<title>.+)`, "01 - Title"},
	{`(?P<track>\d{1,3})\s*\.?\s*(?P<title>.+)`, "01 Title"},
	{`(?P<track>\d{1,3})\s*\.?\s*(?P<artist>.+)\s*-\s*(?P<title>.+)`, "01 Artist - Title"},
}
