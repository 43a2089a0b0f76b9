// file: internal/oracle/cli.go
// version: 1.1.0
// guid: 3a4b5c6d-7e8f-9a0b-1c2d-3e4f5a6b7c8d

package oracle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/pattern"
)

// CLIOracle prompts a human on the terminal. Reader and writer are injected
// so prompts are testable.
type CLIOracle struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewCLIOracle creates an oracle reading answers from in and writing prompts
// to out.
func NewCLIOracle(in io.Reader, out io.Writer) *CLIOracle {
	return &CLIOracle{in: bufio.NewScanner(in), out: out}
}

func (o *CLIOracle) readLine() string {
	if !o.in.Scan() {
		return ""
	}
	return strings.TrimSpace(o.in.Text())
}

// NameAlbum prompts for album title, artists and a filename pattern. Numeric
// answers select from the known pattern library; anything else is treated as
// a custom regex and test-parsed against the sample filename.
func (o *CLIOracle) NameAlbum(req AlbumNamingRequest) (AlbumNaming, error) {
	naming := AlbumNaming{Title: req.DefaultTitle}

	fmt.Fprintf(o.out, "No album metadata found for %s\n", req.Dir)
	fmt.Fprintf(o.out, "Enter album name, or press enter to use folder name %q: ", req.DefaultTitle)
	if answer := o.readLine(); answer != "" {
		naming.Title = answer
	}

	fmt.Fprint(o.out, "Enter comma separated list of artists for this album, or press enter to skip: ")
	if answer := o.readLine(); answer != "" {
		naming.Artists = model.SplitArtists(answer)
	}

	for {
		fmt.Fprintln(o.out, "Available track patterns:")
		for i, kp := range pattern.KnownPatterns {
			fmt.Fprintf(o.out, "  %d. %s: %s\n", i+1, kp.Description, kp.Pattern)
		}
		fmt.Fprintf(o.out, "Current song: %s\n", req.SampleFilename)
		fmt.Fprint(o.out, "Enter a number to select a track pattern, or enter a custom regex with named groups: ")
		answer := o.readLine()
		if answer == "" {
			return naming, nil
		}

		source := answer
		if n, err := strconv.Atoi(answer); err == nil {
			if n < 1 || n > len(pattern.KnownPatterns) {
				fmt.Fprintf(o.out, "Invalid selection %d, try again.\n", n)
				continue
			}
			source = pattern.KnownPatterns[n-1].Pattern
		}

		p, err := pattern.Compile(source)
		if err != nil {
			fmt.Fprintf(o.out, "Pattern does not compile: %v. Try again.\n", err)
			continue
		}
		if fields := p.Parse(req.SampleFilename); fields == nil {
			fmt.Fprintf(o.out, "Warning: pattern did not match %q.\n", req.SampleFilename)
			fmt.Fprint(o.out, "Press enter to keep it anyway, or type anything to re-enter: ")
			if o.readLine() != "" {
				continue
			}
		} else {
			fmt.Fprintf(o.out, "Test parse of %q: %v\n", req.SampleFilename, fields)
		}
		naming.Pattern = source
		return naming, nil
	}
}

// ChooseMergePolicy shows both candidate records and prompts for one of the
// four source orders, then asks whether to remember it for the directory.
func (o *CLIOracle) ChooseMergePolicy(req MergePolicyRequest) (MergePolicyChoice, error) {
	fmt.Fprintf(o.out, "Album track metadata: title=%q track=%d artists=%q releases=%v\n",
		req.Album.Title, req.Album.TrackNumber, req.Album.Artists, req.Album.Releases)
	fmt.Fprintf(o.out, "Extracted track metadata: title=%q track=%d artists=%q releases=%v\n",
		req.Extracted.Title, req.Extracted.TrackNumber, req.Extracted.Artists, req.Extracted.Releases)
	fmt.Fprintf(o.out, "Select metadata source priority for %s:\n", req.Path)
	for i, order := range model.SourceOrders {
		fmt.Fprintf(o.out, "  %d. %s\n", i+1, order)
	}
	fmt.Fprintf(o.out, "Choice (default: %s): ", model.OrderAlbumThenExtract)

	choice := MergePolicyChoice{Order: model.OrderAlbumThenExtract}
	answer := o.readLine()
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(model.SourceOrders) {
		choice.Order = model.SourceOrders[n-1]
	} else if answer != "" {
		choice.Order = model.SourceOrder(answer).Normalize()
	}

	fmt.Fprintf(o.out, "Use %q as default for this album? (y/n, default: n): ", choice.Order)
	choice.Remember = strings.EqualFold(o.readLine(), "y")
	return choice, nil
}

// ChooseCandidate lists the remaining candidates with their pairwise diffs
// and requires an explicit pick; an empty answer accepts none.
func (o *CLIOracle) ChooseCandidate(req CandidateRequest) (int, error) {
	fmt.Fprintf(o.out, "Multiple recordings remain for %s (local title %q):\n", req.Path, req.LocalTitle)
	for i, c := range req.Candidates {
		fmt.Fprintf(o.out, "  %d. %s - %s (score %.2f, releases %v)\n",
			i+1, c.Title, strings.Join(c.Artists, ", "), c.Score, c.Releases)
	}
	for _, diff := range req.Diffs {
		fmt.Fprintf(o.out, "  diff: %s\n", diff)
	}
	fmt.Fprint(o.out, "Enter the number of the correct recording, or press enter to accept none: ")

	answer := o.readLine()
	if answer == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(req.Candidates) {
		return -1, fmt.Errorf("invalid candidate selection %q", answer)
	}
	return n - 1, nil
}
