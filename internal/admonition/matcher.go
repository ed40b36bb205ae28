package admonition

import (
	"regexp"
	"strings"
)

var (
	blockStart = regexp.MustCompile(`^:::(` + typeAlternation + `)(?:\s|$)`)
	singleLine = regexp.MustCompile(`^:::(` + typeAlternation + `)(?:\s+\[([^\]\n]*)\])?\s+([\s\S]+?)\s+:::$`)
	blockTitle = regexp.MustCompile(`^:::(?:` + typeAlternation + `)\s+\[([^\]\n]*)\]`)
)

// Block is one block-level element of a rendered document.
type Block interface {
	// Text returns the plain text of the block. Blocks that can never act
	// as markers (code, lists, tables) may return an empty string.
	Text() string
}

// TextBlock is a Block backed by a plain string.
type TextBlock string

func (b TextBlock) Text() string { return string(b) }

// Match is one admonition found by MatchBlocks.
type Match struct {
	Type  Type
	Title string // custom title, empty when the markup has none

	// Start and End index the opening and closing blocks. For the
	// single-line form both point at the same block.
	Start int
	End   int

	SingleLine bool
	Inline     string // content of the single-line form, still markup

	// Lead is the text the opening block carries after its first line,
	// e.g. "body" for ":::note\nbody". It belongs before the content blocks.
	Lead string
}

// DisplayTitle returns the custom title or the type's default heading.
func (m Match) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Type.Title()
}

// Content returns the half-open index range of the content blocks. It is
// empty for the single-line form.
func (m Match) Content() (from, to int) {
	if m.SingleLine {
		return m.Start + 1, m.Start + 1
	}
	return m.Start + 1, m.End
}

// MatchBlocks finds every admonition in blocks. Each block is consumed at
// most once; after a match the scan resumes behind its closing block.
// Unterminated blocks and disabled types produce no match.
func MatchBlocks(blocks []Block, enabled Settings) []Match {
	var matches []Match
	for i := 0; i < len(blocks); i++ {
		m, ok := matchAt(blocks, i, enabled)
		if !ok {
			continue
		}
		matches = append(matches, m)
		i = m.End
	}
	return matches
}

func matchAt(blocks []Block, i int, enabled Settings) (Match, bool) {
	text := strings.TrimSpace(blocks[i].Text())
	start := blockStart.FindStringSubmatch(text)
	if start == nil {
		return Match{}, false
	}

	if m := singleLine.FindStringSubmatch(text); m != nil {
		t, err := ParseType(m[1])
		if err != nil || !enabled.Enabled(t) {
			return Match{}, false
		}
		return Match{
			Type:       t,
			Title:      m[2],
			Start:      i,
			End:        i,
			SingleLine: true,
			Inline:     m[3],
		}, true
	}

	t, err := ParseType(start[1])
	if err != nil || !enabled.Enabled(t) {
		return Match{}, false
	}

	s := &Scanner{enabled: enabled, state: stateOpen, typ: t}
	for j := i + 1; j < len(blocks); j++ {
		if s.Step(strings.TrimSpace(blocks[j].Text())).Kind != TagEnd {
			continue
		}
		m := Match{Type: t, Start: i, End: j}
		if title := blockTitle.FindStringSubmatch(text); title != nil {
			m.Title = title[1]
		}
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			m.Lead = strings.TrimSpace(text[nl+1:])
		}
		return m, true
	}
	return Match{}, false
}
