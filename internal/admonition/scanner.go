package admonition

import (
	"regexp"
	"strings"
)

// Marker is the fence that opens (with a type) and closes an admonition.
const Marker = ":::"

var (
	typeAlternation = strings.Join(typeNames[:], "|")

	// opener matches the first line of a block in raw editor text.
	opener = regexp.MustCompile(`^:::(` + typeAlternation + `)(?:\s+\[([^\]\n]*)\])?(?:\s|$)`)
)

// TagKind classifies a line relative to the admonition it belongs to.
type TagKind int

const (
	TagNone TagKind = iota
	TagStart
	TagContent
	TagEnd
)

func (k TagKind) String() string {
	switch k {
	case TagStart:
		return "start"
	case TagContent:
		return "content"
	case TagEnd:
		return "end"
	default:
		return "none"
	}
}

type state int

const (
	stateOutside state = iota
	stateOpen
)

// Scanner is the two-state machine shared by the matcher and the tagger.
// Outside a block it waits for an opener of an enabled type; inside, every
// line is content until the first line that is exactly the marker.
type Scanner struct {
	enabled Settings
	state   state
	typ     Type
	title   string
}

// NewScanner returns a scanner positioned outside any block.
func NewScanner(enabled Settings) *Scanner {
	return &Scanner{enabled: enabled}
}

// Open reports the type of the block currently open, if any.
func (s *Scanner) Open() (Type, bool) {
	return s.typ, s.state == stateOpen
}

// Step classifies line and advances the machine.
func (s *Scanner) Step(line string) Tag {
	next, tag := transition(s.state, s.typ, s.title, line, s.enabled)
	s.state = next
	if next == stateOpen {
		s.typ, s.title = tag.Type, tag.Title
	} else {
		s.title = ""
	}
	return tag
}

// transition is the whole machine. Nested openers inside an open block are
// plain content: the first bare marker closes the block.
func transition(cur state, open Type, title string, line string, enabled Settings) (state, Tag) {
	switch cur {
	case stateOpen:
		if strings.TrimSpace(line) == Marker {
			return stateOutside, Tag{Kind: TagEnd, Type: open, Title: title}
		}
		return stateOpen, Tag{Kind: TagContent, Type: open, Title: title}
	default:
		t, title, ok := parseOpener(line)
		if !ok || !enabled.Enabled(t) {
			return stateOutside, Tag{Kind: TagNone}
		}
		return stateOpen, Tag{Kind: TagStart, Type: t, Title: title}
	}
}

func parseOpener(line string) (Type, string, bool) {
	m := opener.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	t, err := ParseType(m[1])
	if err != nil {
		return 0, "", false
	}
	return t, m[2], true
}
