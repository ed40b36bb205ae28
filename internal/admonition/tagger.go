package admonition

// Tag is the classification of one editor line.
type Tag struct {
	Line  int // 0-based line index
	Kind  TagKind
	Type  Type
	Title string // custom title from the opening line, if any
}

// DisplayTitle returns the custom title or the type's default heading.
func (t Tag) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Type.Title()
}

// Viewport is a half-open range of 0-based line indexes.
type Viewport struct {
	From int
	To   int
}

// FullViewport covers n lines.
func FullViewport(n int) Viewport {
	return Viewport{From: 0, To: n}
}

func (v Viewport) clamp(n int) Viewport {
	if v.From < 0 {
		v.From = 0
	}
	if v.To > n || v.To < 0 {
		v.To = n
	}
	if v.From > v.To {
		v.From = v.To
	}
	return v
}

// TagLines classifies the lines of a document for display. The scan always
// starts at the first line so that a block opened above the viewport is
// known, but tags are only returned for lines inside vp. Lines that belong
// to no block produce no tag.
func TagLines(lines []string, vp Viewport, enabled Settings) []Tag {
	vp = vp.clamp(len(lines))

	var tags []Tag
	s := NewScanner(enabled)
	for i := 0; i < vp.To; i++ {
		tag := s.Step(lines[i])
		if i < vp.From || tag.Kind == TagNone {
			continue
		}
		tag.Line = i
		tags = append(tags, tag)
	}
	return tags
}
