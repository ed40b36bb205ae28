// Package style holds the admonition stylesheets. The reading stylesheet is
// served with the preview page; the editor stylesheet is translated into
// Neovim highlight groups.
package style

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"go-admonitions/internal/admonition"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed editor.css
var editorCSS string

//go:embed reading.css
var readingCSS string

var (
	selectorPattern = regexp.MustCompile(`^\.admonition-([a-z]+)(?:-(start|content|end))?$`)
	hexColor        = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	titleCase       = cases.Title(language.Und)
)

// Highlight is one editor highlight group.
type Highlight struct {
	Group  string
	Fg     string
	Bg     string
	Bold   bool
	Italic bool
}

// Command returns the ex command defining the group. "default" keeps user
// overrides intact.
func (h Highlight) Command() string {
	var b strings.Builder
	b.WriteString("highlight default ")
	b.WriteString(h.Group)
	if h.Fg != "" {
		b.WriteString(" guifg=" + h.Fg)
	}
	if h.Bg != "" {
		b.WriteString(" guibg=" + h.Bg)
	}

	var attrs []string
	if h.Bold {
		attrs = append(attrs, "bold")
	}
	if h.Italic {
		attrs = append(attrs, "italic")
	}
	if len(attrs) > 0 {
		b.WriteString(" gui=" + strings.Join(attrs, ","))
	}
	return b.String()
}

// ReadingCSS returns the stylesheet for rendered admonitions.
func ReadingCSS() string {
	return readingCSS
}

// GroupName names the highlight group for a tag kind of t. TagNone names the
// per-type group used by the static fallback.
func GroupName(t admonition.Type, kind admonition.TagKind) string {
	name := "Admonition" + titleCase.String(t.String())
	if kind == admonition.TagNone {
		return name
	}
	return name + titleCase.String(kind.String())
}

// EditorHighlights returns the groups described by the embedded editor stylesheet.
func EditorHighlights() ([]Highlight, error) {
	return ParseHighlights(editorCSS)
}

// ParseHighlights translates admonition rules of a stylesheet into highlight
// groups. Rules for other selectors and values Neovim cannot express (e.g.
// rgba colors) are ignored. Later rules override earlier ones.
func ParseHighlights(stylesheet string) ([]Highlight, error) {
	sheet, err := parser.Parse(stylesheet)
	if err != nil {
		return nil, fmt.Errorf("parse stylesheet: %w", err)
	}

	var order []string
	groups := make(map[string]*Highlight)
	for _, rule := range sheet.Rules {
		if rule.Kind != css.QualifiedRule {
			continue
		}
		for _, selector := range rule.Selectors {
			group, ok := selectorGroup(strings.TrimSpace(selector))
			if !ok {
				continue
			}
			h, seen := groups[group]
			if !seen {
				h = &Highlight{Group: group}
				groups[group] = h
				order = append(order, group)
			}
			apply(h, rule.Declarations)
		}
	}

	highlights := make([]Highlight, 0, len(order))
	for _, group := range order {
		highlights = append(highlights, *groups[group])
	}
	return highlights, nil
}

func selectorGroup(selector string) (string, bool) {
	m := selectorPattern.FindStringSubmatch(selector)
	if m == nil {
		return "", false
	}
	t, err := admonition.ParseType(m[1])
	if err != nil {
		return "", false
	}

	kind := admonition.TagNone
	switch m[2] {
	case "start":
		kind = admonition.TagStart
	case "content":
		kind = admonition.TagContent
	case "end":
		kind = admonition.TagEnd
	}
	return GroupName(t, kind), true
}

func apply(h *Highlight, decls []*css.Declaration) {
	for _, d := range decls {
		value := strings.TrimSpace(d.Value)
		switch strings.ToLower(d.Property) {
		case "color":
			if hexColor.MatchString(value) {
				h.Fg = strings.ToLower(value)
			}
		case "background-color", "background":
			if hexColor.MatchString(value) {
				h.Bg = strings.ToLower(value)
			}
		case "font-weight":
			h.Bold = value == "bold" || value == "700" || value == "800" || value == "900"
		case "font-style":
			h.Italic = value == "italic"
		}
	}
}
