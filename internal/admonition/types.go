// Package admonition recognizes the ":::type ... :::" callout convention.
//
// It holds the two scans the plugin is built around: MatchBlocks, which works
// over already rendered blocks, and TagLines, which classifies raw buffer lines
// for the editor's decoration layer. Both are pure and keep no state between
// calls.
package admonition

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is one of the recognized admonition kinds.
type Type int

const (
	Note Type = iota
	Tip
	Info
	Warning
	Danger

	typeCount
)

var typeNames = [typeCount]string{
	Note:    "note",
	Tip:     "tip",
	Info:    "info",
	Warning: "warning",
	Danger:  "danger",
}

var upper = cases.Upper(language.Und)

// Types returns all admonition types in declaration order.
func Types() []Type {
	types := make([]Type, 0, typeCount)
	for t := Note; t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType looks up a type by its markup keyword. Matching is case-sensitive.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), nil
		}
	}
	return 0, fmt.Errorf("unknown admonition type %q", name)
}

func (t Type) valid() bool {
	return t >= Note && t < typeCount
}

// String returns the markup keyword, e.g. "warning".
func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Title returns the default heading for the type, e.g. "WARNING".
func (t Type) Title() string {
	return upper.String(t.String())
}
