package admonition

// Settings holds the enabled flag of every type.
type Settings [typeCount]bool

// DefaultSettings enables every type.
func DefaultSettings() Settings {
	var s Settings
	for t := range s {
		s[t] = true
	}
	return s
}

// Enabled reports whether t is active. Unknown types are never enabled.
func (s Settings) Enabled(t Type) bool {
	return t.valid() && s[t]
}

// Set changes the flag of t.
func (s *Settings) Set(t Type, on bool) {
	if t.valid() {
		s[t] = on
	}
}

// Toggle flips the flag of t and returns the new value.
func (s *Settings) Toggle(t Type) bool {
	s.Set(t, !s.Enabled(t))
	return s.Enabled(t)
}

// EnabledTypes lists the active types in declaration order.
func (s Settings) EnabledTypes() []Type {
	var types []Type
	for _, t := range Types() {
		if s[t] {
			types = append(types, t)
		}
	}
	return types
}
