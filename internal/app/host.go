package app

import (
	"go-admonitions/internal/admonition"
	"go-admonitions/internal/style"
)

// Host is the editor the plugin runs in. One adapter exists per editor.
type Host interface {
	// RegisterRenderHook wires reading-mode rendering to the host's events.
	RegisterRenderHook(hook RenderHook) error
	// RegisterChangeListener wires live decorations to document and
	// viewport changes. The listener's tags replace all previous ones.
	RegisterChangeListener(fn ChangeListener) error
	// CreateSettingsPanel exposes the per-type toggles to the user.
	CreateSettingsPanel(panel SettingsPanel) error
	// RegisterUnload runs fn when the host shuts the plugin down.
	RegisterUnload(fn func() error) error

	LoadSettings() (admonition.Settings, error)
	SaveSettings(s admonition.Settings) error

	// InjectStyles installs the editor look.
	InjectStyles(highlights []style.Highlight) error
	// EnableDecorations prepares the line decoration layer.
	EnableDecorations() error
	// FallbackStyles styles opener lines of the given types without
	// scanning. Used when EnableDecorations fails.
	FallbackStyles(types []admonition.Type) error
}

// RenderHook is what the host calls for reading mode.
type RenderHook interface {
	Render(source []byte, path string) error
	Cursor(line, col int) error
	PreviewURL() string
	OnGoToLine(fn func(line int))
}

// ChangeListener computes the tags for the visible part of a document.
type ChangeListener func(lines []string, vp admonition.Viewport) []admonition.Tag

// Toggle is one row of the settings panel.
type Toggle struct {
	Type        admonition.Type
	Name        string
	Description string
	Enabled     bool
}

// SettingsPanel backs the host's settings UI.
type SettingsPanel interface {
	Toggles() []Toggle
	SetEnabled(t admonition.Type, on bool) error
}
