// Package contracts defines the JSON messages exchanged with the preview page.
package contracts

const (
	// MessageTypeRender replaces the page content with a rendered fragment.
	MessageTypeRender = "render"
	// MessageTypeCursor moves the page highlight to a source line.
	MessageTypeCursor = "cursor"
	// MessageTypeSettings tells the page which admonition types are active.
	MessageTypeSettings = "settings"
	// MessageTypeGoToLine asks the editor to jump to a source line.
	MessageTypeGoToLine = "go_to_line"
)

// IncomingMessage is the envelope used to route browser messages.
type IncomingMessage struct {
	Type string `json:"type"`
}

// GoToLineMessage requests a cursor jump in the editor.
type GoToLineMessage struct {
	Type string `json:"type"`
	Line int    `json:"line"`
}

// RenderMessage carries a rendered fragment.
type RenderMessage struct {
	Type     string `json:"type"`
	HTML     string `json:"html"`
	Filename string `json:"filename"`
	Rev      uint64 `json:"rev"`
}

// CursorMessage carries the editor cursor. Rev ties it to a render.
type CursorMessage struct {
	Type string `json:"type"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Rev  uint64 `json:"rev"`
}

// SettingsMessage lists the enabled admonition types by keyword.
type SettingsMessage struct {
	Type    string   `json:"type"`
	Enabled []string `json:"enabled"`
}
