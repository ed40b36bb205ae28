// Package host adapts the plugin to Neovim: commands and autocmds become
// hooks, extmarks carry the live decorations and a floating window is the
// settings panel.
package host

import (
	"fmt"
	"strings"
	"sync"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/app"
	"go-admonitions/internal/config"
	"go-admonitions/internal/logging"
	"go-admonitions/internal/style"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
	"github.com/sirupsen/logrus"
)

const (
	namespace = "go-admonitions"
	pattern   = "*.md"
)

// Nvim implements app.Host on top of a remote plugin.
type Nvim struct {
	plugin  *plugin.Plugin
	cfgPath string
	log     *logrus.Entry

	hook     app.RenderHook
	listener app.ChangeListener
	panel    app.SettingsPanel

	mu       sync.Mutex
	cfg      config.Config
	nv       *nvim.Nvim
	ns       int
	fallback []admonition.Type
	active   bool
	panelBuf nvim.Buffer

	highlights []style.Highlight

	lastCursorLine int
	lastCursorCol  int
}

var _ app.Host = (*Nvim)(nil)

// NewNvim returns the adapter for p. Settings are persisted to cfgPath.
func NewNvim(p *plugin.Plugin, cfgPath string, cfg config.Config, logger logrus.FieldLogger) *Nvim {
	return &Nvim{
		plugin:  p,
		cfgPath: cfgPath,
		cfg:     cfg,
		nv:      p.Nvim,
		log:     logging.Component(logger, "nvim"),
	}
}

func (n *Nvim) client() *nvim.Nvim {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nv
}

// bind records the client a handler was called with.
func (n *Nvim) bind(v *nvim.Nvim) {
	n.mu.Lock()
	n.nv = v
	n.mu.Unlock()
}

func (n *Nvim) LoadSettings() (admonition.Settings, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg.Settings(), nil
}

// SaveSettings writes the flags back into the config file.
func (n *Nvim) SaveSettings(s admonition.Settings) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	cfg := n.cfg.WithSettings(s)
	if err := config.Save(n.cfgPath, cfg); err != nil {
		return err
	}
	n.cfg = cfg
	return nil
}

// InjectStyles defines the highlight groups with "default" so colorschemes
// and user config win.
func (n *Nvim) InjectStyles(highlights []style.Highlight) error {
	n.mu.Lock()
	n.highlights = highlights
	v := n.nv
	n.mu.Unlock()
	if v == nil {
		return fmt.Errorf("no nvim client")
	}
	b := v.NewBatch()
	for _, cmd := range styleCommands(highlights) {
		b.Command(cmd)
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("define highlights: %w", err)
	}
	return nil
}

func styleCommands(highlights []style.Highlight) []string {
	cmds := make([]string, len(highlights))
	for i, h := range highlights {
		cmds[i] = h.Command()
	}
	return cmds
}

// EnableDecorations creates the extmark namespace.
func (n *Nvim) EnableDecorations() error {
	v := n.client()
	if v == nil {
		return fmt.Errorf("no nvim client")
	}
	ns, err := v.CreateNamespace(namespace)
	if err != nil {
		return fmt.Errorf("create namespace: %w", err)
	}
	n.mu.Lock()
	n.ns = ns
	n.mu.Unlock()
	return nil
}

// FallbackStyles remembers types and styles the current buffer with syntax
// rules. Later buffers are styled on their change events.
func (n *Nvim) FallbackStyles(types []admonition.Type) error {
	n.mu.Lock()
	n.fallback = append([]admonition.Type{}, types...)
	v := n.nv
	n.mu.Unlock()
	if v == nil {
		return fmt.Errorf("no nvim client")
	}
	return n.applyFallback(v)
}

func (n *Nvim) applyFallback(v *nvim.Nvim) error {
	n.mu.Lock()
	types := n.fallback
	n.mu.Unlock()

	b := v.NewBatch()
	for _, cmd := range fallbackCommands(types) {
		b.Command(cmd)
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("apply syntax fallback: %w", err)
	}
	return nil
}

// fallbackCommands clears every admonition syntax group and matches the
// opener lines of the enabled types.
func fallbackCommands(enabled []admonition.Type) []string {
	var cmds []string
	for _, t := range admonition.Types() {
		cmds = append(cmds, "silent! syntax clear "+style.GroupName(t, admonition.TagNone))
	}
	for _, t := range enabled {
		cmds = append(cmds, fmt.Sprintf(`syntax match %s /^:::%s\>.*$/`, style.GroupName(t, admonition.TagNone), t))
	}
	return cmds
}

func (n *Nvim) inFallback() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fallback != nil
}

// RegisterUnload stops the plugin when Neovim exits.
func (n *Nvim) RegisterUnload(fn func() error) error {
	n.plugin.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "VimLeavePre",
		Pattern: "*",
	}, func() error {
		return fn()
	})
	return nil
}

func bufferText(v *nvim.Nvim) (nvim.Buffer, []string, error) {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return 0, nil, err
	}
	raw, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return 0, nil, err
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return buf, lines, nil
}

func (n *Nvim) echo(v *nvim.Nvim, msg string) error {
	return v.Command(fmt.Sprintf(`echom "[go-admonitions] %s"`, strings.ReplaceAll(msg, `"`, `\"`)))
}
