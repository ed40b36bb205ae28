// Package app holds the plugin itself: settings, hooks and the reading-mode
// preview, independent of the editor it is hosted in.
package app

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/contracts"
	"go-admonitions/internal/logging"
	"go-admonitions/internal/render"
	"go-admonitions/internal/style"

	"github.com/sirupsen/logrus"
)

// Options configures a Plugin.
type Options struct {
	// Addr is the preview listen address.
	Addr string
	// Styles installs highlight groups and embeds the reading stylesheet.
	Styles bool
	// Closer is closed after the preview on Unload.
	Closer io.Closer
}

// Plugin is the admonition plugin. Settings are written only by the
// settings panel; every scan reads a snapshot.
type Plugin struct {
	host    Host
	log     *logrus.Entry
	styles  bool
	preview *LivePreview
	closer  io.Closer

	mu       sync.RWMutex
	settings admonition.Settings
	fallback bool

	setup sync.Once
}

func New(host Host, opts Options, logger logrus.FieldLogger) *Plugin {
	p := &Plugin{
		host:     host,
		log:      logging.Component(logger, "plugin"),
		styles:   opts.Styles,
		closer:   opts.Closer,
		settings: admonition.DefaultSettings(),
	}
	renderer := render.NewRenderer(
		render.WithSettings(p.Settings),
		render.WithStyles(opts.Styles),
	)
	p.preview = NewLivePreview(opts.Addr, renderer, logging.Component(logger, "preview"))
	return p
}

// Load reads the settings and registers every hook with the host.
func (p *Plugin) Load() error {
	s, err := p.host.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()

	if err := p.host.RegisterRenderHook(p); err != nil {
		return fmt.Errorf("register render hook: %w", err)
	}
	if err := p.host.RegisterChangeListener(p.Decorate); err != nil {
		return fmt.Errorf("register change listener: %w", err)
	}
	if err := p.host.CreateSettingsPanel(p); err != nil {
		return fmt.Errorf("create settings panel: %w", err)
	}
	if err := p.host.RegisterUnload(p.Unload); err != nil {
		return fmt.Errorf("register unload: %w", err)
	}
	p.log.WithField("enabled", typeNames(s.EnabledTypes())).Info("plugin loaded")
	return nil
}

// Unload stops the preview server.
func (p *Plugin) Unload() error {
	err := p.preview.Stop()
	if p.closer != nil {
		err = errors.Join(err, p.closer.Close())
	}
	return err
}

// ensureSetup installs styles and decorations on first use. Hosts may not
// accept calls while hooks are being registered, so this cannot run in Load.
func (p *Plugin) ensureSetup() {
	p.setup.Do(func() {
		if p.styles {
			highlights, err := style.EditorHighlights()
			if err == nil {
				err = p.host.InjectStyles(highlights)
			}
			if err != nil {
				p.log.WithError(err).Warn("editor styles not installed")
			}
		}

		if err := p.host.EnableDecorations(); err != nil {
			p.log.WithError(err).Warn("live decorations unavailable, using static styling")
			p.mu.Lock()
			p.fallback = true
			p.mu.Unlock()
			if err := p.host.FallbackStyles(p.Settings().EnabledTypes()); err != nil {
				p.log.WithError(err).Error("static styling failed")
			}
		}
	})
}

// Settings returns a snapshot of the enabled flags.
func (p *Plugin) Settings() admonition.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}

// Fallback reports whether live decorations were replaced by static styling.
func (p *Plugin) Fallback() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fallback
}

// Decorate is the change listener. It returns nothing in fallback mode.
func (p *Plugin) Decorate(lines []string, vp admonition.Viewport) []admonition.Tag {
	p.ensureSetup()

	p.mu.RLock()
	s, fallback := p.settings, p.fallback
	p.mu.RUnlock()
	if fallback {
		return nil
	}

	tags := admonition.TagLines(lines, vp, s)
	p.log.WithFields(logrus.Fields{"lines": len(lines), "tags": len(tags)}).Debug("decorated")
	return tags
}

// Render publishes source to the preview.
func (p *Plugin) Render(source []byte, path string) error {
	p.ensureSetup()
	if err := p.preview.PublishSource(source, path); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return p.preview.PublishSettings(p.Settings())
}

// Cursor publishes the editor cursor to the preview.
func (p *Plugin) Cursor(line, col int) error {
	return p.preview.PublishCursor(line, col)
}

func (p *Plugin) PreviewURL() string {
	return p.preview.URL()
}

// OnGoToLine routes browser jump requests to fn.
func (p *Plugin) OnGoToLine(fn func(line int)) {
	p.preview.SetGoToLineHandler(func(msg contracts.GoToLineMessage) {
		fn(msg.Line)
	})
}

// Toggles lists one row per type.
func (p *Plugin) Toggles() []Toggle {
	s := p.Settings()
	toggles := make([]Toggle, 0, len(admonition.Types()))
	for _, t := range admonition.Types() {
		toggles = append(toggles, Toggle{
			Type:        t,
			Name:        t.Title() + " Admonition",
			Description: "Enables the :::" + t.String() + " admonition",
			Enabled:     s.Enabled(t),
		})
	}
	return toggles
}

// SetEnabled changes one flag and persists it. The change is undone when
// the host cannot save it.
func (p *Plugin) SetEnabled(t admonition.Type, on bool) error {
	p.mu.Lock()
	prev := p.settings
	p.settings.Set(t, on)
	s, fallback := p.settings, p.fallback
	p.mu.Unlock()

	if err := p.host.SaveSettings(s); err != nil {
		p.mu.Lock()
		p.settings = prev
		p.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	p.log.WithFields(logrus.Fields{"type": t.String(), "enabled": on}).Info("admonition toggled")

	if fallback {
		if err := p.host.FallbackStyles(s.EnabledTypes()); err != nil {
			return fmt.Errorf("restyle: %w", err)
		}
	}
	return p.preview.PublishSettings(s)
}

// Toggle flips one flag and returns its new value.
func (p *Plugin) Toggle(t admonition.Type) (bool, error) {
	on := !p.Settings().Enabled(t)
	return on, p.SetEnabled(t, on)
}

func typeNames(types []admonition.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
