package app

import (
	"errors"
	"strings"
	"testing"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/logging"
	"go-admonitions/internal/style"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	settings    admonition.Settings
	saved       []admonition.Settings
	saveErr     error
	decorateErr error

	hook     RenderHook
	listener ChangeListener
	panel    SettingsPanel
	unload   func() error

	highlights []style.Highlight
	injected   int
	fallbacks  [][]admonition.Type
}

func newFakeHost() *fakeHost {
	return &fakeHost{settings: admonition.DefaultSettings()}
}

func (h *fakeHost) RegisterRenderHook(hook RenderHook) error { h.hook = hook; return nil }
func (h *fakeHost) RegisterChangeListener(fn ChangeListener) error { h.listener = fn; return nil }
func (h *fakeHost) CreateSettingsPanel(panel SettingsPanel) error { h.panel = panel; return nil }
func (h *fakeHost) RegisterUnload(fn func() error) error { h.unload = fn; return nil }
func (h *fakeHost) LoadSettings() (admonition.Settings, error) { return h.settings, nil }
func (h *fakeHost) EnableDecorations() error { return h.decorateErr }

func (h *fakeHost) SaveSettings(s admonition.Settings) error {
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, s)
	return nil
}

func (h *fakeHost) InjectStyles(highlights []style.Highlight) error {
	h.injected++
	h.highlights = highlights
	return nil
}

func (h *fakeHost) FallbackStyles(types []admonition.Type) error {
	h.fallbacks = append(h.fallbacks, types)
	return nil
}

func loadPlugin(t *testing.T, host *fakeHost, styles bool) *Plugin {
	t.Helper()
	p := New(host, Options{Addr: "127.0.0.1:0", Styles: styles}, logging.Discard())
	require.NoError(t, p.Load())
	t.Cleanup(func() { _ = p.Unload() })
	return p
}

func TestLoadRegistersHooks(t *testing.T) {
	host := newFakeHost()
	host.settings.Set(admonition.Info, false)
	p := loadPlugin(t, host, true)

	assert.Same(t, p, host.hook)
	assert.Same(t, p, host.panel)
	require.NotNil(t, host.listener)
	require.NotNil(t, host.unload)
	assert.NoError(t, host.unload())
	assert.False(t, p.Settings().Enabled(admonition.Info))
}

func TestChangeListenerTagsLines(t *testing.T) {
	host := newFakeHost()
	loadPlugin(t, host, true)

	lines := strings.Split(":::danger\nline A\n:::", "\n")
	tags := host.listener(lines, admonition.FullViewport(len(lines)))
	require.Len(t, tags, 3)
	assert.Equal(t, admonition.TagStart, tags[0].Kind)
	assert.Equal(t, admonition.TagContent, tags[1].Kind)
	assert.Equal(t, admonition.TagEnd, tags[2].Kind)

	host.listener(lines, admonition.FullViewport(len(lines)))
	assert.Equal(t, 1, host.injected)
	assert.NotEmpty(t, host.highlights)
	assert.Empty(t, host.fallbacks)
}

func TestStylesDisabled(t *testing.T) {
	host := newFakeHost()
	loadPlugin(t, host, false)

	host.listener(nil, admonition.Viewport{})
	assert.Zero(t, host.injected)
}

func TestFallbackWhenDecorationsFail(t *testing.T) {
	host := newFakeHost()
	host.decorateErr = errors.New("no namespaces")
	host.settings.Set(admonition.Tip, false)
	p := loadPlugin(t, host, true)

	lines := []string{":::note", "x", ":::"}
	assert.Nil(t, host.listener(lines, admonition.FullViewport(len(lines))))
	assert.True(t, p.Fallback())
	require.Len(t, host.fallbacks, 1)
	assert.Equal(t, []admonition.Type{admonition.Note, admonition.Info, admonition.Warning, admonition.Danger}, host.fallbacks[0])

	require.NoError(t, p.SetEnabled(admonition.Tip, true))
	require.Len(t, host.fallbacks, 2)
	assert.Equal(t, admonition.Types(), host.fallbacks[1])
}

func TestSetEnabledPersists(t *testing.T) {
	host := newFakeHost()
	p := loadPlugin(t, host, true)

	require.NoError(t, p.SetEnabled(admonition.Warning, false))
	require.Len(t, host.saved, 1)
	assert.False(t, host.saved[0].Enabled(admonition.Warning))

	lines := []string{":::warning", ":::"}
	assert.Empty(t, host.listener(lines, admonition.FullViewport(len(lines))))

	on, err := p.Toggle(admonition.Warning)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, p.Settings().Enabled(admonition.Warning))
}

func TestSetEnabledRollsBackOnSaveError(t *testing.T) {
	host := newFakeHost()
	p := loadPlugin(t, host, true)
	host.saveErr = errors.New("read-only")

	err := p.SetEnabled(admonition.Note, false)
	assert.ErrorContains(t, err, "read-only")
	assert.True(t, p.Settings().Enabled(admonition.Note))
}

func TestToggles(t *testing.T) {
	host := newFakeHost()
	host.settings.Set(admonition.Danger, false)
	p := loadPlugin(t, host, true)

	toggles := p.Toggles()
	require.Len(t, toggles, 5)
	assert.Equal(t, Toggle{
		Type:        admonition.Note,
		Name:        "NOTE Admonition",
		Description: "Enables the :::note admonition",
		Enabled:     true,
	}, toggles[0])
	assert.False(t, toggles[4].Enabled)
}

func TestRenderStartsPreview(t *testing.T) {
	host := newFakeHost()
	p := loadPlugin(t, host, true)

	require.NoError(t, p.Render([]byte(":::note\n\nhi\n\n:::\n"), "/tmp/doc.md"))
	assert.NotEqual(t, "http://127.0.0.1:0", p.PreviewURL())
	assert.NoError(t, p.Cursor(1, 1))
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error { c.n++; return nil }

func TestUnloadClosesCloser(t *testing.T) {
	c := &closeCounter{}
	p := New(newFakeHost(), Options{Addr: "127.0.0.1:0", Closer: c}, logging.Discard())
	require.NoError(t, p.Load())

	require.NoError(t, p.Unload())
	assert.Equal(t, 1, c.n)
}
