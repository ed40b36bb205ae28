package host

import (
	"strings"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/app"
	"go-admonitions/internal/style"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
)

type autocmd struct {
	opts    plugin.AutocmdOptions
	handler func(v *nvim.Nvim) error
}

// decorationAutocmds lists the events that recompute or restyle decorations.
// WinScrolled matches its pattern against the window ID, so it is registered
// for every window and filtered by buffer name.
func (n *Nvim) decorationAutocmds() []autocmd {
	return []autocmd{
		{plugin.AutocmdOptions{Event: "BufEnter,TextChanged,TextChangedI", Pattern: pattern}, n.onChange},
		{plugin.AutocmdOptions{Event: "WinScrolled", Pattern: "*"}, n.onScroll},
		{plugin.AutocmdOptions{Event: "ColorScheme", Pattern: "*"}, n.onColorScheme},
	}
}

// RegisterChangeListener recomputes decorations whenever the text or the
// visible range of a markdown buffer changes. The same events refresh the
// preview while it is running.
func (n *Nvim) RegisterChangeListener(fn app.ChangeListener) error {
	n.listener = fn
	for _, a := range n.decorationAutocmds() {
		opts := a.opts
		n.plugin.HandleAutocmd(&opts, a.handler)
	}
	return nil
}

func (n *Nvim) onScroll(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	name, err := v.BufferName(buf)
	if err != nil {
		return err
	}
	if !isMarkdown(name) {
		return nil
	}
	return n.onChange(v)
}

// onColorScheme defines the highlight groups again; :colorscheme clears them.
func (n *Nvim) onColorScheme(v *nvim.Nvim) error {
	n.bind(v)
	n.mu.Lock()
	highlights := n.highlights
	n.mu.Unlock()
	if len(highlights) == 0 {
		return nil
	}
	return n.InjectStyles(highlights)
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

func (n *Nvim) onChange(v *nvim.Nvim) error {
	n.bind(v)

	buf, lines, err := bufferText(v)
	if err != nil {
		return err
	}

	vp, err := viewport(v, len(lines))
	if err != nil {
		return err
	}
	tags := n.listener(lines, vp)

	if n.inFallback() {
		if err := n.applyFallback(v); err != nil {
			return err
		}
	} else if err := n.decorate(v, buf, tags); err != nil {
		return err
	}

	if n.previewActive() {
		return n.publishBuffer(v, buf, lines)
	}
	return nil
}

// viewport reads the window's visible lines as a 0-based half-open range.
func viewport(v *nvim.Nvim, total int) (admonition.Viewport, error) {
	var bounds []int
	if err := v.Eval(`[line('w0'), line('w$')]`, &bounds); err != nil {
		return admonition.Viewport{}, err
	}
	if len(bounds) != 2 {
		return admonition.FullViewport(total), nil
	}
	return admonition.Viewport{From: bounds[0] - 1, To: bounds[1]}, nil
}

// decorate replaces every extmark of the namespace in buf with tags.
func (n *Nvim) decorate(v *nvim.Nvim, buf nvim.Buffer, tags []admonition.Tag) error {
	n.mu.Lock()
	ns := n.ns
	n.mu.Unlock()

	b := v.NewBatch()
	b.ClearBufferNamespace(buf, ns, 0, -1)
	ids := make([]int, len(tags))
	for i, tag := range tags {
		b.SetBufferExtmark(buf, ns, tag.Line, 0, extmarkOptions(tag), &ids[i])
	}
	return b.Execute()
}

// extmarkOptions highlights the whole line; start lines also show the title.
func extmarkOptions(tag admonition.Tag) map[string]interface{} {
	opts := map[string]interface{}{
		"line_hl_group": style.GroupName(tag.Type, tag.Kind),
	}
	if tag.Kind == admonition.TagStart {
		opts["virt_text"] = [][]string{{" " + tag.DisplayTitle(), style.GroupName(tag.Type, admonition.TagNone)}}
		opts["virt_text_pos"] = "eol"
	}
	return opts
}
