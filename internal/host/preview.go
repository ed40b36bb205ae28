package host

import (
	"strings"

	"go-admonitions/internal/app"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
)

// RegisterRenderHook adds :AdmonitionPreview and keeps the browser in sync
// with saves and cursor moves.
func (n *Nvim) RegisterRenderHook(hook app.RenderHook) error {
	n.hook = hook
	hook.OnGoToLine(n.goToLine)

	n.plugin.HandleCommand(&plugin.CommandOptions{
		Name: "AdmonitionPreview",
	}, n.previewStart)

	n.plugin.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufWritePost",
		Pattern: pattern,
	}, n.previewUpdate)

	n.plugin.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "CursorMoved,CursorMovedI",
		Pattern: pattern,
	}, n.previewCursor)
	return nil
}

func (n *Nvim) previewActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

func (n *Nvim) previewStart(v *nvim.Nvim) error {
	n.bind(v)
	n.mu.Lock()
	n.active = true
	n.lastCursorLine, n.lastCursorCol = 0, 0
	n.mu.Unlock()

	buf, lines, err := bufferText(v)
	if err != nil {
		return err
	}
	if err := n.publishBuffer(v, buf, lines); err != nil {
		return err
	}
	if err := n.previewCursor(v); err != nil {
		return err
	}
	return n.echo(v, "preview: "+n.hook.PreviewURL())
}

func (n *Nvim) previewUpdate(v *nvim.Nvim) error {
	if !n.previewActive() {
		return nil
	}
	buf, lines, err := bufferText(v)
	if err != nil {
		return err
	}
	return n.publishBuffer(v, buf, lines)
}

func (n *Nvim) publishBuffer(v *nvim.Nvim, buf nvim.Buffer, lines []string) error {
	path, err := v.BufferName(buf)
	if err != nil {
		return err
	}
	return n.hook.Render([]byte(strings.Join(lines, "\n")), path)
}

func (n *Nvim) previewCursor(v *nvim.Nvim) error {
	if !n.previewActive() {
		return nil
	}

	var pos []int
	if err := v.Eval(`[line('.'), col('.')]`, &pos); err != nil {
		return err
	}
	if len(pos) != 2 {
		return nil
	}

	n.mu.Lock()
	if pos[0] == n.lastCursorLine && pos[1] == n.lastCursorCol {
		n.mu.Unlock()
		return nil
	}
	n.lastCursorLine, n.lastCursorCol = pos[0], pos[1]
	n.mu.Unlock()

	return n.hook.Cursor(pos[0], pos[1])
}

// goToLine moves the cursor to a line the browser asked for. It runs on the
// preview's goroutine, so failures are only logged.
func (n *Nvim) goToLine(line int) {
	v := n.client()
	n.mu.Lock()
	skip := !n.active || v == nil || line == n.lastCursorLine
	n.mu.Unlock()
	if skip {
		return
	}

	win, err := v.CurrentWindow()
	if err != nil {
		n.log.WithError(err).Debug("go to line")
		return
	}
	if err := v.SetWindowCursor(win, [2]int{line, 0}); err != nil {
		n.log.WithError(err).WithField("line", line).Debug("go to line")
		return
	}
	_ = v.Command("normal! zz")

	n.mu.Lock()
	n.lastCursorLine, n.lastCursorCol = line, 0
	n.mu.Unlock()
}
