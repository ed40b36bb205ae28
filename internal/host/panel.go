package host

import (
	"fmt"
	"strings"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/app"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
)

const panelToggleFunc = "AdmonitionInternalPanelToggle"

// CreateSettingsPanel adds :AdmonitionSettings and the per-type commands.
func (n *Nvim) CreateSettingsPanel(panel app.SettingsPanel) error {
	n.panel = panel

	n.plugin.HandleCommand(&plugin.CommandOptions{
		Name: "AdmonitionSettings",
	}, n.openPanel)

	n.plugin.HandleFunction(&plugin.FunctionOptions{
		Name: panelToggleFunc,
	}, n.panelToggle)

	n.plugin.HandleFunction(&plugin.FunctionOptions{
		Name: "AdmonitionComplete",
	}, func(args []interface{}) ([]string, error) {
		lead := ""
		if len(args) > 0 {
			lead, _ = args[0].(string)
		}
		return completeTypes(lead), nil
	})

	for _, c := range []struct {
		name string
		set  func(current bool) bool
	}{
		{"AdmonitionToggle", func(current bool) bool { return !current }},
		{"AdmonitionEnable", func(bool) bool { return true }},
		{"AdmonitionDisable", func(bool) bool { return false }},
	} {
		set := c.set
		n.plugin.HandleCommand(&plugin.CommandOptions{
			Name:     c.name,
			NArgs:    "1",
			Complete: "customlist,AdmonitionComplete",
		}, func(v *nvim.Nvim, args []string) error {
			return n.setFromCommand(v, args, set)
		})
	}
	return nil
}

func (n *Nvim) setFromCommand(v *nvim.Nvim, args []string, set func(bool) bool) error {
	n.bind(v)
	if len(args) != 1 {
		return fmt.Errorf("expected one admonition type")
	}
	t, err := admonition.ParseType(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}

	on := set(n.enabled(t))
	if err := n.panel.SetEnabled(t, on); err != nil {
		return err
	}
	if err := n.refresh(v); err != nil {
		return err
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	return n.echo(v, fmt.Sprintf("%s %s", t, state))
}

func (n *Nvim) enabled(t admonition.Type) bool {
	for _, tg := range n.panel.Toggles() {
		if tg.Type == t {
			return tg.Enabled
		}
	}
	return false
}

// refresh redraws the panel if it is open and recomputes the current
// buffer's decorations when it is markdown.
func (n *Nvim) refresh(v *nvim.Nvim) error {
	if err := n.redrawPanel(v); err != nil {
		return err
	}
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

func (n *Nvim) openPanel(v *nvim.Nvim) error {
	n.bind(v)

	buf, err := n.panelBuffer(v)
	if err != nil {
		return err
	}
	if err := n.writePanel(v, buf); err != nil {
		return err
	}

	var size []int
	if err := v.Eval(`[&columns, &lines]`, &size); err != nil {
		return err
	}
	lines := panelLines(n.panel.Toggles())
	width, height := panelWidth(lines), len(lines)
	cfg := &nvim.WindowConfig{
		Relative: "editor",
		Width:    width,
		Height:   height,
		Style:    "minimal",
	}
	if len(size) == 2 {
		cfg.Col = float64(max(0, (size[0]-width)/2))
		cfg.Row = float64(max(0, (size[1]-height)/2))
	}
	if _, err := v.OpenWindow(buf, true, cfg); err != nil {
		return fmt.Errorf("open settings window: %w", err)
	}
	return nil
}

// panelBuffer returns the scratch buffer, creating it when it was wiped.
func (n *Nvim) panelBuffer(v *nvim.Nvim) (nvim.Buffer, error) {
	n.mu.Lock()
	buf := n.panelBuf
	n.mu.Unlock()

	if buf != 0 {
		if ok, err := v.IsBufferValid(buf); err == nil && ok {
			return buf, nil
		}
	}

	buf, err := v.CreateBuffer(false, true)
	if err != nil {
		return 0, fmt.Errorf("create settings buffer: %w", err)
	}

	b := v.NewBatch()
	b.SetBufferOption(buf, "bufhidden", "hide")
	b.SetBufferOption(buf, "filetype", "admonitionsettings")
	b.SetBufferKeyMap(buf, "n", "<CR>", fmt.Sprintf(`<Cmd>call %s(line('.'))<CR>`, panelToggleFunc), map[string]bool{"noremap": true, "silent": true})
	b.SetBufferKeyMap(buf, "n", "q", "<Cmd>close<CR>", map[string]bool{"noremap": true, "silent": true})
	if err := b.Execute(); err != nil {
		return 0, fmt.Errorf("configure settings buffer: %w", err)
	}

	n.mu.Lock()
	n.panelBuf = buf
	n.mu.Unlock()
	return buf, nil
}

func (n *Nvim) writePanel(v *nvim.Nvim, buf nvim.Buffer) error {
	lines := panelLines(n.panel.Toggles())
	raw := make([][]byte, len(lines))
	for i, l := range lines {
		raw[i] = []byte(l)
	}

	b := v.NewBatch()
	b.SetBufferOption(buf, "modifiable", true)
	b.SetBufferLines(buf, 0, -1, false, raw)
	b.SetBufferOption(buf, "modifiable", false)
	return b.Execute()
}

func (n *Nvim) redrawPanel(v *nvim.Nvim) error {
	n.mu.Lock()
	buf := n.panelBuf
	n.mu.Unlock()
	if buf == 0 {
		return nil
	}
	if ok, err := v.IsBufferValid(buf); err != nil || !ok {
		return nil
	}
	return n.writePanel(v, buf)
}

// panelToggle flips the type on the given 1-based panel line.
func (n *Nvim) panelToggle(v *nvim.Nvim, args []int) error {
	n.bind(v)
	if len(args) == 0 {
		return nil
	}
	toggles := n.panel.Toggles()
	i, ok := panelRow(args[0], len(toggles))
	if !ok {
		return nil
	}
	t := toggles[i]
	if err := n.panel.SetEnabled(t.Type, !t.Enabled); err != nil {
		return err
	}
	return n.redrawPanel(v)
}

func panelLines(toggles []app.Toggle) []string {
	nameWidth := 0
	for _, t := range toggles {
		nameWidth = max(nameWidth, len(t.Name))
	}
	lines := make([]string, len(toggles))
	for i, t := range toggles {
		mark := " "
		if t.Enabled {
			mark = "x"
		}
		lines[i] = fmt.Sprintf("[%s] %-*s  %s", mark, nameWidth, t.Name, t.Description)
	}
	return lines
}

func panelWidth(lines []string) int {
	w := 20
	for _, l := range lines {
		w = max(w, len(l)+1)
	}
	return w
}

func panelRow(line, n int) (int, bool) {
	if line < 1 || line > n {
		return 0, false
	}
	return line - 1, true
}

func completeTypes(lead string) []string {
	var out []string
	for _, t := range admonition.Types() {
		if strings.HasPrefix(t.String(), lead) {
			out = append(out, t.String())
		}
	}
	return out
}
