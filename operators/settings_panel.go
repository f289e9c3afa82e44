package operators

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cast"
	"github.com/teranos/screencap"
	"github.com/teranos/screencap/logging"
)

type controlKind int

const (
	controlInput controlKind = iota
	controlButton
	controlStepper
	controlToggle
	controlChoice
)

// control is one row of the settings panel.
type control struct {
	kind  controlKind
	key   string
	label string
	step  float64
	input textinput.Model
	press func()
}

// settingsPanel edits capture settings. Every change goes through
// Policy.Apply, so the store only ever holds corrected values. Resolution
// fields accept free text and are validated when they lose focus.
type settingsPanel struct {
	policy   *screencap.Policy
	host     *Host
	logger   *logging.Logger
	controls []*control
	focus    int
	open     bool
}

func newSettingsPanel(policy *screencap.Policy, host *Host, logger *logging.Logger) *settingsPanel {
	p := &settingsPanel{policy: policy, host: host, logger: logger}

	p.controls = []*control{
		p.resolutionInput(screencap.KeyResolutionX),
		p.resolutionInput(screencap.KeyResolutionY),
		{kind: controlButton, label: "Set to screen size", press: p.screenSize},
		{kind: controlButton, label: "Rotate 90°", press: p.rotate},
		{kind: controlStepper, key: screencap.KeyDownscale, step: 1},
		{kind: controlToggle, key: screencap.KeyCaptureAlpha},
		{kind: controlStepper, key: screencap.KeyEyeSeparation, step: 0.01},
		{kind: controlStepper, key: screencap.KeyImageOffset, step: 0.01},
		{kind: controlChoice, key: screencap.KeyResolution360},
		{kind: controlToggle, key: screencap.KeyMessages},
	}
	for _, c := range p.controls {
		if c.label != "" {
			continue
		}
		if s, ok := policy.Setting(c.key); ok {
			c.label = s.Label
		} else {
			c.label = c.key
		}
	}
	return p
}

func (p *settingsPanel) resolutionInput(name string) *control {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 5
	ti.Width = 6
	ti.Placeholder = strconv.Itoa(screencap.ResolutionMax)

	label := name
	if s, ok := p.policy.Setting(name); ok {
		label = s.Label
	}
	return &control{kind: controlInput, key: name, label: label, input: ti}
}

// Show opens the panel with the first control focused.
func (p *settingsPanel) Show() tea.Cmd {
	p.open = true
	p.focus = 0
	p.sync()
	return p.focusCurrent()
}

// Hide commits the focused field and closes the panel.
func (p *settingsPanel) Hide() {
	p.blurCurrent()
	p.open = false
}

// Open reports whether the panel is visible.
func (p *settingsPanel) Open() bool {
	return p.open
}

// Editing reports whether a text field has focus.
func (p *settingsPanel) Editing() bool {
	return p.open && p.current().kind == controlInput
}

func (p *settingsPanel) current() *control {
	return p.controls[p.focus]
}

// Update handles one key while the panel is open. It reports false once
// the panel has closed.
func (p *settingsPanel) Update(msg tea.KeyMsg, keys KeyMap) (tea.Cmd, bool) {
	c := p.current()

	switch {
	case key.Matches(msg, keys.Next):
		return p.move(1), true
	case key.Matches(msg, keys.Prev):
		return p.move(-1), true
	case msg.Type == tea.KeyEsc:
		p.Hide()
		return nil, false
	case key.Matches(msg, keys.ScreenSize):
		p.blurCurrent()
		p.screenSize()
		return p.focusCurrent(), true
	case key.Matches(msg, keys.RotateRatio):
		p.blurCurrent()
		p.rotate()
		return p.focusCurrent(), true
	}

	if c.kind == controlInput {
		if msg.Type == tea.KeyEnter {
			p.commit(c)
			return nil, true
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return cmd, true
	}

	switch {
	case key.Matches(msg, keys.ClosePanel):
		p.Hide()
		return nil, false
	case key.Matches(msg, keys.Decrease):
		p.adjust(c, -1)
	case key.Matches(msg, keys.Increase):
		p.adjust(c, 1)
	case key.Matches(msg, keys.Activate):
		p.activate(c)
	}
	return nil, true
}

func (p *settingsPanel) move(delta int) tea.Cmd {
	p.blurCurrent()
	n := len(p.controls)
	p.focus = ((p.focus+delta)%n + n) % n
	return p.focusCurrent()
}

func (p *settingsPanel) focusCurrent() tea.Cmd {
	if c := p.current(); c.kind == controlInput {
		c.input.CursorEnd()
		return c.input.Focus()
	}
	return nil
}

// blurCurrent is where a malformed resolution falls back to the stored value.
func (p *settingsPanel) blurCurrent() {
	if c := p.current(); c.kind == controlInput && c.input.Focused() {
		c.input.Blur()
		p.commit(c)
	}
}

func (p *settingsPanel) commit(c *control) {
	v, err := p.policy.Apply(c.key, c.input.Value())
	if err != nil {
		p.logger.Warn("setting not saved", "setting", c.key, "error", err)
	}
	if v == nil {
		v = p.value(c.key)
	}
	c.input.SetValue(cast.ToString(v))
}

func (p *settingsPanel) adjust(c *control, dir float64) {
	switch c.kind {
	case controlStepper:
		p.apply(c.key, roundTo(p.number(c.key)+dir*c.step, 4))
	case controlChoice:
		p.apply(c.key, p.nextChoice(c.key, dir))
	case controlToggle:
		p.apply(c.key, !p.policy.Bool(c.key))
	}
}

func (p *settingsPanel) activate(c *control) {
	switch c.kind {
	case controlButton:
		c.press()
	case controlToggle:
		p.apply(c.key, !p.policy.Bool(c.key))
	case controlChoice:
		p.apply(c.key, p.nextChoice(c.key, 1))
	}
}

// nextChoice steps through the allowed values, wrapping at either end.
func (p *settingsPanel) nextChoice(name string, dir float64) float64 {
	s, ok := p.policy.Setting(name)
	if !ok || len(s.Allowed) == 0 {
		return 0
	}
	cur := p.number(name)
	idx := 0
	for i, a := range s.Allowed {
		if a == cur {
			idx = i
		}
	}
	n := len(s.Allowed)
	return s.Allowed[((idx+int(dir))%n+n)%n]
}

func (p *settingsPanel) screenSize() {
	p.apply(screencap.KeyResolutionX, p.host.Width)
	p.apply(screencap.KeyResolutionY, p.host.Height)
	p.sync()
}

func (p *settingsPanel) rotate() {
	w, h := p.policy.Int(screencap.KeyResolutionX), p.policy.Int(screencap.KeyResolutionY)
	p.apply(screencap.KeyResolutionX, h)
	p.apply(screencap.KeyResolutionY, w)
	p.sync()
}

func (p *settingsPanel) apply(name string, raw any) {
	if _, err := p.policy.Apply(name, raw); err != nil {
		p.logger.Warn("setting not saved", "setting", name, "error", err)
	}
}

// sync copies stored values into the text fields.
func (p *settingsPanel) sync() {
	for _, c := range p.controls {
		if c.kind == controlInput {
			c.input.SetValue(cast.ToString(p.value(c.key)))
		}
	}
}

func (p *settingsPanel) number(name string) float64 {
	return cast.ToFloat64(p.value(name))
}

func (p *settingsPanel) value(name string) any {
	return p.policy.Value(name)
}

// View renders one line per control, the focused one highlighted.
func (p *settingsPanel) View(st styles) string {
	var b strings.Builder
	b.WriteString(st.heading.Render("Screenshot settings"))
	b.WriteString("\n")

	for i, c := range p.controls {
		line := fmt.Sprintf("%-40s %s", c.label, p.render(c))
		if i == p.focus {
			b.WriteString(st.focused.Render("> " + line))
		} else {
			b.WriteString(st.normal.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString(st.help.Render("tab move · ←/→ adjust · enter apply · esc close"))
	return st.panel.Render(b.String())
}

func (p *settingsPanel) render(c *control) string {
	switch c.kind {
	case controlInput:
		return "[" + c.input.View() + "]"
	case controlButton:
		return ""
	case controlToggle:
		if p.policy.Bool(c.key) {
			return "[x]"
		}
		return "[ ]"
	case controlStepper:
		if s, ok := p.policy.Setting(c.key); ok && s.Kind == screencap.KindInt {
			return fmt.Sprintf("< %d >", p.policy.Int(c.key))
		}
		return fmt.Sprintf("< %.2f >", roundTo(p.policy.Float(c.key), 2))
	case controlChoice:
		return fmt.Sprintf("< %d >", p.policy.Int(c.key))
	}
	return ""
}

func roundTo(v float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Round(v*m) / m
}
