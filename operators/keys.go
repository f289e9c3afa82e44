package operators

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the capture hotkeys and settings panel controls.
type KeyMap struct {
	Simple      key.Binding
	Rendered    key.Binding
	Panorama    key.Binding
	Rendered3D  key.Binding
	Panorama3D  key.Binding
	Settings    key.Binding
	Orbit       key.Binding
	TurnLeft    key.Binding
	TurnRight   key.Binding
	Quit        key.Binding
	Next        key.Binding
	Prev        key.Binding
	Decrease    key.Binding
	Increase    key.Binding
	Activate    key.Binding
	ClosePanel  key.Binding
	ScreenSize  key.Binding
	RotateRatio key.Binding
}

// DefaultKeyMap mirrors the usual game screenshot keys: F9 for a UI
// screenshot and F11 for a rendered one.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Simple:      key.NewBinding(key.WithKeys("1", "f9"), key.WithHelp("1/f9", "UI screenshot")),
		Rendered:    key.NewBinding(key.WithKeys("2", "f11"), key.WithHelp("2/f11", "rendered")),
		Panorama:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "360")),
		Rendered3D:  key.NewBinding(key.WithKeys("4", "alt+f11"), key.WithHelp("4", "rendered 3D")),
		Panorama3D:  key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "360 3D")),
		Settings:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Orbit:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "toggle orbit")),
		TurnLeft:    key.NewBinding(key.WithKeys("left", "a"), key.WithHelp("←", "turn")),
		TurnRight:   key.NewBinding(key.WithKeys("right", "d"), key.WithHelp("→", "turn")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Next:        key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
		Prev:        key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
		Decrease:    key.NewBinding(key.WithKeys("left", "-"), key.WithHelp("←", "less")),
		Increase:    key.NewBinding(key.WithKeys("right", "+"), key.WithHelp("→", "more")),
		Activate:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "apply")),
		ClosePanel:  key.NewBinding(key.WithKeys("esc", "s"), key.WithHelp("esc", "close")),
		ScreenSize:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "screen size")),
		RotateRatio: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "rotate 90°")),
	}
}
