package viewer

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the queue viewer.
type KeyMap struct {
	Next       key.Binding
	DrainAll   key.Binding
	ToggleUnit key.Binding
	Dismiss    key.Binding
	Quit       key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("n", "down", "j"),
		key.WithHelp("n", "next"),
	),
	DrainAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "drain all"),
	),
	ToggleUnit: key.NewBinding(
		key.WithKeys("u", "t"),
		key.WithHelp("u", "°C/°F"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("enter", "esc", " "),
		key.WithHelp("enter", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
