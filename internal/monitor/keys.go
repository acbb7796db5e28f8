package monitor

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the live monitor.
type KeyMap struct {
	// Requests sent to the services.
	Current  key.Binding
	Previous key.Binding
	Network  key.Binding
	Plot     key.Binding

	ToggleUnit key.Binding
	Dismiss    key.Binding // Acknowledge the notice on top.
	Quit       key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Current: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "current"),
	),
	Previous: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "previous"),
	),
	Network: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "network test"),
	),
	Plot: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "plot"),
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

func (k KeyMap) footer() []key.Binding {
	return []key.Binding{k.Current, k.Previous, k.Network, k.Plot, k.ToggleUnit, k.Quit}
}
