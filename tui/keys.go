package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap is the dashboard's whole key set: cursor movement with wrapping,
// space to fold or unfold the selected group, q to leave.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up")),
	Down:   key.NewBinding(key.WithKeys("down")),
	Toggle: key.NewBinding(key.WithKeys(" ")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}
