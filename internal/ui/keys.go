package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the terminal host
type KeyMap struct {
	// Playback
	Start   key.Binding
	Pause   key.Binding
	Speed   key.Binding
	Restart key.Binding

	// Affordances
	Copy       key.Binding
	Fullscreen key.Binding

	// Scrolling
	Up   key.Binding
	Down key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/play"),
		),
		Speed: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fast/normal"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Fullscreen: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "fullscreen"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns a short help string
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Speed, k.Restart, k.Help, k.Quit}
}

// FullHelp returns the full help string
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Speed, k.Restart},
		{k.Copy, k.Fullscreen, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
