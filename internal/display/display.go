// Package display models the host container an animation renders into.
//
// A Display holds an ordered list of Line elements. The engine creates a
// Line per authored line, appends it and then mutates its text and visual
// states while animating. Hosts (the terminal UI, the headless printer,
// tests) observe changes through the Buffer observer hook.
package display

import "errors"

// ErrClosed is returned when appending to a display that has been closed
var ErrClosed = errors.New("display is closed")

// State is a transient visual state of a line
type State string

const (
	// StateCursor marks a line that is currently being typed
	StateCursor State = "cursor"
	// StateFadeIn marks a revealed line that has started fading in
	StateFadeIn State = "fade-in"
	// StateFadeInComplete marks a revealed line whose fade-in has finished
	StateFadeInComplete State = "fade-in-complete"
)

// Display is the sink lines are rendered into
type Display interface {
	// Append attaches a line, keeping lines sorted by Spec.Order. Appending
	// a line that is already attached is a no-op.
	Append(line *Line) error
	// Has reports whether a line with the given id is currently rendered
	Has(id string) bool
	// Clear removes every rendered line
	Clear()
}
