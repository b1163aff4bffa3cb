package display

import "sync"

// Spec describes the static attributes of a line element
type Spec struct {
	Type        string
	Prompt      string
	PromptColor string
	Class       string

	// Order positions the line within its display; lines with equal
	// Order keep their append order
	Order int
}

// Line is a single rendered line. It is safe for concurrent use.
type Line struct {
	id   string
	spec Spec

	mu     sync.RWMutex
	text   string
	plain  string
	markup bool
	states map[State]bool
	frames []string
	notify func()
}

// NewLine creates a detached line element
func NewLine(id string, spec Spec) *Line {
	return &Line{
		id:     id,
		spec:   spec,
		states: make(map[State]bool),
	}
}

// ID returns the line identifier
func (l *Line) ID() string { return l.id }

// Spec returns the static attributes of the line
func (l *Line) Spec() Spec { return l.spec }

// SetText replaces the visible text with plain text and records a frame
func (l *Line) SetText(text string) {
	l.set(text, text, false)
}

// SetMarkup replaces the visible text with pre-rendered markup of plain
// and records a frame
func (l *Line) SetMarkup(markup, plain string) {
	l.set(markup, plain, true)
}

func (l *Line) set(text, plain string, markup bool) {
	l.mu.Lock()
	l.text = text
	l.plain = plain
	l.markup = markup
	l.frames = append(l.frames, text)
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Text returns the current text
func (l *Line) Text() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.text
}

// PlainText returns the current text without markup
func (l *Line) PlainText() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.plain
}

// IsMarkup reports whether the current text is rendered markup
func (l *Line) IsMarkup() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.markup
}

// Frames returns every text the line has displayed, in order
func (l *Line) Frames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.frames...)
}

// AddState sets a visual state
func (l *Line) AddState(s State) {
	l.setState(s, true)
}

// RemoveState clears a visual state
func (l *Line) RemoveState(s State) {
	l.setState(s, false)
}

func (l *Line) setState(s State, on bool) {
	l.mu.Lock()
	if on {
		l.states[s] = true
	} else {
		delete(l.states, s)
	}
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// HasState reports whether a visual state is set
func (l *Line) HasState(s State) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.states[s]
}

func (l *Line) attach(notify func()) {
	l.mu.Lock()
	l.notify = notify
	l.mu.Unlock()
}
