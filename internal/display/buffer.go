package display

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Buffer is an in-memory Display. Its id is the container identity used by
// the instance registry.
type Buffer struct {
	id string

	mu       sync.RWMutex
	lines    []*Line
	index    map[string]*Line
	observer func()
	closed   bool
}

// BufferOption configures a Buffer
type BufferOption func(*Buffer)

// WithObserver registers a callback invoked after every visible change
func WithObserver(fn func()) BufferOption {
	return func(b *Buffer) {
		b.observer = fn
	}
}

// WithID sets the container id instead of generating one
func WithID(id string) BufferOption {
	return func(b *Buffer) {
		b.id = id
	}
}

// NewBuffer creates an empty buffer
func NewBuffer(opts ...BufferOption) *Buffer {
	b := &Buffer{
		id:    uuid.NewString(),
		index: make(map[string]*Line),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the container identity
func (b *Buffer) ID() string { return b.id }

// Append attaches a line after every line whose Order is not greater. A
// different line with an id already shown takes the old line's place.
func (b *Buffer) Append(line *Line) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if existing, ok := b.index[line.ID()]; ok {
		if existing == line {
			b.mu.Unlock()
			return nil
		}
		b.lines[slices.Index(b.lines, existing)] = line
		b.index[line.ID()] = line
		b.mu.Unlock()

		existing.attach(nil)
		line.attach(b.changed)
		b.changed()
		return nil
	}
	at := len(b.lines)
	for at > 0 && b.lines[at-1].spec.Order > line.spec.Order {
		at--
	}
	b.lines = slices.Insert(b.lines, at, line)
	b.index[line.ID()] = line
	b.mu.Unlock()

	line.attach(b.changed)
	b.changed()
	return nil
}

// Has reports whether a line with id is rendered
func (b *Buffer) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.index[id]
	return ok
}

// Clear removes all lines
func (b *Buffer) Clear() {
	b.mu.Lock()
	for _, l := range b.lines {
		l.attach(nil)
	}
	b.lines = nil
	b.index = make(map[string]*Line)
	b.mu.Unlock()

	b.changed()
}

// Close clears the buffer and rejects further appends
func (b *Buffer) Close() {
	b.Clear()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Lines returns the rendered lines in display order
func (b *Buffer) Lines() []*Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Line(nil), b.lines...)
}

// Line returns the rendered line with the given id
func (b *Buffer) Line(id string) (*Line, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	l, ok := b.index[id]
	return l, ok
}

// Len returns the number of rendered lines
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Text returns the visible text of all lines joined by newlines
func (b *Buffer) Text() string {
	lines := b.Lines()
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text()
	}
	return strings.Join(texts, "\n")
}

func (b *Buffer) changed() {
	b.mu.RLock()
	observer := b.observer
	b.mu.RUnlock()

	if observer != nil {
		observer()
	}
}
