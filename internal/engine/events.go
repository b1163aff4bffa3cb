// internal/engine/events.go
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/sirupsen/logrus"
)

// EventType names a lifecycle notification
type EventType string

const (
	EventStart        EventType = "start"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
	EventPause        EventType = "pause"
	EventResume       EventType = "resume"
	EventStop         EventType = "stop"
	EventLineStart    EventType = "lineStart"
	EventLineComplete EventType = "lineComplete"
	EventLineError    EventType = "lineError"
	EventLazyLoaded   EventType = "lazyLoaded"
)

// Event is a lifecycle notification. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType      `json:"type"`
	InstanceID string         `json:"instanceId"`
	Timestamp  time.Time      `json:"timestamp"`
	Index      int            `json:"index"`
	Line       *config.Line   `json:"line,omitempty"`
	TotalLines int            `json:"totalLines,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty"`
	Err        error          `json:"-"`
	Error      string         `json:"error,omitempty"`
	Config     *config.Config `json:"-"`
}

// Handler receives events
type Handler func(Event)

// Subscription identifies a registered handler
type Subscription struct {
	event EventType
	id    uint64
}

// EventHub is a publish/subscribe hub keyed by event type. A panicking
// handler is logged and does not affect other handlers.
type EventHub struct {
	logger *logrus.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventType]map[uint64]Handler
	order    map[EventType][]uint64

	subscriberMu sync.RWMutex
	subscribers  map[chan Event]struct{}
	bufferSize   int
}

// NewEventHub creates an empty hub; bufferSize is the capacity of channels
// returned by Subscribe
func NewEventHub(logger *logrus.Logger, bufferSize int) *EventHub {
	return &EventHub{
		logger:      logger,
		handlers:    make(map[EventType]map[uint64]Handler),
		order:       make(map[EventType][]uint64),
		subscribers: make(map[chan Event]struct{}),
		bufferSize:  bufferSize,
	}
}

// On registers fn for event
func (h *EventHub) On(event EventType, fn Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.handlers[event] == nil {
		h.handlers[event] = make(map[uint64]Handler)
	}
	h.handlers[event][id] = fn
	h.order[event] = append(h.order[event], id)

	return Subscription{event: event, id: id}
}

// Off removes a handler registered with On
func (h *EventHub) Off(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers, ok := h.handlers[sub.event]
	if !ok {
		return
	}
	delete(handlers, sub.id)

	ids := h.order[sub.event]
	for i, id := range ids {
		if id == sub.id {
			h.order[sub.event] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}

	if len(handlers) == 0 {
		delete(h.handlers, sub.event)
		delete(h.order, sub.event)
	}
}

// Subscribe returns a channel receiving every event until ctx is done
func (h *EventHub) Subscribe(ctx context.Context) <-chan Event {
	h.subscriberMu.Lock()
	defer h.subscriberMu.Unlock()

	ch := make(chan Event, h.bufferSize)
	h.subscribers[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		h.subscriberMu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.subscriberMu.Unlock()
	}()

	return ch
}

// Emit delivers ev to every handler registered for its type, in
// registration order, then fans it out to channel subscribers
func (h *EventHub) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Err != nil && ev.Error == "" {
		ev.Error = ev.Err.Error()
	}

	h.mu.RLock()
	var handlers []Handler
	for _, id := range h.order[ev.Type] {
		if fn, ok := h.handlers[ev.Type][id]; ok {
			handlers = append(handlers, fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		h.call(fn, ev)
	}

	h.subscriberMu.RLock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.logger.WithField("event", ev.Type).Warn("Event subscriber channel is full")
		}
	}
	h.subscriberMu.RUnlock()
}

func (h *EventHub) call(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithFields(logrus.Fields{
				"event": ev.Type,
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Event listener failed")
		}
	}()
	fn(ev)
}

// HandlerCount returns the number of handlers registered for event
func (h *EventHub) HandlerCount(event EventType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[event])
}

// RemoveAllListeners drops every handler and closes every subscriber channel
func (h *EventHub) RemoveAllListeners() {
	h.mu.Lock()
	h.handlers = make(map[EventType]map[uint64]Handler)
	h.order = make(map[EventType][]uint64)
	h.mu.Unlock()

	h.subscriberMu.Lock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan Event]struct{})
	h.subscriberMu.Unlock()
}
