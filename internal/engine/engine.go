// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
	"github.com/sirupsen/logrus"
)

// ControlPanel is the set of on-screen affordances the engine keeps in sync
type ControlPanel interface {
	RemoveStartPrompt()
	ShowPaused(paused bool)
	ShowFast(fast bool)
	ResetButtons()
	UpdateProgressInfo()
}

type noPanel struct{}

func (noPanel) RemoveStartPrompt()  {}
func (noPanel) ShowPaused(bool)     {}
func (noPanel) ShowFast(bool)       {}
func (noPanel) ResetButtons()       {}
func (noPanel) UpdateProgressInfo() {}

// Engine plays a configured script into a display
type Engine struct {
	logger  *logrus.Logger
	ec      *EngineConfig
	display display.Display
	panel   ControlPanel

	timers   *TimerService
	queue    *QueueBuilder
	events   *EventHub
	animator *Animator

	instanceID string

	// Lifetime of the engine; every run context derives from it
	root       context.Context
	rootCancel context.CancelFunc

	mu        sync.RWMutex
	cfg       *config.Config
	original  Timing
	timing    Timing
	state     PlaybackState
	phase     Phase
	lineQueue []QueuedLine
	processed map[string]bool
	pauseCh   chan struct{} // closed on resume
	runCancel context.CancelFunc
	runDone   chan struct{} // closed when the latest run goroutine returns
	destroyed bool
}

// NewEngine creates an engine for cfg rendering into d. panel may be nil
// and ec may be nil for the defaults.
func NewEngine(logger *logrus.Logger, cfg *config.Config, d display.Display, panel ControlPanel, ec *EngineConfig) *Engine {
	ec = ec.withDefaults()
	if panel == nil {
		panel = noPanel{}
	}

	cfg = cfg.Clone()
	timing := Timing{
		StartDelay: cfg.StartDelay,
		TypeDelay:  cfg.TypeDelay,
		LineDelay:  cfg.LineDelay,
	}

	root, cancel := context.WithCancel(context.Background())

	e := &Engine{
		logger:     logger,
		ec:         ec,
		display:    d,
		panel:      panel,
		timers:     NewTimerService(),
		queue:      NewQueueBuilder(),
		events:     NewEventHub(logger, ec.BufferSize),
		instanceID: config.InstanceID(cfg),
		root:       root,
		rootCancel: cancel,
		cfg:        cfg,
		original:   timing,
		timing:     timing,
		phase:      PhaseIdle,
		processed:  make(map[string]bool),
	}
	e.animator = newAnimator(e, d, ec)
	e.lineQueue = e.queue.Build(cfg.Lines)

	return e
}

// SetControlPanel replaces the affordances kept in sync by the engine
func (e *Engine) SetControlPanel(panel ControlPanel) {
	if panel == nil {
		panel = noPanel{}
	}
	e.mu.Lock()
	e.panel = panel
	e.mu.Unlock()
}

func (e *Engine) controls() ControlPanel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.panel
}

// InstanceID returns the stable identifier derived from the configuration
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Events returns the engine's event hub
func (e *Engine) Events() *EventHub {
	return e.events
}

// On subscribes fn to event
func (e *Engine) On(event EventType, fn Handler) Subscription {
	return e.events.On(event, fn)
}

// Off removes a subscription
func (e *Engine) Off(sub Subscription) {
	e.events.Off(sub)
}

// Timers returns the timer service shared by the engine and its affordances
func (e *Engine) Timers() *TimerService {
	return e.timers
}

// Phase returns the current state machine position
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// State returns a snapshot of the playback bookkeeping
func (e *Engine) State() PlaybackState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// IsRunning returns whether a run is in progress
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Running
}

// IsPaused returns whether the current run is paused
func (e *Engine) IsPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Paused
}

// IsDestroyed returns whether Destroy has been called
func (e *Engine) IsDestroyed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.destroyed
}

// CurrentLine returns the authored index of the most recently started line
func (e *Engine) CurrentLine() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.CurrentLine
}

// TotalLines returns the number of authored lines
func (e *Engine) TotalLines() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cfg.Lines)
}

// Elapsed returns run time excluding paused time
func (e *Engine) Elapsed() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.elapsed(e.ec.Clock())
}

func (e *Engine) setPhaseLocked(phase Phase) {
	if e.phase == phase {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"instance":  e.instanceID,
		"old_state": e.phase.String(),
		"new_state": phase.String(),
	}).Debug("Playback state changed")
	e.phase = phase
}

// releasePauseLocked wakes everything blocked in waitPause
func (e *Engine) releasePauseLocked() {
	if e.pauseCh != nil {
		close(e.pauseCh)
		e.pauseCh = nil
	}
}

// playback implementation consulted by the animator

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	return e.timers.Sleep(ctx, d)
}

func (e *Engine) waitPause(ctx context.Context) error {
	for {
		e.mu.RLock()
		ch := e.pauseCh
		e.mu.RUnlock()

		if ch == nil {
			break
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ErrAborted
		}
	}

	if ctx.Err() != nil {
		return ErrAborted
	}
	return nil
}

func (e *Engine) active(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Running
}

func (e *Engine) typeDelay() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return millis(e.timing.TypeDelay)
}

func (e *Engine) highlightSyntax() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.HighlightSyntax
}

func (e *Engine) now() time.Time {
	return e.ec.Clock()
}
