package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAborted is returned by waits that were cancelled by stop, restart or
// destroy. It is never reported as a failure.
var ErrAborted = errors.New("playback aborted")

// TimerService tracks every pending delay, delayed callback and periodic
// callback so they can all be abandoned at once
type TimerService struct {
	mu        sync.Mutex
	nextID    uint64
	sleeps    map[uint64]chan struct{}
	callbacks map[uint64]*time.Timer
	intervals map[string]chan struct{}
}

// NewTimerService creates an empty timer service
func NewTimerService() *TimerService {
	return &TimerService{
		sleeps:    make(map[uint64]chan struct{}),
		callbacks: make(map[uint64]*time.Timer),
		intervals: make(map[string]chan struct{}),
	}
}

// Sleep blocks for d. It returns ErrAborted if ClearAll is called or ctx is
// done first. A non-positive d only checks for cancellation.
func (ts *TimerService) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return ErrAborted
		}
		return nil
	}

	cancel := make(chan struct{})
	ts.mu.Lock()
	ts.nextID++
	id := ts.nextID
	ts.sleeps[id] = cancel
	ts.mu.Unlock()

	timer := time.NewTimer(d)
	defer func() {
		timer.Stop()
		ts.mu.Lock()
		delete(ts.sleeps, id)
		ts.mu.Unlock()
	}()

	select {
	case <-timer.C:
		return nil
	case <-cancel:
		return ErrAborted
	case <-ctx.Done():
		return ErrAborted
	}
}

// After runs fn once after d unless ClearAll is called first
func (ts *TimerService) After(d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.nextID++
	id := ts.nextID
	ts.callbacks[id] = time.AfterFunc(d, func() {
		ts.mu.Lock()
		_, pending := ts.callbacks[id]
		delete(ts.callbacks, id)
		ts.mu.Unlock()

		if pending {
			fn()
		}
	})
}

// Every runs fn every d under the given name, replacing any periodic
// callback already registered with that name
func (ts *TimerService) Every(name string, d time.Duration, fn func()) {
	stop := make(chan struct{})

	ts.mu.Lock()
	if prev, ok := ts.intervals[name]; ok {
		close(prev)
	}
	ts.intervals[name] = stop
	ts.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Cancel stops the periodic callback registered under name
func (ts *TimerService) Cancel(name string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if stop, ok := ts.intervals[name]; ok {
		close(stop)
		delete(ts.intervals, name)
	}
}

// ClearAll abandons every pending sleep, callback and periodic callback
func (ts *TimerService) ClearAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for id, cancel := range ts.sleeps {
		close(cancel)
		delete(ts.sleeps, id)
	}
	for id, timer := range ts.callbacks {
		timer.Stop()
		delete(ts.callbacks, id)
	}
	for name, stop := range ts.intervals {
		close(stop)
		delete(ts.intervals, name)
	}
}

// ActiveCount returns the number of pending timers of all kinds
func (ts *TimerService) ActiveCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.sleeps) + len(ts.callbacks) + len(ts.intervals)
}
