// internal/engine/controls.go
package engine

import (
	"math"
	"strings"

	"github.com/jdharms/termynal/internal/config"
	"github.com/sirupsen/logrus"
)

// Pause pauses a running, unpaused playback. The current step finishes;
// the next one waits for Resume.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.state.Running || e.state.Paused {
		e.mu.Unlock()
		return
	}
	e.state.Paused = true
	e.state.PauseStart = e.ec.Clock()
	e.pauseCh = make(chan struct{})
	e.setPhaseLocked(PhasePaused)
	index := e.state.CurrentLine
	panel := e.panel
	e.mu.Unlock()

	e.logger.WithField("instance", e.instanceID).Info("Playback paused")
	panel.ShowPaused(true)
	e.events.Emit(Event{Type: EventPause, InstanceID: e.instanceID, Index: index})
}

// Resume continues a paused playback, accounting the pause as dead time
func (e *Engine) Resume() {
	e.mu.Lock()
	if !e.state.Running || !e.state.Paused {
		e.mu.Unlock()
		return
	}
	e.state.PausedTime += e.ec.Clock().Sub(e.state.PauseStart)
	e.state.Paused = false
	e.releasePauseLocked()
	e.setPhaseLocked(PhaseRunning)
	index := e.state.CurrentLine
	panel := e.panel
	e.mu.Unlock()

	e.logger.WithField("instance", e.instanceID).Info("Playback resumed")
	panel.ShowPaused(false)
	e.events.Emit(Event{Type: EventResume, InstanceID: e.instanceID, Index: index})
}

// TogglePause pauses or resumes
func (e *Engine) TogglePause() {
	if e.IsPaused() {
		e.Resume()
	} else {
		e.Pause()
	}
}

// IsFast reports whether instant typing is active
func (e *Engine) IsFast() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.timing.TypeDelay == 0
}

// ToggleSpeed swaps between the configured timing and instant mode
func (e *Engine) ToggleSpeed() {
	e.mu.Lock()
	fast := e.timing.TypeDelay == 0
	if fast {
		e.timing = e.original
	} else {
		e.timing = Timing{
			StartDelay: 0,
			TypeDelay:  0,
			LineDelay:  int(e.ec.FastLineDelay.Milliseconds()),
		}
	}
	panel := e.panel
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"instance": e.instanceID,
		"fast":     !fast,
	}).Info("Playback speed changed")
	panel.ShowFast(!fast)
}

// SetSpeed selects instant mode (fast) or the configured timing
func (e *Engine) SetSpeed(fast bool) {
	if e.IsFast() != fast {
		e.ToggleSpeed()
	}
}

// Timing returns the timing currently in effect
func (e *Engine) Timing() Timing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.timing
}

// SetTiming updates the timing in effect and the timing restored by
// Restart and by leaving instant mode
func (e *Engine) SetTiming(p TimingPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timing = e.timing.apply(p)
	e.original = e.original.apply(p)
}

// Config returns a copy of the configuration
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Clone()
}

// UpdateConfig sets a single option. Timing options also change the
// timing in effect, but not the timing restored by Restart.
func (e *Engine) UpdateConfig(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cfg.Set(key, value); err != nil {
		return err
	}

	switch strings.ToLower(key) {
	case "startdelay":
		e.timing.StartDelay = e.cfg.StartDelay
	case "typedelay":
		e.timing.TypeDelay = e.cfg.TypeDelay
	case "linedelay":
		e.timing.LineDelay = e.cfg.LineDelay
	}

	return nil
}

// AddLine inserts line before index, or appends it when index is out of
// range (conventionally -1)
func (e *Engine) AddLine(line config.Line, index int) {
	e.AddLines([]config.Line{line}, index)
}

// AddLines inserts lines before index, or appends them when index is out
// of range (conventionally -1)
func (e *Engine) AddLines(lines []config.Line, index int) {
	added := config.CloneLines(lines)

	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index > len(e.cfg.Lines) {
		e.cfg.Lines = append(e.cfg.Lines, added...)
	} else {
		merged := make([]config.Line, 0, len(e.cfg.Lines)+len(added))
		merged = append(merged, e.cfg.Lines[:index]...)
		merged = append(merged, added...)
		merged = append(merged, e.cfg.Lines[index:]...)
		e.cfg.Lines = merged
	}
	e.rebuildQueueLocked()
}

// RemoveLine deletes the line at index. Out of range indexes are ignored.
func (e *Engine) RemoveLine(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.cfg.Lines) {
		return false
	}
	e.cfg.Lines = append(e.cfg.Lines[:index:index], e.cfg.Lines[index+1:]...)
	e.rebuildQueueLocked()
	return true
}

// UpdateLine applies fn to a copy of the line at index and stores the
// result. Out of range indexes are ignored.
func (e *Engine) UpdateLine(index int, fn func(*config.Line) error) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.cfg.Lines) {
		return false, nil
	}

	line := e.cfg.Lines[index].Clone()
	if err := fn(&line); err != nil {
		return false, err
	}
	e.cfg.Lines[index] = line
	e.rebuildQueueLocked()
	return true, nil
}

// SetLines replaces every authored line
func (e *Engine) SetLines(lines []config.Line) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Lines = config.CloneLines(lines)
	e.rebuildQueueLocked()
}

// Lines returns a copy of the authored lines
func (e *Engine) Lines() []config.Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return config.CloneLines(e.cfg.Lines)
}

func (e *Engine) rebuildQueueLocked() {
	e.queue.Invalidate()
	e.lineQueue = e.queue.Build(e.cfg.Lines)
}

// SkipToLine moves the reported position to index. Out of range indexes
// are ignored.
func (e *Engine) SkipToLine(index int) bool {
	e.mu.Lock()
	if index < 0 || index >= len(e.cfg.Lines) {
		e.mu.Unlock()
		return false
	}
	e.state.CurrentLine = index
	panel := e.panel
	e.mu.Unlock()

	panel.UpdateProgressInfo()
	return true
}

// Progress reports the current line (1-based) against the total
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := Progress{
		Current: e.state.CurrentLine + 1,
		Total:   len(e.cfg.Lines),
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(float64(p.Current) / float64(p.Total) * 100))
	}
	return p
}

// PerformanceInfo reports timer, cache and bookkeeping sizes
func (e *Engine) PerformanceInfo() PerformanceInfo {
	e.mu.RLock()
	processed := len(e.processed)
	e.mu.RUnlock()

	return PerformanceInfo{
		ActiveTimers:   e.timers.ActiveCount(),
		CacheSize:      e.queue.CacheSize(),
		ProcessedLines: processed,
		InstanceID:     e.instanceID,
	}
}
