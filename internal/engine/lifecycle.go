// internal/engine/lifecycle.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const (
	renderErrorText = "[Error rendering line]"
	progressTimer   = "progress"
)

// Start begins a run in the background. It is a no-op while a run is in
// progress, while a restart is pending (the restart starts the next run)
// and after Destroy.
func (e *Engine) Start() {
	e.start(false)
}

func (e *Engine) start(fromRestart bool) {
	e.mu.Lock()
	if e.destroyed || e.state.Running || (e.state.Restarting && !fromRestart) {
		e.mu.Unlock()
		return
	}

	// Cancel the previous run and create a context for this one
	if e.runCancel != nil {
		e.runCancel()
	}
	ctx, cancel := context.WithCancel(e.root)
	e.runCancel = cancel
	prev := e.runDone
	done := make(chan struct{})
	e.runDone = done

	// Reset per-run counters
	e.state = PlaybackState{
		Running:   true,
		StartTime: e.ec.Clock(),
	}
	e.releasePauseLocked()
	e.setPhaseLocked(PhaseStarting)

	snapshot := e.cfg.Clone()
	total := len(e.cfg.Lines)
	panel := e.panel
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"instance": e.instanceID,
		"lines":    total,
	}).Info("Starting playback")

	panel.RemoveStartPrompt()
	e.timers.Every(progressTimer, time.Second, func() {
		e.controls().UpdateProgressInfo()
	})
	e.events.Emit(Event{Type: EventStart, InstanceID: e.instanceID, Config: snapshot, TotalLines: total})

	// Start the playback loop
	go e.run(ctx, prev, done)
}

// run drives one playback from the initial delay to completion. It does not
// touch the display until the previous run has returned.
func (e *Engine) run(ctx context.Context, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("stack", string(debug.Stack())).Error("Playback panicked")
			e.fail(ctx, fmt.Errorf("playback panicked: %v", r))
		}
	}()

	if prev != nil {
		<-prev
	}

	// Wait out the initial delay
	e.mu.RLock()
	startDelay := millis(e.timing.StartDelay)
	e.mu.RUnlock()

	if err := e.wait(ctx, startDelay); err != nil {
		return
	}

	e.mu.Lock()
	if ctx.Err() == nil {
		e.setPhaseLocked(PhaseRunning)
	}
	e.mu.Unlock()

	// Process lines until the queue is exhausted or the run is cancelled
	if err := e.processQueue(ctx); err != nil {
		if !errors.Is(err, ErrAborted) {
			e.fail(ctx, err)
		}
		return
	}

	// Mark the run complete
	e.mu.Lock()
	if ctx.Err() != nil || !e.state.Running {
		e.mu.Unlock()
		return
	}
	e.state.Running = false
	e.state.Paused = false
	e.releasePauseLocked()
	e.setPhaseLocked(PhaseCompleted)
	total := len(e.cfg.Lines)
	elapsed := e.state.elapsed(e.ec.Clock())
	loop := e.cfg.Loop && !e.state.Restarting
	e.timers.Cancel(progressTimer)
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"instance": e.instanceID,
		"lines":    total,
		"elapsed":  elapsed.String(),
	}).Info("Playback complete")

	e.controls().UpdateProgressInfo()
	e.events.Emit(Event{Type: EventComplete, InstanceID: e.instanceID, TotalLines: total, Duration: elapsed})

	// Loop after a short settle
	if !loop {
		return
	}
	if err := e.wait(ctx, e.ec.LoopSettle); err != nil {
		return
	}
	e.Restart()
}

// fail marks the run stopped after an unexpected error and reports it
func (e *Engine) fail(ctx context.Context, err error) {
	e.mu.Lock()
	if ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.state.Running = false
	e.state.Paused = false
	e.releasePauseLocked()
	if e.runCancel != nil {
		e.runCancel()
	}
	e.setPhaseLocked(PhaseStopped)
	index := e.state.CurrentLine
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"instance": e.instanceID,
		"line":     index,
	}).WithError(err).Error("Playback failed")

	e.events.Emit(Event{Type: EventError, InstanceID: e.instanceID, Index: index, Err: err})
}

// processQueue walks the sorted queue, batching passive lines and
// rendering everything else one at a time
func (e *Engine) processQueue(ctx context.Context) error {
	e.mu.Lock()
	sortQueue(e.lineQueue)
	e.mu.Unlock()

	for i := 0; e.active(ctx); {
		queue := e.snapshotQueue()
		if i >= len(queue) {
			return nil
		}

		line := queue[i]
		id := LineID(e.instanceID, line.OriginalIndex)

		// Skip lines this run or an earlier one already rendered
		if e.isProcessed(line) || e.display.Has(id) {
			e.markProcessed(ctx, id)
			i++
			continue
		}

		if err := e.waitPause(ctx); err != nil {
			return err
		}

		// Passive lines render together
		if PassiveTypes[line.Type] {
			batch := CollectBatch(queue, i, e.isProcessed, PassiveTypes)
			if err := e.processBatch(ctx, batch); err != nil {
				return err
			}
			i += len(batch)
			continue
		}

		e.setCurrentLine(ctx, line.OriginalIndex)
		e.controls().UpdateProgressInfo()

		if err := e.processLine(ctx, e.createLine(line), line); err != nil {
			return err
		}
		e.markProcessed(ctx, id)

		if err := e.wait(ctx, e.delayAfter(line)); err != nil {
			return err
		}
		i++
	}

	return nil
}

// processBatch renders every line of batch concurrently and waits for all
// of them before applying the delay of the last member
func (e *Engine) processBatch(ctx context.Context, batch []QueuedLine) error {
	if len(batch) == 0 {
		return nil
	}

	first, last := batch[0], batch[len(batch)-1]

	e.setCurrentLine(ctx, first.OriginalIndex)
	e.controls().UpdateProgressInfo()

	elements := make([]*display.Line, len(batch))
	for i, line := range batch {
		elements[i] = e.createLine(line)
	}

	var aborted atomic.Bool
	var wg conc.WaitGroup
	for i := range batch {
		wg.Go(func() {
			if err := e.processLine(ctx, elements[i], batch[i]); err != nil {
				aborted.Store(true)
			}
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		return fmt.Errorf("batch render panicked: %v", r.Value)
	}

	if aborted.Load() || ctx.Err() != nil {
		return ErrAborted
	}

	for _, line := range batch {
		e.markProcessed(ctx, LineID(e.instanceID, line.OriginalIndex))
	}

	e.setCurrentLine(ctx, last.OriginalIndex)
	e.controls().UpdateProgressInfo()

	return e.wait(ctx, e.delayAfter(last))
}

// processLine animates a single line. Render failures are reported and
// replaced by the raw text; only ErrAborted is returned.
func (e *Engine) processLine(ctx context.Context, el *display.Line, line QueuedLine) error {
	index := e.CurrentLine()
	authored := line.Line.Clone()

	e.events.Emit(Event{Type: EventLineStart, InstanceID: e.instanceID, Line: &authored, Index: index})

	err := e.render(ctx, el, line)
	switch {
	case err == nil:
		e.events.Emit(Event{Type: EventLineComplete, InstanceID: e.instanceID, Line: &authored, Index: index})
		return nil
	case errors.Is(err, ErrAborted):
		return ErrAborted
	}

	e.logger.WithFields(logrus.Fields{
		"instance": e.instanceID,
		"line":     index,
		"type":     line.Type,
	}).WithError(err).Warn("Failed to render line")

	e.events.Emit(Event{Type: EventLineError, InstanceID: e.instanceID, Line: &authored, Index: index, Err: err})

	if !e.active(ctx) {
		return ErrAborted
	}

	text := line.Text
	if text == "" {
		text = renderErrorText
	}
	el.SetText(text)
	if appendErr := e.display.Append(el); appendErr != nil {
		e.logger.WithError(appendErr).Warn("Failed to show fallback text")
	}

	return nil
}

// render runs the animator, converting a panic into an error
func (e *Engine) render(ctx context.Context, el *display.Line, line QueuedLine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()
	return e.animator.Render(ctx, el, line)
}

// createLine builds the display element for line, resolving its prompt
func (e *Engine) createLine(line QueuedLine) *display.Line {
	spec := display.Spec{
		Type:  string(line.Type),
		Class: line.Class,
		Order: line.OriginalIndex,
	}

	if line.Type == config.LineInput || line.ShowPrompt {
		e.mu.RLock()
		spec.Prompt = orDefault(line.Prompt, e.cfg.DefaultPrompt)
		spec.PromptColor = orDefault(line.PromptColor, e.cfg.DefaultPromptColor)
		e.mu.RUnlock()
	}

	return display.NewLine(LineID(e.instanceID, line.OriginalIndex), spec)
}

func (e *Engine) delayAfter(line QueuedLine) time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return DelayAfter(line, line.OriginalIndex, e.cfg.Lines, millis(e.timing.LineDelay))
}

func (e *Engine) snapshotQueue() []QueuedLine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]QueuedLine(nil), e.lineQueue...)
}

func (e *Engine) isProcessed(line QueuedLine) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.processed[LineID(e.instanceID, line.OriginalIndex)]
}

// Bookkeeping from a run whose context is done is dropped

func (e *Engine) markProcessed(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() == nil {
		e.processed[id] = true
	}
}

func (e *Engine) setCurrentLine(ctx context.Context, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() == nil {
		e.state.CurrentLine = index
	}
}

// Stop ends the run. Rendered output and the processed set are kept.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.state.Running = false
	e.state.Paused = false
	e.state.Restarting = false
	e.releasePauseLocked()
	if e.runCancel != nil {
		e.runCancel()
	}
	e.setPhaseLocked(PhaseStopped)
	index := e.state.CurrentLine
	panel := e.panel
	e.mu.Unlock()

	e.timers.ClearAll()
	panel.ResetButtons()

	e.logger.WithField("instance", e.instanceID).Info("Playback stopped")
	e.events.Emit(Event{Type: EventStop, InstanceID: e.instanceID, Index: index})
}

// Restart abandons the current run, restores the configured timing and
// starts again from the top after a short settle. Calls made while a
// restart is pending are ignored.
func (e *Engine) Restart() {
	e.mu.Lock()
	if e.destroyed || e.state.Restarting {
		e.mu.Unlock()
		return
	}
	e.state.Restarting = true
	e.state.Running = false
	e.state.Paused = false
	e.releasePauseLocked()
	if e.runCancel != nil {
		e.runCancel()
	}
	e.timing = e.original
	e.setPhaseLocked(PhaseRestarting)
	e.mu.Unlock()

	e.timers.ClearAll()
	e.logger.WithField("instance", e.instanceID).Info("Restarting playback")

	e.timers.After(e.ec.RestartSettle, e.finishRestart)
}

func (e *Engine) finishRestart() {
	e.mu.RLock()
	pending := e.state.Restarting && !e.destroyed
	done := e.runDone
	e.mu.RUnlock()
	if !pending {
		return
	}

	// Let the abandoned run finish before clearing what it rendered
	if done != nil {
		select {
		case <-done:
		case <-e.root.Done():
			return
		}
	}

	e.Clear()
	e.controls().ResetButtons()

	e.mu.Lock()
	if !e.state.Restarting || e.destroyed {
		e.mu.Unlock()
		return
	}
	e.processed = make(map[string]bool)
	e.queue.Invalidate()
	e.lineQueue = e.queue.Build(e.cfg.Lines)
	e.state.Restarting = false
	e.mu.Unlock()

	e.start(true)
}

// Clear removes rendered output and forgets which lines were processed
func (e *Engine) Clear() {
	e.display.Clear()

	e.mu.Lock()
	e.state.CurrentLine = 0
	e.processed = make(map[string]bool)
	panel := e.panel
	e.mu.Unlock()

	panel.UpdateProgressInfo()
}

// Destroy stops playback for good, cancels every timer and drops all
// listeners. The engine cannot be started again.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	e.state.Running = false
	e.state.Paused = false
	e.state.Restarting = false
	e.releasePauseLocked()
	if e.runCancel != nil {
		e.runCancel()
	}
	e.rootCancel()
	e.setPhaseLocked(PhaseStopped)
	e.mu.Unlock()

	e.timers.ClearAll()
	e.events.RemoveAllListeners()
	e.display.Clear()

	e.logger.WithField("instance", e.instanceID).Info("Playback destroyed")
}
