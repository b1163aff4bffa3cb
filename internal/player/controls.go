// internal/player/controls.go
package player

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/engine"
)

// Button identifies a control affordance
type Button string

const (
	ButtonSpeed      Button = "speed"
	ButtonPause      Button = "pause"
	ButtonRestart    Button = "restart"
	ButtonCopy       Button = "copy"
	ButtonFullscreen Button = "fullscreen"
)

// Button labels
const (
	LabelFast       = "fast →"
	LabelNormal     = "normal →"
	LabelPause      = "pause ⏸"
	LabelPlay       = "play ▶"
	LabelRestart    = "restart ↻"
	LabelCopy       = "copy ⎘"
	LabelFullscreen = "fullscreen ⛶"
)

const (
	StartPromptText = "▶ Start Terminal Animation"
	CopiedNotice    = "Content copied to clipboard!"

	notificationTTL = 3 * time.Second
)

var defaultLabels = map[Button]string{
	ButtonSpeed:      LabelFast,
	ButtonPause:      LabelPause,
	ButtonRestart:    LabelRestart,
	ButtonCopy:       LabelCopy,
	ButtonFullscreen: LabelFullscreen,
}

// ProgressSource is the playback state shown in the progress info
type ProgressSource interface {
	Progress() engine.Progress
	Elapsed() time.Duration
	IsRunning() bool
	IsPaused() bool
}

// ButtonState is a rendered control
type ButtonState struct {
	ID    Button `json:"id"`
	Label string `json:"label"`
}

// PanelState is a snapshot of everything the panel shows
type PanelState struct {
	StartPrompt   bool          `json:"startPrompt"`
	Buttons       []ButtonState `json:"buttons"`
	LineInfo      string        `json:"lineInfo"`
	TimeInfo      string        `json:"timeInfo"`
	Notifications []string      `json:"notifications"`
}

// Panel holds the control buttons, start prompt, progress info and
// notifications of one player. It implements engine.ControlPanel.
type Panel struct {
	source    ProgressSource
	timers    *engine.TimerService
	onChange  func()
	noticeTTL time.Duration

	mu            sync.Mutex
	order         []Button
	labels        map[Button]string
	startPrompt   bool
	lineInfo      string
	timeInfo      string
	notifications []notification
	nextNotice    uint64
}

type notification struct {
	id   uint64
	text string
}

// NewPanel creates the controls for cfg. Copy and fullscreen buttons exist
// only when enabled; no buttons exist when showControls is off.
func NewPanel(cfg *config.Config, source ProgressSource, onChange func()) *Panel {
	p := &Panel{
		source:   source,
		timers:    engine.NewTimerService(),
		onChange:  onChange,
		noticeTTL: notificationTTL,
		labels:    make(map[Button]string),
		lineInfo:  fmt.Sprintf("Line: 1/%d", len(cfg.Lines)),
		timeInfo:  "Time: " + FormatTime(0),
	}

	if cfg.ShowControls {
		p.order = []Button{ButtonSpeed, ButtonPause, ButtonRestart}
		if cfg.Copyable {
			p.order = append(p.order, ButtonCopy)
		}
		if cfg.Fullscreen {
			p.order = append(p.order, ButtonFullscreen)
		}
	}
	for _, b := range p.order {
		p.labels[b] = defaultLabels[b]
	}

	return p
}

// HasButton reports whether the button is shown
func (p *Panel) HasButton(b Button) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.order, b)
}

// Label returns the current label of a button
func (p *Panel) Label(b Button) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.labels[b]
}

// ShowStartPrompt shows the manual start affordance
func (p *Panel) ShowStartPrompt() {
	p.update(func() { p.startPrompt = true })
}

// RemoveStartPrompt hides the manual start affordance
func (p *Panel) RemoveStartPrompt() {
	p.update(func() { p.startPrompt = false })
}

// ShowPaused flips the pause button between pause and play
func (p *Panel) ShowPaused(paused bool) {
	label := LabelPause
	if paused {
		label = LabelPlay
	}
	p.setLabel(ButtonPause, label)
}

// ShowFast flips the speed button between fast and normal
func (p *Panel) ShowFast(fast bool) {
	label := LabelFast
	if fast {
		label = LabelNormal
	}
	p.setLabel(ButtonSpeed, label)
}

// ResetButtons restores every button's default label
func (p *Panel) ResetButtons() {
	p.update(func() {
		for _, b := range p.order {
			p.labels[b] = defaultLabels[b]
		}
	})
}

// UpdateProgressInfo refreshes the line counter, and the elapsed time
// while playback is running and not paused
func (p *Panel) UpdateProgressInfo() {
	if p.source == nil {
		return
	}

	progress := p.source.Progress()
	lineInfo := fmt.Sprintf("Line: %d/%d", progress.Current, progress.Total)

	var timeInfo string
	if p.source.IsRunning() && !p.source.IsPaused() {
		timeInfo = "Time: " + FormatTime(p.source.Elapsed())
	}

	p.update(func() {
		p.lineInfo = lineInfo
		if timeInfo != "" {
			p.timeInfo = timeInfo
		}
	})
}

// ShowNotification shows a transient message for a few seconds
func (p *Panel) ShowNotification(text string) {
	p.mu.Lock()
	p.nextNotice++
	id := p.nextNotice
	p.notifications = append(p.notifications, notification{id: id, text: text})
	p.mu.Unlock()
	p.changed()

	p.timers.After(p.noticeTTL, func() {
		p.update(func() {
			p.notifications = slices.DeleteFunc(p.notifications, func(n notification) bool {
				return n.id == id
			})
		})
	})
}

// Close drops pending notification timers
func (p *Panel) Close() {
	p.timers.ClearAll()
}

// State returns a snapshot of the panel
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PanelState{
		StartPrompt: p.startPrompt,
		LineInfo:    p.lineInfo,
		TimeInfo:    p.timeInfo,
	}
	for _, b := range p.order {
		s.Buttons = append(s.Buttons, ButtonState{ID: b, Label: p.labels[b]})
	}
	for _, n := range p.notifications {
		s.Notifications = append(s.Notifications, n.text)
	}
	return s
}

func (p *Panel) setLabel(b Button, label string) {
	p.update(func() {
		if _, ok := p.labels[b]; ok {
			p.labels[b] = label
		}
	})
}

func (p *Panel) update(fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()
	p.changed()
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

// FormatTime renders a duration as mm:ss, truncating to whole seconds
func FormatTime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
