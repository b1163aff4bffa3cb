// internal/player/player.go
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	// ErrAlreadyInitialized is returned when a container already has a player
	ErrAlreadyInitialized = errors.New("container already has a player")

	// ErrDestroyed is returned by operations on a destroyed player
	ErrDestroyed = errors.New("player has been destroyed")

	// ErrUnknownControl is returned by HandleControl for buttons that do not exist
	ErrUnknownControl = errors.New("unknown control")
)

const copyPrompt = "$"

// Options configures a Player. Every field is optional.
type Options struct {
	Logger   *logrus.Logger
	Registry *Registry
	Engine   *engine.EngineConfig

	// Clipboard receives copied content; defaults to the system clipboard
	Clipboard func(text string) error

	// OnFullscreen is called with the new state when fullscreen is toggled
	OnFullscreen func(on bool)

	// OnChange is called after the panel changes
	OnChange func()
}

// Player is the public control surface of one animation attached to a
// container
type Player struct {
	logger    *logrus.Logger
	container *display.Buffer
	engine    *engine.Engine
	panel     *Panel
	gate      *Gate
	registry  *Registry

	clipboard    func(string) error
	onFullscreen func(bool)

	mu         sync.Mutex
	fullscreen bool
	mounted    bool
	destroyed  bool
	cleanups   []func() error
}

// Status is a snapshot of a player for reporting
type Status struct {
	InstanceID  string                 `json:"instanceId"`
	Title       string                 `json:"title"`
	Phase       engine.Phase           `json:"phase"`
	Running     bool                   `json:"running"`
	Paused      bool                   `json:"paused"`
	Fast        bool                   `json:"fast"`
	Fullscreen  bool                   `json:"fullscreen"`
	ElapsedMs   int64                  `json:"elapsedMs"`
	Progress    engine.Progress        `json:"progress"`
	Timing      engine.Timing          `json:"timing"`
	Panel       PanelState             `json:"panel"`
	Performance engine.PerformanceInfo `json:"performance"`
}

// New attaches a player for cfg to container. A nil cfg uses the defaults.
// The player does nothing until Mount.
func New(container *display.Buffer, cfg *config.Config, opts Options) (*Player, error) {
	if container == nil {
		return nil, fmt.Errorf("container is nil")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	if _, ok := registry.ByContainer(container.ID()); ok {
		return nil, fmt.Errorf("%w: container %s", ErrAlreadyInitialized, container.ID())
	}

	p := &Player{
		logger:       logger,
		container:    container,
		registry:     registry,
		clipboard:    opts.Clipboard,
		onFullscreen: opts.OnFullscreen,
	}
	if p.clipboard == nil {
		p.clipboard = clipboard.WriteAll
	}

	p.engine = engine.NewEngine(logger, cfg, container, nil, opts.Engine)
	p.panel = NewPanel(cfg, p.engine, opts.OnChange)
	p.engine.SetControlPanel(p.panel)
	p.AddCleanup(func() error {
		p.panel.Close()
		return nil
	})

	if cfg.LazyLoading {
		p.gate = NewGate(logger, &GateConfig{Threshold: cfg.IntersectionThreshold}, p.lazyLoaded)
		p.AddCleanup(func() error {
			p.gate.Disable()
			return nil
		})
	}

	if err := registry.register(container.ID(), p); err != nil {
		p.engine.Destroy()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"instance":  p.InstanceID(),
		"container": container.ID(),
		"lines":     len(cfg.Lines),
	}).Info("Player created")

	return p, nil
}

// Mount initializes the player: it starts playback (autoStart), shows the
// start prompt, or waits for the container to become visible (lazyLoading)
func (p *Player) Mount() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.mounted {
		p.mu.Unlock()
		return nil
	}
	p.mounted = true
	p.mu.Unlock()

	if p.gate != nil {
		p.logger.WithField("instance", p.InstanceID()).Debug("Waiting for container to become visible")
		return nil
	}

	p.initialize()
	return nil
}

// ReportVisibility passes the visible ratio of the container to the
// lazy-loading gate. It is a no-op without lazy loading.
func (p *Player) ReportVisibility(ratio float64) {
	p.mu.Lock()
	ready := p.mounted && !p.destroyed
	p.mu.Unlock()

	if ready && p.gate != nil {
		p.gate.Observe(ratio)
	}
}

func (p *Player) lazyLoaded() {
	p.engine.Events().Emit(engine.Event{Type: engine.EventLazyLoaded, InstanceID: p.InstanceID()})
	p.initialize()
}

func (p *Player) initialize() {
	if p.engine.Config().AutoStart {
		p.engine.Start()
		return
	}
	p.panel.ShowStartPrompt()
}

// AddCleanup registers fn to run on Destroy, in reverse order of
// registration
func (p *Player) AddCleanup(fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanups = append(p.cleanups, fn)
}

// Destroy stops playback, removes rendered output and listeners, runs the
// cleanups and unregisters the player. Calling it again is a no-op.
func (p *Player) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	cleanups := p.cleanups
	p.cleanups = nil
	p.mu.Unlock()

	p.engine.Destroy()

	var err error
	for i := len(cleanups) - 1; i >= 0; i-- {
		err = multierr.Append(err, cleanups[i]())
	}
	err = multierr.Append(err, p.registry.Remove(p))

	if err != nil {
		p.logger.WithError(err).WithField("instance", p.InstanceID()).Error("Player teardown failed")
		return fmt.Errorf("failed to destroy player: %w", err)
	}

	p.logger.WithField("instance", p.InstanceID()).Info("Player destroyed")
	return nil
}

// IsDestroyed reports whether Destroy was called
func (p *Player) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Start begins playback
func (p *Player) Start() { p.engine.Start() }

// Pause pauses playback after the current step
func (p *Player) Pause() { p.engine.Pause() }

// Resume continues paused playback
func (p *Player) Resume() { p.engine.Resume() }

// TogglePause pauses or resumes
func (p *Player) TogglePause() { p.engine.TogglePause() }

// Restart plays again from the top with the configured timing
func (p *Player) Restart() { p.engine.Restart() }

// Stop ends playback, keeping the rendered output
func (p *Player) Stop() { p.engine.Stop() }

// Clear removes the rendered output
func (p *Player) Clear() { p.engine.Clear() }

// ToggleSpeed swaps between the configured timing and instant mode
func (p *Player) ToggleSpeed() { p.engine.ToggleSpeed() }

// SetSpeed selects instant mode or the configured timing
func (p *Player) SetSpeed(fast bool) { p.engine.SetSpeed(fast) }

// SkipToLine moves the reported position. Out of range indexes are ignored.
func (p *Player) SkipToLine(index int) bool { return p.engine.SkipToLine(index) }

func (p *Player) IsRunning() bool { return p.engine.IsRunning() }

func (p *Player) IsPaused() bool { return p.engine.IsPaused() }

func (p *Player) IsFast() bool { return p.engine.IsFast() }

// CurrentLine returns the zero-based index of the line being played
func (p *Player) CurrentLine() int { return p.engine.CurrentLine() }

func (p *Player) TotalLines() int { return p.engine.TotalLines() }

// Progress reports the current line against the total
func (p *Player) Progress() engine.Progress { return p.engine.Progress() }

// InstanceID returns the identifier derived from the configuration
func (p *Player) InstanceID() string { return p.engine.InstanceID() }

// Container returns the display the player renders into
func (p *Player) Container() *display.Buffer { return p.container }

func (p *Player) Panel() *Panel { return p.panel }

// PerformanceInfo reports timer, cache and bookkeeping sizes
func (p *Player) PerformanceInfo() engine.PerformanceInfo {
	return p.engine.PerformanceInfo()
}

// Status returns a snapshot of the player
func (p *Player) Status() Status {
	state := p.engine.State()
	cfg := p.engine.Config()

	return Status{
		InstanceID:  p.InstanceID(),
		Title:       cfg.Title,
		Phase:       p.engine.Phase(),
		Running:     state.Running,
		Paused:      state.Paused,
		Fast:        p.engine.IsFast(),
		Fullscreen:  p.IsFullscreen(),
		ElapsedMs:   p.engine.Elapsed().Milliseconds(),
		Progress:    p.engine.Progress(),
		Timing:      p.engine.Timing(),
		Panel:       p.panel.State(),
		Performance: p.engine.PerformanceInfo(),
	}
}

// Config returns a copy of the configuration
func (p *Player) Config() *config.Config {
	return p.engine.Config()
}

// UpdateConfig sets a single option. Unknown options are ignored; values
// that cannot be converted to the option's type are reported.
func (p *Player) UpdateConfig(key string, value any) error {
	err := p.engine.UpdateConfig(key, value)
	if errors.Is(err, config.ErrUnknownOption) {
		p.logger.WithField("key", key).Debug("Ignoring unknown configuration option")
		return nil
	}
	return err
}

// Timing returns the timing in effect
func (p *Player) Timing() engine.Timing {
	return p.engine.Timing()
}

// SetTiming updates selected timing parameters
func (p *Player) SetTiming(patch engine.TimingPatch) {
	p.engine.SetTiming(patch)
}

// AddLine inserts line before index; -1 appends
func (p *Player) AddLine(line config.Line, index int) {
	p.engine.AddLine(line, index)
	p.panel.UpdateProgressInfo()
}

// AddLines inserts lines before index; -1 appends
func (p *Player) AddLines(lines []config.Line, index int) {
	p.engine.AddLines(lines, index)
	p.panel.UpdateProgressInfo()
}

// RemoveLine deletes the line at index. Out of range indexes are ignored.
func (p *Player) RemoveLine(index int) bool {
	ok := p.engine.RemoveLine(index)
	if ok {
		p.panel.UpdateProgressInfo()
	}
	return ok
}

// UpdateLine merges the non-zero fields of line into the line at index. Out
// of range indexes are ignored.
func (p *Player) UpdateLine(index int, line config.Line) bool {
	ok, _ := p.engine.UpdateLine(index, func(l *config.Line) error {
		l.Merge(line)
		return nil
	})
	return ok
}

// PatchLine merges a JSON object into the line at index. Out of range
// indexes are ignored.
func (p *Player) PatchLine(index int, patch []byte) (bool, error) {
	return p.engine.UpdateLine(index, func(l *config.Line) error {
		return l.Patch(patch)
	})
}

// Lines returns a copy of the authored lines
func (p *Player) Lines() []config.Line {
	return p.engine.Lines()
}

// Reload replaces the lines and plays them from the top
func (p *Player) Reload(lines []config.Line) {
	p.engine.SetLines(lines)
	p.logger.WithFields(logrus.Fields{
		"instance": p.InstanceID(),
		"lines":    len(lines),
	}).Info("Script reloaded")
	p.engine.Restart()
}

// On registers fn for event
func (p *Player) On(event engine.EventType, fn engine.Handler) engine.Subscription {
	return p.engine.On(event, fn)
}

// Off removes a handler registered with On
func (p *Player) Off(sub engine.Subscription) {
	p.engine.Off(sub)
}

// Subscribe streams every event until ctx is done or the player is destroyed
func (p *Player) Subscribe(ctx context.Context) <-chan engine.Event {
	return p.engine.Events().Subscribe(ctx)
}

// HandleControl runs the action of a control button
func (p *Player) HandleControl(b Button) error {
	if p.IsDestroyed() {
		return ErrDestroyed
	}

	switch b {
	case ButtonSpeed:
		p.engine.ToggleSpeed()
	case ButtonPause:
		p.engine.TogglePause()
	case ButtonRestart:
		p.engine.Restart()
	case ButtonCopy:
		return p.CopyContent()
	case ButtonFullscreen:
		p.ToggleFullscreen()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownControl, b)
	}
	return nil
}

// Content returns the rendered text with input lines prefixed by their prompt
func (p *Player) Content() string {
	lines := p.container.Lines()
	texts := make([]string, len(lines))
	for i, l := range lines {
		spec := l.Spec()
		if spec.Type == string(config.LineInput) {
			prompt := spec.Prompt
			if prompt == "" {
				prompt = copyPrompt
			}
			texts[i] = prompt + " " + l.PlainText()
			continue
		}
		texts[i] = l.PlainText()
	}
	return strings.Join(texts, "\n")
}

// CopyContent writes the rendered text to the clipboard and shows a
// notification
func (p *Player) CopyContent() error {
	if p.IsDestroyed() {
		return ErrDestroyed
	}

	content := p.Content()
	if err := p.clipboard(content); err != nil {
		p.logger.WithError(err).WithField("instance", p.InstanceID()).Error("Copy failed")
		return fmt.Errorf("failed to copy content: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"instance": p.InstanceID(),
		"bytes":    len(content),
	}).Debug("Content copied")
	p.panel.ShowNotification(CopiedNotice)
	return nil
}

// ToggleFullscreen flips the fullscreen state and returns the new one
func (p *Player) ToggleFullscreen() bool {
	p.mu.Lock()
	p.fullscreen = !p.fullscreen
	on := p.fullscreen
	p.mu.Unlock()

	if p.onFullscreen != nil {
		p.onFullscreen(on)
	}
	return on
}

// IsFullscreen reports the fullscreen state
func (p *Player) IsFullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

// Elapsed returns the playback time excluding pauses
func (p *Player) Elapsed() time.Duration {
	return p.engine.Elapsed()
}
