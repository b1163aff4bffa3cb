// internal/ui/headless.go
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
)

// ErrPlaybackStopped is returned by Headless.Run when playback was stopped
// before it completed
var ErrPlaybackStopped = errors.New("playback stopped")

var lineColors = map[config.LineType]*color.Color{
	config.LineInput:    color.New(color.FgWhite, color.Bold),
	config.LineOutput:   color.New(color.FgWhite),
	config.LineComment:  color.New(color.FgHiBlack),
	config.LineWarning:  color.New(color.FgYellow),
	config.LineSuccess:  color.New(color.FgGreen),
	config.LineError:    color.New(color.FgRed),
	config.LineProgress: color.New(color.FgCyan),
}

var promptColor = color.New(color.FgHiBlack)

// Headless plays a script without a terminal UI and prints each line once it
// has finished animating
type Headless struct {
	logger *logrus.Logger
	player *player.Player
	out    io.Writer

	mu      sync.Mutex
	printed map[string]bool
}

// NewHeadless creates a headless runner writing to out; nil means stdout
func NewHeadless(logger *logrus.Logger, p *player.Player, out io.Writer) *Headless {
	if out == nil {
		out = os.Stdout
	}
	return &Headless{
		logger:  logger,
		player:  p,
		out:     out,
		printed: make(map[string]bool),
	}
}

// Run plays the script and blocks until it completes, is stopped, fails or
// ctx is cancelled
func (h *Headless) Run(ctx context.Context) error {
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	subs := []engine.Subscription{
		h.player.On(engine.EventLineComplete, h.printLine),
		h.player.On(engine.EventComplete, func(engine.Event) { finish(nil) }),
		h.player.On(engine.EventStop, func(engine.Event) { finish(ErrPlaybackStopped) }),
		h.player.On(engine.EventError, func(ev engine.Event) {
			if ev.Err != nil {
				finish(fmt.Errorf("playback failed: %w", ev.Err))
				return
			}
			finish(fmt.Errorf("playback failed: %s", ev.Error))
		}),
	}
	defer func() {
		for _, sub := range subs {
			h.player.Off(sub)
		}
	}()

	if err := h.player.Mount(); err != nil {
		return fmt.Errorf("failed to mount player: %w", err)
	}
	h.player.ReportVisibility(1)
	if !h.player.Config().AutoStart {
		h.player.Start()
	}

	select {
	case <-ctx.Done():
		h.player.Stop()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// printLine prints the first unprinted element matching the completed line
func (h *Headless) printLine(ev engine.Event) {
	if ev.Line == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	el := h.match(ev.Line)
	if el == nil {
		h.logger.WithField("index", ev.Index).Debug("No element for completed line")
		return
	}
	h.printed[el.ID()] = true

	fmt.Fprintln(h.out, FormatPlain(el))
}

func (h *Headless) match(line *config.Line) *display.Line {
	var fallback *display.Line
	for _, el := range h.player.Container().Lines() {
		if h.printed[el.ID()] || el.Spec().Type != string(line.Type) {
			continue
		}
		if line.Text == "" || el.PlainText() == line.Text {
			return el
		}
		if fallback == nil {
			fallback = el
		}
	}
	return fallback
}

// FormatPlain colours a finished line by its type for plain terminal output
func FormatPlain(el *display.Line) string {
	spec := el.Spec()

	c, ok := lineColors[config.LineType(spec.Type)]
	if !ok {
		c = color.New(color.Reset)
	}

	text := c.Sprint(el.PlainText())
	if spec.Prompt != "" {
		text = promptColor.Sprint(spec.Prompt) + " " + text
	}
	return text
}
