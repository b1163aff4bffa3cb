// internal/engine/animator.go
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
	"github.com/jdharms/termynal/internal/highlight"
)

// Kind is the animation behaviour selected for a line
type Kind int

const (
	KindReveal Kind = iota
	KindType
	KindProgress
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindReveal:
		return "reveal"
	case KindType:
		return "type"
	case KindProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// KindOf maps a line type to its animation. Unknown types reveal.
func KindOf(t config.LineType) Kind {
	switch t {
	case config.LineInput:
		return KindType
	case config.LineProgress:
		return KindProgress
	default:
		return KindReveal
	}
}

const (
	defaultSpinnerDuration = 3000 * time.Millisecond
	defaultSpinnerLabel    = "Loading..."
	defaultDotsLabel       = "Loading"
	defaultDotsCycles      = 3
	defaultMaxDots         = 3
	minDotsStep            = 100 * time.Millisecond
	defaultBarLength       = 40
	defaultBarComplete     = "█"
	defaultBarIncomplete   = "░"
	defaultBarCap          = 100
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// playback is the engine state an animation consults between steps
type playback interface {
	wait(ctx context.Context, d time.Duration) error
	waitPause(ctx context.Context) error
	active(ctx context.Context) bool
	typeDelay() time.Duration
	highlightSyntax() bool
	now() time.Time
}

// Animator renders a single line into a display
type Animator struct {
	pb       playback
	display  display.Display
	fade     time.Duration
	minFrame time.Duration
	render   highlight.Renderer
	escape   highlight.Escaper
}

func newAnimator(pb playback, d display.Display, ec *EngineConfig) *Animator {
	return &Animator{
		pb:       pb,
		display:  d,
		fade:     ec.FadeDuration,
		minFrame: ec.SpinnerMinFrame,
		render:   ec.Highlighter,
		escape:   ec.Escaper,
	}
}

// Render appends el and animates line into it. It returns ErrAborted when
// playback stops part way; text already shown stays visible.
func (a *Animator) Render(ctx context.Context, el *display.Line, line QueuedLine) error {
	switch KindOf(line.Type) {
	case KindType:
		return a.typeText(ctx, el, line)
	case KindProgress:
		return a.progress(ctx, el, line)
	default:
		return a.reveal(ctx, el, line)
	}
}

// attach appends el unless the run that created it is no longer active
func (a *Animator) attach(ctx context.Context, el *display.Line) error {
	if !a.pb.active(ctx) {
		return ErrAborted
	}
	if err := a.display.Append(el); err != nil {
		return fmt.Errorf("failed to append line: %w", err)
	}
	return nil
}

func (a *Animator) typeText(ctx context.Context, el *display.Line, line QueuedLine) error {
	el.AddState(display.StateCursor)
	defer el.RemoveState(display.StateCursor)

	if err := a.attach(ctx, el); err != nil {
		return err
	}

	var typed strings.Builder
	for _, r := range line.Text {
		if !a.pb.active(ctx) {
			return ErrAborted
		}
		if err := a.pb.waitPause(ctx); err != nil {
			return err
		}
		if err := a.pb.wait(ctx, a.charDelay(line)); err != nil {
			return err
		}
		if !a.pb.active(ctx) {
			return ErrAborted
		}

		typed.WriteRune(r)
		el.SetText(typed.String())
	}

	return nil
}

// charDelay is zero in instant mode, otherwise the line override or the
// global interval
func (a *Animator) charDelay(line QueuedLine) time.Duration {
	global := a.pb.typeDelay()
	if global == 0 {
		return 0
	}
	if d, ok := line.ExplicitTypeDelay(); ok {
		return d
	}
	return global
}

func (a *Animator) reveal(ctx context.Context, el *display.Line, line QueuedLine) error {
	if err := a.attach(ctx, el); err != nil {
		return err
	}

	if a.pb.highlightSyntax() && highlight.Applies(line.Text) {
		el.SetMarkup(highlight.Highlight(line.Text, a.render, a.escape), line.Text)
	} else {
		el.SetText(line.Text)
	}

	el.AddState(display.StateFadeIn)
	if err := a.pb.wait(ctx, a.fade); err != nil {
		return err
	}
	el.AddState(display.StateFadeInComplete)

	return nil
}

func (a *Animator) progress(ctx context.Context, el *display.Line, line QueuedLine) error {
	if err := a.attach(ctx, el); err != nil {
		return err
	}

	switch line.Style {
	case config.ProgressSpinner:
		return a.spinner(ctx, el, line)
	case config.ProgressDots:
		return a.dots(ctx, el, line)
	default:
		return a.bar(ctx, el, line)
	}
}

func (a *Animator) spinner(ctx context.Context, el *display.Line, line QueuedLine) error {
	label := orDefault(line.Text, defaultSpinnerLabel)
	duration := defaultSpinnerDuration
	if line.Duration > 0 {
		duration = time.Duration(line.Duration) * time.Millisecond
	}

	deadline := a.pb.now().Add(duration)
	for i := 0; a.pb.now().Before(deadline); i++ {
		if !a.pb.active(ctx) {
			return ErrAborted
		}
		if err := a.pb.waitPause(ctx); err != nil {
			return err
		}

		el.SetText(spinnerFrames[i%len(spinnerFrames)] + " " + label)

		// A zero character delay would spin without yielding
		if err := a.pb.wait(ctx, max(a.pb.typeDelay(), a.minFrame)); err != nil {
			return err
		}
	}

	if !a.pb.active(ctx) {
		return ErrAborted
	}
	el.SetText("✓ " + label + " completed!")
	return nil
}

func (a *Animator) dots(ctx context.Context, el *display.Line, line QueuedLine) error {
	label := orDefault(line.Text, defaultDotsLabel)
	cycles := orDefaultInt(line.Cycles, defaultDotsCycles)
	maxDots := orDefaultInt(line.MaxDots, defaultMaxDots)

	for cycle := 0; cycle < cycles; cycle++ {
		for n := 0; n <= maxDots; n++ {
			if !a.pb.active(ctx) {
				return ErrAborted
			}
			if err := a.pb.waitPause(ctx); err != nil {
				return err
			}

			el.SetText(label + strings.Repeat(".", n))

			if err := a.pb.wait(ctx, max(minDotsStep, a.pb.typeDelay()*5)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Animator) bar(ctx context.Context, el *display.Line, line QueuedLine) error {
	length := orDefaultInt(line.Length, defaultBarLength)
	complete := orDefault(line.CompleteChar, defaultBarComplete)
	incomplete := orDefault(line.IncompleteChar, defaultBarIncomplete)
	limit := orDefaultInt(line.Percent, defaultBarCap)

	for i := 1; i <= length; i++ {
		if !a.pb.active(ctx) {
			return ErrAborted
		}
		if err := a.pb.waitPause(ctx); err != nil {
			return err
		}
		if err := a.pb.wait(ctx, a.pb.typeDelay()); err != nil {
			return err
		}
		if !a.pb.active(ctx) {
			return ErrAborted
		}

		percent := int(math.Round(float64(i) / float64(length) * 100))
		el.SetText(fmt.Sprintf("[%s%s] %d%%",
			strings.Repeat(complete, i), strings.Repeat(incomplete, length-i), percent))

		if percent >= limit {
			break
		}
	}

	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
