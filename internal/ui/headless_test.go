package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
)

func TestHeadless_RunPrintsLines(t *testing.T) {
	color.NoColor = true

	cfg := quickScript(
		config.Line{Type: config.LineInput, Text: "npm test"},
		config.Line{Type: config.LineOutput, Text: "ok"},
		config.Line{Type: config.LineSuccess, Text: "done"},
	)
	cfg.AutoStart = false

	p := newTestPlayer(t, cfg, nil)
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := NewHeadless(newTestLogger(), p, &out).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Output lines share a batch, so only the input line has a fixed position
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || lines[0] != "$ npm test" {
		t.Fatalf("unexpected output %q", out.String())
	}
	rest := map[string]bool{lines[1]: true, lines[2]: true}
	if !rest["ok"] || !rest["done"] {
		t.Errorf("expected ok and done in the output, got %q", out.String())
	}
}

func TestHeadless_Stopped(t *testing.T) {
	cfg := quickScript(config.Line{Type: config.LineOutput, Text: "slow"})
	cfg.StartDelay = 10000
	cfg.AutoStart = false

	p := newTestPlayer(t, cfg, nil)

	done := make(chan error, 1)
	go func() {
		done <- NewHeadless(newTestLogger(), p, &bytes.Buffer{}).Run(context.Background())
	}()

	eventually(t, p.IsRunning, "playback did not start")
	p.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrPlaybackStopped) {
			t.Errorf("expected ErrPlaybackStopped, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop")
	}
}

func TestHeadless_ContextCancelled(t *testing.T) {
	cfg := quickScript(config.Line{Type: config.LineOutput, Text: "slow"})
	cfg.StartDelay = 10000

	p := newTestPlayer(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewHeadless(newTestLogger(), p, &bytes.Buffer{}).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if p.IsRunning() {
		t.Error("expected playback to be stopped")
	}
}

func TestFormatPlain(t *testing.T) {
	color.NoColor = true

	input := display.NewLine("a", display.Spec{Type: "input", Prompt: ">"})
	input.SetText("make")
	if got := FormatPlain(input); got != "> make" {
		t.Errorf("FormatPlain(input) = %q", got)
	}

	custom := display.NewLine("b", display.Spec{Type: "custom"})
	custom.SetMarkup("<b>x</b>", "x")
	if got := FormatPlain(custom); !strings.Contains(got, "x") || strings.Contains(got, "<b>") {
		t.Errorf("FormatPlain(custom) = %q", got)
	}
}
