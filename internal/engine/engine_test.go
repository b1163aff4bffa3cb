package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jdharms/termynal/internal/config"
	"github.com/jdharms/termynal/internal/display"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPanel struct {
	mu     sync.Mutex
	calls  []string
	paused bool
	fast   bool
}

func (p *recordingPanel) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *recordingPanel) RemoveStartPrompt() { p.record("removeStartPrompt") }
func (p *recordingPanel) ResetButtons()      { p.record("resetButtons") }
func (p *recordingPanel) UpdateProgressInfo() {}

func (p *recordingPanel) ShowPaused(paused bool) {
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
}

func (p *recordingPanel) ShowFast(fast bool) {
	p.mu.Lock()
	p.fast = fast
	p.mu.Unlock()
}

func (p *recordingPanel) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func fastEngineConfig() *EngineConfig {
	ec := DefaultEngineConfig()
	ec.FadeDuration = time.Millisecond
	ec.RestartSettle = 10 * time.Millisecond
	ec.LoopSettle = 10 * time.Millisecond
	return ec
}

func testConfig(lines ...config.Line) *config.Config {
	cfg := config.DefaultConfig()
	cfg.StartDelay = 0
	cfg.TypeDelay = 1
	cfg.LineDelay = 5
	cfg.Lines = lines
	return cfg
}

// recorder collects events of every type in emission order
type recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan Event
}

func record(e *Engine) *recorder {
	r := &recorder{notify: make(chan Event, 256)}
	for _, typ := range []EventType{
		EventStart, EventComplete, EventError, EventPause, EventResume,
		EventStop, EventLineStart, EventLineComplete, EventLineError,
	} {
		e.On(typ, func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			r.notify <- ev
		})
	}
	return r
}

func (r *recorder) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.notify:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

func (r *recorder) ofType(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestEngine_BatchedOutputsThenInput(t *testing.T) {
	buf := display.NewBuffer()
	cfg := testConfig(
		config.Line{Type: config.LineOutput, Text: "A"},
		config.Line{Type: config.LineOutput, Text: "B"},
		config.Line{Type: config.LineInput, Text: "ls"},
	)
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	done := rec.waitFor(t, EventComplete)

	if done.TotalLines != 3 {
		t.Errorf("complete TotalLines = %d, want 3", done.TotalLines)
	}
	if got := buf.Text(); got != "A\nB\nls" {
		t.Errorf("display text = %q", got)
	}

	// Both outputs start while the position is on the first batch member
	starts := rec.ofType(EventLineStart)
	if len(starts) != 3 {
		t.Fatalf("got %d lineStart events, want 3", len(starts))
	}
	byText := map[string]int{}
	for _, ev := range starts {
		byText[ev.Line.Text] = ev.Index
	}
	if byText["A"] != 0 || byText["B"] != 0 || byText["ls"] != 2 {
		t.Errorf("lineStart indexes = %v, want A,B at 0 and ls at 2", byText)
	}

	if p := e.Progress(); p != (Progress{Current: 3, Total: 3, Percentage: 100}) {
		t.Errorf("Progress() = %+v, want {3 3 100}", p)
	}
	if e.IsRunning() {
		t.Error("IsRunning() = true after completion")
	}
	if e.Phase() != PhaseCompleted {
		t.Errorf("Phase() = %v, want Completed", e.Phase())
	}
	if info := e.PerformanceInfo(); info.ProcessedLines != 3 || info.InstanceID != e.InstanceID() {
		t.Errorf("PerformanceInfo() = %+v", info)
	}
}

func TestEngine_StartIsIdempotentWhileRunning(t *testing.T) {
	buf := display.NewBuffer()
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "once"})
	cfg.StartDelay = 30
	panel := &recordingPanel{}
	e := NewEngine(testLogger(), cfg, buf, panel, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	e.Start()
	rec.waitFor(t, EventComplete)

	if n := len(rec.ofType(EventStart)); n != 1 {
		t.Errorf("got %d start events, want 1", n)
	}
	if buf.Len() != 1 {
		t.Errorf("display has %d lines, want 1", buf.Len())
	}
	if panel.count("removeStartPrompt") != 1 {
		t.Error("start prompt was not removed")
	}
}

func TestEngine_InterruptedRunsNeverDuplicateLines(t *testing.T) {
	tests := []struct {
		name      string
		interrupt func(e *Engine)
	}{
		{name: "stop then start", interrupt: func(e *Engine) { e.Stop(); e.Start() }},
		{name: "restart then start", interrupt: func(e *Engine) { e.Restart(); e.Start() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []config.Line
			for i := range 12 {
				typ := config.LineInput
				if i%2 == 1 {
					typ = config.LineOutput
				}
				lines = append(lines, config.Line{Type: typ, Text: fmt.Sprintf("line %d", i)})
			}
			cfg := testConfig(lines...)
			cfg.LineDelay = 1
			ec := fastEngineConfig()
			ec.RestartSettle = time.Millisecond

			buf := display.NewBuffer()
			e := NewEngine(testLogger(), cfg, buf, nil, ec)
			defer e.Destroy()

			e.Start()
			for i := range 20 {
				time.Sleep(time.Duration(i%5) * 50 * time.Microsecond)
				tt.interrupt(e)
			}

			deadline := time.Now().Add(5 * time.Second)
			for e.Phase() != PhaseCompleted || e.PerformanceInfo().ActiveTimers != 0 {
				if time.Now().After(deadline) {
					t.Fatalf("playback did not settle: phase %v, %d active timers", e.Phase(), e.PerformanceInfo().ActiveTimers)
				}
				time.Sleep(5 * time.Millisecond)
			}

			seen := map[string]bool{}
			for _, l := range buf.Lines() {
				if seen[l.ID()] {
					t.Errorf("line %s rendered twice", l.ID())
				}
				seen[l.ID()] = true
			}
			if len(seen) != e.TotalLines() {
				t.Errorf("display has %d distinct lines, want %d", len(seen), e.TotalLines())
			}
			if info := e.PerformanceInfo(); info.ProcessedLines != e.TotalLines() {
				t.Errorf("ProcessedLines = %d, want %d", info.ProcessedLines, e.TotalLines())
			}
		})
	}
}

func TestEngine_ProgressTimerStopsOnCompletion(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)

	if n := e.PerformanceInfo().ActiveTimers; n != 0 {
		t.Errorf("ActiveTimers = %d after completion, want 0", n)
	}
}

func TestEngine_PauseTwiceIsNoop(t *testing.T) {
	clock := newFakeClock()
	ec := fastEngineConfig()
	ec.Clock = clock.Now

	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	cfg.StartDelay = 60_000
	panel := &recordingPanel{}
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), panel, ec)
	defer e.Destroy()
	rec := record(e)

	e.Start()
	clock.Advance(2 * time.Second)
	e.Pause()
	before := e.State()
	elapsed := e.Elapsed()

	e.Pause()

	if after := e.State(); after != before {
		t.Errorf("second Pause() changed state: %+v -> %+v", before, after)
	}
	if e.Elapsed() != elapsed {
		t.Errorf("second Pause() changed elapsed: %v -> %v", elapsed, e.Elapsed())
	}
	if n := len(rec.ofType(EventPause)); n != 1 {
		t.Errorf("got %d pause events, want 1", n)
	}
	if !e.IsPaused() || e.Phase() != PhasePaused {
		t.Error("engine is not paused")
	}
	panel.mu.Lock()
	paused := panel.paused
	panel.mu.Unlock()
	if !paused {
		t.Error("panel was not told about the pause")
	}
}

func TestEngine_ElapsedIsPauseInvariant(t *testing.T) {
	clock := newFakeClock()
	ec := fastEngineConfig()
	ec.Clock = clock.Now

	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	cfg.StartDelay = 60_000
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, ec)
	defer e.Destroy()

	if e.Elapsed() != 0 {
		t.Errorf("Elapsed() before start = %v, want 0", e.Elapsed())
	}

	e.Start()
	clock.Advance(3 * time.Second)
	e.Pause()

	clock.Advance(10 * time.Second)
	if got := e.Elapsed(); got != 3*time.Second {
		t.Errorf("Elapsed() while paused = %v, want 3s", got)
	}

	e.Resume()
	clock.Advance(2 * time.Second)
	if got := e.Elapsed(); got != 5*time.Second {
		t.Errorf("Elapsed() after resume = %v, want 5s", got)
	}
	if e.State().PausedTime != 10*time.Second {
		t.Errorf("PausedTime = %v, want 10s", e.State().PausedTime)
	}
}

func TestEngine_PauseHoldsProgress(t *testing.T) {
	cfg := testConfig(
		config.Line{Type: config.LineInput, Text: "abcdefgh"},
		config.Line{Type: config.LineOutput, Text: "after"},
	)
	cfg.TypeDelay = 5
	buf := display.NewBuffer()
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventLineStart)
	e.Pause()

	time.Sleep(30 * time.Millisecond)
	held := buf.Text()
	time.Sleep(50 * time.Millisecond)
	if buf.Text() != held {
		t.Errorf("display changed while paused: %q -> %q", held, buf.Text())
	}

	e.Resume()
	rec.waitFor(t, EventComplete)
	if got := buf.Text(); got != "abcdefgh\nafter" {
		t.Errorf("display text = %q", got)
	}
	if n := len(rec.ofType(EventResume)); n != 1 {
		t.Errorf("got %d resume events, want 1", n)
	}
}

func TestEngine_StopDuringTyping(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineInput, Text: strings.Repeat("x", 200)})
	cfg.TypeDelay = 5
	buf := display.NewBuffer()
	panel := &recordingPanel{}
	e := NewEngine(testLogger(), cfg, buf, panel, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventLineStart)
	time.Sleep(20 * time.Millisecond)
	e.Stop()
	rec.waitFor(t, EventStop)

	time.Sleep(50 * time.Millisecond)
	if n := len(rec.ofType(EventComplete)); n != 0 {
		t.Errorf("got %d complete events after stop, want 0", n)
	}
	if n := len(rec.ofType(EventLineError)); n != 0 {
		t.Errorf("stop reported %d line errors", n)
	}
	if e.IsRunning() || e.IsPaused() {
		t.Error("engine still running after Stop")
	}
	if buf.Len() != 1 {
		t.Errorf("Stop removed rendered output, %d lines left", buf.Len())
	}
	if panel.count("resetButtons") == 0 {
		t.Error("Stop did not reset the buttons")
	}
	if e.PerformanceInfo().ActiveTimers != 0 {
		t.Errorf("ActiveTimers = %d after Stop, want 0", e.PerformanceInfo().ActiveTimers)
	}
}

func TestEngine_RestartTwiceRunsOneCycle(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	cfg.StartDelay = 60_000
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventStart)

	e.Restart()
	e.Restart()
	rec.waitFor(t, EventStart)
	time.Sleep(60 * time.Millisecond)

	if n := len(rec.ofType(EventStart)); n != 2 {
		t.Errorf("got %d start events, want 2 (initial plus one restart)", n)
	}
	if !e.IsRunning() {
		t.Error("engine is not running after restart")
	}
}

func TestEngine_RestartRestoresTimingAndClears(t *testing.T) {
	buf := display.NewBuffer()
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)

	e.ToggleSpeed()
	if !e.IsFast() {
		t.Fatal("ToggleSpeed() did not switch to instant mode")
	}

	e.Restart()
	rec.waitFor(t, EventComplete)

	if e.IsFast() {
		t.Error("Restart() kept instant timing")
	}
	if buf.Len() != 1 {
		t.Errorf("display has %d lines after restart, want 1", buf.Len())
	}
}

func TestEngine_StopDuringRestartSettleAllowsLaterRestart(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	ec := fastEngineConfig()
	ec.RestartSettle = 50 * time.Millisecond
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, ec)
	defer e.Destroy()
	rec := record(e)

	e.Restart()
	e.Stop()
	time.Sleep(80 * time.Millisecond)
	if n := len(rec.ofType(EventStart)); n != 0 {
		t.Fatalf("stopped restart still started %d runs", n)
	}

	e.Restart()
	rec.waitFor(t, EventComplete)
}

func TestEngine_Loop(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "again"})
	cfg.Loop = true
	buf := display.NewBuffer()
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)
	rec.waitFor(t, EventComplete)
	e.Stop()

	if buf.Len() != 1 {
		t.Errorf("looped run left %d lines, want 1", buf.Len())
	}
}

func TestEngine_RemoveLineOutOfRange(t *testing.T) {
	cfg := testConfig(
		config.Line{Type: config.LineInput, Text: "a"},
		config.Line{Type: config.LineOutput, Text: "b"},
		config.Line{Type: config.LineOutput, Text: "c"},
	)
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, nil)
	defer e.Destroy()

	before := e.Lines()
	for _, idx := range []int{99, -1, 3} {
		if e.RemoveLine(idx) {
			t.Errorf("RemoveLine(%d) reported a removal", idx)
		}
	}

	after := e.Lines()
	if len(after) != len(before) {
		t.Fatalf("Lines() changed length %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].Text != before[i].Text {
			t.Errorf("line %d changed %q -> %q", i, before[i].Text, after[i].Text)
		}
	}
}

func TestEngine_LineMutators(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "b"})
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, nil)
	defer e.Destroy()

	e.AddLine(config.Line{Type: config.LineOutput, Text: "d"}, -1)
	e.AddLine(config.Line{Type: config.LineInput, Text: "a"}, 0)
	e.AddLines([]config.Line{{Type: config.LineOutput, Text: "c"}}, 2)

	texts := func() string {
		var parts []string
		for _, l := range e.Lines() {
			parts = append(parts, l.Text)
		}
		return strings.Join(parts, ",")
	}
	if got := texts(); got != "a,b,c,d" {
		t.Fatalf("Lines() = %s, want a,b,c,d", got)
	}

	ok, err := e.UpdateLine(1, func(l *config.Line) error {
		l.Text = "B"
		return nil
	})
	if !ok || err != nil {
		t.Fatalf("UpdateLine() = %v, %v", ok, err)
	}
	if ok, _ := e.UpdateLine(10, func(*config.Line) error { return nil }); ok {
		t.Error("UpdateLine(10) reported an update")
	}

	failure := errors.New("bad patch")
	if _, err := e.UpdateLine(0, func(l *config.Line) error {
		l.Text = "ignored"
		return failure
	}); !errors.Is(err, failure) {
		t.Errorf("UpdateLine() error = %v", err)
	}

	if !e.RemoveLine(3) {
		t.Error("RemoveLine(3) failed")
	}
	if got := texts(); got != "a,B,c" {
		t.Errorf("Lines() = %s, want a,B,c", got)
	}
	if e.TotalLines() != 3 || e.PerformanceInfo().CacheSize != 3 {
		t.Errorf("queue not rebuilt: total=%d cache=%d", e.TotalLines(), e.PerformanceInfo().CacheSize)
	}
}

func TestEngine_SkipToLineAndProgress(t *testing.T) {
	e := NewEngine(testLogger(), testConfig(), display.NewBuffer(), nil, nil)
	defer e.Destroy()

	if p := e.Progress(); p != (Progress{Current: 1, Total: 0, Percentage: 0}) {
		t.Errorf("Progress() with no lines = %+v", p)
	}

	e.AddLines([]config.Line{{Text: "1"}, {Text: "2"}, {Text: "3"}, {Text: "4"}}, -1)
	if !e.SkipToLine(1) {
		t.Fatal("SkipToLine(1) failed")
	}
	if e.SkipToLine(4) || e.SkipToLine(-2) {
		t.Error("out of range SkipToLine reported success")
	}
	if p := e.Progress(); p != (Progress{Current: 2, Total: 4, Percentage: 50}) {
		t.Errorf("Progress() = %+v, want {2 4 50}", p)
	}
}

func TestEngine_SpeedAndTiming(t *testing.T) {
	cfg := testConfig()
	cfg.StartDelay, cfg.TypeDelay, cfg.LineDelay = 600, 90, 1500
	panel := &recordingPanel{}
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), panel, nil)
	defer e.Destroy()

	e.SetSpeed(true)
	if got := e.Timing(); got != (Timing{StartDelay: 0, TypeDelay: 0, LineDelay: 100}) {
		t.Errorf("fast Timing() = %+v", got)
	}
	panel.mu.Lock()
	fast := panel.fast
	panel.mu.Unlock()
	if !fast {
		t.Error("panel not told about instant mode")
	}

	e.SetSpeed(true)
	if !e.IsFast() {
		t.Error("SetSpeed(true) twice left instant mode")
	}

	e.SetSpeed(false)
	if got := e.Timing(); got != (Timing{StartDelay: 600, TypeDelay: 90, LineDelay: 1500}) {
		t.Errorf("normal Timing() = %+v", got)
	}

	td := 40
	e.SetTiming(TimingPatch{TypeDelay: &td})
	e.ToggleSpeed()
	e.ToggleSpeed()
	if got := e.Timing(); got.TypeDelay != 40 || got.LineDelay != 1500 {
		t.Errorf("Timing() after SetTiming and round trip = %+v", got)
	}
}

func TestEngine_UpdateConfig(t *testing.T) {
	e := NewEngine(testLogger(), testConfig(), display.NewBuffer(), nil, nil)
	defer e.Destroy()

	if err := e.UpdateConfig("typeDelay", "25"); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if e.Timing().TypeDelay != 25 || e.Config().TypeDelay != 25 {
		t.Errorf("typeDelay not applied: timing=%+v", e.Timing())
	}

	if err := e.UpdateConfig("loop", true); err != nil || !e.Config().Loop {
		t.Errorf("UpdateConfig(loop) = %v", err)
	}

	if err := e.UpdateConfig("nope", 1); !errors.Is(err, config.ErrUnknownOption) {
		t.Errorf("UpdateConfig(nope) error = %v, want ErrUnknownOption", err)
	}
}

func TestEngine_ClearForgetsProcessedLines(t *testing.T) {
	buf := display.NewBuffer()
	e := NewEngine(testLogger(), testConfig(config.Line{Type: config.LineOutput, Text: "x"}), buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)

	e.Clear()
	if buf.Len() != 0 || e.CurrentLine() != 0 || e.PerformanceInfo().ProcessedLines != 0 {
		t.Errorf("Clear() left len=%d line=%d processed=%d",
			buf.Len(), e.CurrentLine(), e.PerformanceInfo().ProcessedLines)
	}
}

func TestEngine_AlreadyRenderedLinesAreSkipped(t *testing.T) {
	buf := display.NewBuffer()
	cfg := testConfig(
		config.Line{Type: config.LineOutput, Text: "first"},
		config.Line{Type: config.LineInput, Text: "second"},
	)
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	stale := display.NewLine(LineID(e.InstanceID(), 0), display.Spec{Type: "output"})
	stale.SetText("stale")
	if err := buf.Append(stale); err != nil {
		t.Fatal(err)
	}

	e.Start()
	rec.waitFor(t, EventComplete)

	if got := buf.Text(); got != "stale\nsecond" {
		t.Errorf("display text = %q", got)
	}
	if n := len(rec.ofType(EventLineStart)); n != 1 {
		t.Errorf("got %d lineStart events, want 1", n)
	}
	if e.PerformanceInfo().ProcessedLines != 2 {
		t.Errorf("ProcessedLines = %d, want 2", e.PerformanceInfo().ProcessedLines)
	}
}

// flakyDisplay fails the first append of one line id
type flakyDisplay struct {
	*display.Buffer
	mu     sync.Mutex
	failID string
	failed bool
}

func (d *flakyDisplay) Append(l *display.Line) error {
	d.mu.Lock()
	fail := l.ID() == d.failID && !d.failed
	if fail {
		d.failed = true
	}
	d.mu.Unlock()

	if fail {
		return errors.New("container detached")
	}
	return d.Buffer.Append(l)
}

func TestEngine_LineErrorFallsBackToRawText(t *testing.T) {
	cfg := testConfig(
		config.Line{Type: config.LineInput, Text: "make"},
		config.Line{Type: config.LineProgress},
		config.Line{Type: config.LineOutput, Text: "ok"},
	)
	d := &flakyDisplay{Buffer: display.NewBuffer()}
	e := NewEngine(testLogger(), cfg, d, nil, fastEngineConfig())
	defer e.Destroy()
	d.failID = LineID(e.InstanceID(), 1)
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)

	errs := rec.ofType(EventLineError)
	if len(errs) != 1 || errs[0].Index != 1 || errs[0].Err == nil {
		t.Fatalf("lineError events = %+v", errs)
	}
	if got := d.Text(); got != "make\n"+renderErrorText+"\nok" {
		t.Errorf("display text = %q", got)
	}
}

type panickingDisplay struct {
	*display.Buffer
}

func (panickingDisplay) Has(string) bool { panic("lookup failed") }

func TestEngine_RunFailureEmitsError(t *testing.T) {
	cfg := testConfig(config.Line{Type: config.LineOutput, Text: "x"})
	e := NewEngine(testLogger(), cfg, panickingDisplay{display.NewBuffer()}, nil, fastEngineConfig())
	defer e.Destroy()
	rec := record(e)

	e.Start()
	ev := rec.waitFor(t, EventError)

	if ev.Err == nil || !strings.Contains(ev.Err.Error(), "lookup failed") {
		t.Errorf("error event = %+v", ev)
	}
	if e.IsRunning() {
		t.Error("engine still running after a run failure")
	}
	if len(rec.ofType(EventComplete)) != 0 {
		t.Error("complete emitted after a run failure")
	}
}

func TestEngine_PanickingListenerDoesNotStopPlayback(t *testing.T) {
	cfg := testConfig(
		config.Line{Type: config.LineOutput, Text: "a"},
		config.Line{Type: config.LineInput, Text: "b"},
	)
	e := NewEngine(testLogger(), cfg, display.NewBuffer(), nil, fastEngineConfig())
	defer e.Destroy()

	e.On(EventLineComplete, func(Event) { panic("listener bug") })
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventComplete)

	if n := len(rec.ofType(EventLineComplete)); n != 2 {
		t.Errorf("got %d lineComplete events, want 2", n)
	}
}

func TestEngine_Destroy(t *testing.T) {
	buf := display.NewBuffer()
	cfg := testConfig(config.Line{Type: config.LineInput, Text: strings.Repeat("y", 100)})
	cfg.TypeDelay = 5
	e := NewEngine(testLogger(), cfg, buf, nil, fastEngineConfig())
	rec := record(e)

	e.Start()
	rec.waitFor(t, EventLineStart)
	e.Destroy()

	if !e.IsDestroyed() || e.IsRunning() {
		t.Error("engine not marked destroyed")
	}
	if buf.Len() != 0 {
		t.Errorf("Destroy left %d lines", buf.Len())
	}
	if e.Events().HandlerCount(EventStart) != 0 {
		t.Error("listeners survived Destroy")
	}

	e.Start()
	time.Sleep(20 * time.Millisecond)
	if e.IsRunning() {
		t.Error("Start() after Destroy started a run")
	}
}
