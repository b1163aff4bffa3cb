// internal/engine/config.go
package engine

import (
	"html"
	"time"

	"github.com/jdharms/termynal/internal/highlight"
)

// EngineConfig contains the fixed timing constants and collaborators of the
// playback engine
type EngineConfig struct {
	FadeDuration    time.Duration // reveal fade-in
	RestartSettle   time.Duration // between restart and the next start
	LoopSettle      time.Duration // between completion and a loop restart
	FastLineDelay   time.Duration // post-line pause in instant mode
	SpinnerMinFrame time.Duration
	BufferSize      int

	// Clock is used for elapsed-time bookkeeping and spinner deadlines
	Clock func() time.Time

	Highlighter highlight.Renderer
	Escaper     highlight.Escaper
}

// DefaultEngineConfig returns the default engine configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		FadeDuration:    50 * time.Millisecond,
		RestartSettle:   200 * time.Millisecond,
		LoopSettle:      2 * time.Second,
		FastLineDelay:   100 * time.Millisecond,
		SpinnerMinFrame: 4 * time.Millisecond,
		BufferSize:      100,
		Clock:           time.Now,
		Highlighter:     highlight.Markup,
		Escaper:         html.EscapeString,
	}
}

// withDefaults fills unset fields from DefaultEngineConfig
func (ec *EngineConfig) withDefaults() *EngineConfig {
	def := DefaultEngineConfig()
	if ec == nil {
		return def
	}

	out := *ec
	if out.Clock == nil {
		out.Clock = def.Clock
	}
	if out.Highlighter == nil {
		out.Highlighter = def.Highlighter
	}
	if out.Escaper == nil {
		out.Escaper = def.Escaper
	}
	if out.BufferSize <= 0 {
		out.BufferSize = def.BufferSize
	}
	return &out
}
