package engine

import (
	"time"

	"github.com/jdharms/termynal/internal/config"
)

// DelayAfter returns the pause to apply after line, which sits at position
// in the authored list. An explicit per-line delay always wins (including
// zero); two consecutive plain outputs get no pause; everything else gets
// defaultDelay.
func DelayAfter(line QueuedLine, position int, authored []config.Line, defaultDelay time.Duration) time.Duration {
	if d, ok := line.ExplicitLineDelay(); ok {
		return d
	}

	if position >= 0 && position < len(authored)-1 {
		next := authored[position+1]
		if line.Type == config.LineOutput && next.Type == config.LineOutput {
			return 0
		}
	}

	return defaultDelay
}
