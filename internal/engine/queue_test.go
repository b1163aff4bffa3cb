package engine

import (
	"testing"

	"github.com/jdharms/termynal/internal/config"
)

func TestQueueBuilder_Build(t *testing.T) {
	lines := []config.Line{
		{Type: config.LineInput, Text: "ls", TypeDelay: config.Millis(10)},
		{Type: config.LineOutput, Text: "a.txt"},
	}

	qb := NewQueueBuilder()
	queue := qb.Build(lines)

	if len(queue) != 2 {
		t.Fatalf("len(queue) = %d, want 2", len(queue))
	}
	for i, ql := range queue {
		if ql.OriginalIndex != i {
			t.Errorf("queue[%d].OriginalIndex = %d", i, ql.OriginalIndex)
		}
	}
	if qb.CacheSize() != 2 {
		t.Errorf("CacheSize() = %d, want 2", qb.CacheSize())
	}

	// Mutating a returned queue must not leak into the cache
	queue[0].Text = "changed"
	*queue[0].TypeDelay = 99
	again := qb.Build(lines)
	if again[0].Text != "ls" || *again[0].TypeDelay != 10 {
		t.Errorf("cache was aliased: %+v", again[0].Line)
	}
}

func TestQueueBuilder_RebuildsOnStructuralChange(t *testing.T) {
	qb := NewQueueBuilder()
	qb.Build([]config.Line{{Type: config.LineOutput, Text: "a"}})

	queue := qb.Build([]config.Line{{Type: config.LineOutput, Text: "b"}, {Type: config.LineInput, Text: "c"}})
	if len(queue) != 2 || queue[0].Text != "b" {
		t.Errorf("Build() returned stale queue: %+v", queue)
	}

	qb.Invalidate()
	if qb.CacheSize() != 0 {
		t.Errorf("CacheSize() after Invalidate = %d, want 0", qb.CacheSize())
	}
}

func TestSortQueue(t *testing.T) {
	queue := []QueuedLine{{OriginalIndex: 2}, {OriginalIndex: 0}, {OriginalIndex: 1}}
	sortQueue(queue)
	for i, ql := range queue {
		if ql.OriginalIndex != i {
			t.Fatalf("sortQueue() order = %+v", queue)
		}
	}
}

func TestLineID(t *testing.T) {
	if got := LineID("termynal_abc", 3); got != "termynal_abc_line_3" {
		t.Errorf("LineID() = %q", got)
	}
}
