package engine

import (
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/jdharms/termynal/internal/config"
)

// QueuedLine is an authored line together with its authoring position
type QueuedLine struct {
	config.Line
	OriginalIndex int
}

// LineID returns the identifier of a queued line within an instance
func LineID(instanceID string, originalIndex int) string {
	return instanceID + "_line_" + strconv.Itoa(originalIndex)
}

// QueueBuilder converts authored lines into a queue, memoized on a
// structural hash of (type, text, originalIndex)
type QueueBuilder struct {
	mu     sync.Mutex
	cached []QueuedLine
	hash   uint64
	valid  bool
}

// NewQueueBuilder creates a builder with an empty cache
func NewQueueBuilder() *QueueBuilder {
	return &QueueBuilder{}
}

// Build returns a fresh copy of the queue for lines
func (qb *QueueBuilder) Build(lines []config.Line) []QueuedLine {
	qb.mu.Lock()
	defer qb.mu.Unlock()

	hash := structuralHash(lines)
	if !qb.valid || qb.hash != hash {
		queue := make([]QueuedLine, len(lines))
		for i, l := range lines {
			queue[i] = QueuedLine{Line: l.Clone(), OriginalIndex: i}
		}
		qb.cached = queue
		qb.hash = hash
		qb.valid = true
	}

	out := make([]QueuedLine, len(qb.cached))
	for i, ql := range qb.cached {
		out[i] = QueuedLine{Line: ql.Line.Clone(), OriginalIndex: ql.OriginalIndex}
	}
	return out
}

// Invalidate drops the cached queue
func (qb *QueueBuilder) Invalidate() {
	qb.mu.Lock()
	defer qb.mu.Unlock()
	qb.cached = nil
	qb.valid = false
}

// CacheSize returns the number of cached queue entries
func (qb *QueueBuilder) CacheSize() int {
	qb.mu.Lock()
	defer qb.mu.Unlock()
	return len(qb.cached)
}

func structuralHash(lines []config.Line) uint64 {
	d := xxhash.New()
	for i, l := range lines {
		d.WriteString(string(l.Type))
		d.Write([]byte{0})
		d.WriteString(l.Text)
		d.Write([]byte{0})
		d.WriteString(strconv.Itoa(i))
		d.Write([]byte{0})
	}
	return d.Sum64()
}

// sortQueue orders a queue ascending by OriginalIndex
func sortQueue(queue []QueuedLine) {
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].OriginalIndex < queue[j].OriginalIndex
	})
}
