package recorder

import (
	"strings"
	"sync"
)

// transcriptAccumulator serializes live-transcript appends in rotation order.
// Chunk transcriptions are dispatched fire-and-forget and may complete out of
// order; deliveries are buffered by sequence number and flushed once every
// earlier chunk has reported (an empty text marks a skipped or failed chunk).
type transcriptAccumulator struct {
	mu      sync.Mutex
	next    int
	pending map[int]string
	parts   []string
}

func newTranscriptAccumulator() *transcriptAccumulator {
	return &transcriptAccumulator{pending: make(map[int]string)}
}

func (a *transcriptAccumulator) deliver(seq int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending[seq] = text
	for {
		t, ok := a.pending[a.next]
		if !ok {
			return
		}
		delete(a.pending, a.next)
		if t != "" {
			a.parts = append(a.parts, t)
		}
		a.next++
	}
}

func (a *transcriptAccumulator) transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Join(a.parts, " ")
}
