package ingest

import (
	"sync"
	"sync/atomic"
)

// History is the bounded log of recent outcomes for the operator screen.
// Writers replace an immutable snapshot under a mutex; readers only load
// the snapshot, so the UI never observes a partial update.
type History struct {
	mu   sync.Mutex
	cap  int
	snap atomic.Pointer[[]Outcome]
}

// NewHistory creates a buffer holding at most capacity outcomes.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	h := &History{cap: capacity}
	empty := make([]Outcome, 0)
	h.snap.Store(&empty)
	return h
}

// Push prepends an outcome, evicting the oldest once over capacity.
func (h *History) Push(out Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur := *h.snap.Load()
	next := make([]Outcome, 0, len(cur)+1)
	next = append(next, out)
	next = append(next, cur...)
	if len(next) > h.cap {
		next = next[:h.cap]
	}
	h.snap.Store(&next)
}

// Latest returns up to n outcomes, newest first. n <= 0 means all.
func (h *History) Latest(n int) []Outcome {
	cur := *h.snap.Load()
	if n <= 0 || n > len(cur) {
		n = len(cur)
	}
	out := make([]Outcome, n)
	copy(out, cur[:n])
	return out
}
