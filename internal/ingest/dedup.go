package ingest

import (
	"sync"
	"time"
)

// Debouncer drops repeats of the most recently processed code arriving
// inside the window, which is what a card held under the scanner looks
// like. It only remembers the single last processed event, so alternating
// scans of two different students always pass. It never consults
// persisted attendance state.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastCode string
	lastSeen time.Time
}

// NewDebouncer creates a filter with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &Debouncer{window: window}
}

// ShouldProcess reports whether the code should enter the pipeline at the
// given time. A drop does not refresh the slot: the window is measured
// from the last time the code was actually processed.
func (d *Debouncer) ShouldProcess(code string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code == d.lastCode && now.Sub(d.lastSeen) < d.window {
		return false
	}
	d.lastCode = code
	d.lastSeen = now
	return true
}
