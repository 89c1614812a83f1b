package ingest

import "sync/atomic"

// DailyStats are today's counts by classification. Total covers every
// record for the day regardless of status.
type DailyStats struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

// Tally holds the current stats snapshot. Counts are always replaced
// wholesale from a fresh store query, never incremented in place.
type Tally struct {
	snap atomic.Pointer[DailyStats]
}

// NewTally starts at zero.
func NewTally() *Tally {
	t := &Tally{}
	t.snap.Store(&DailyStats{})
	return t
}

// Replace swaps in a new snapshot computed from the given counts.
func (t *Tally) Replace(present, late int) {
	s := DailyStats{Present: present, Late: late, Total: present + late}
	t.snap.Store(&s)
}

// Snapshot returns the current stats.
func (t *Tally) Snapshot() DailyStats {
	return *t.snap.Load()
}
