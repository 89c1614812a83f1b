package attendance

import "time"

// Status is the classification persisted for a first-time mark.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
)

// Record is the durable attendance entity. At most one exists per
// (StudentID, Day); the storage layer enforces that with a unique index.
type Record struct {
	ID        string
	StudentID string
	ClassID   *string
	Day       time.Time // calendar day, midnight in the school's timezone
	Status    Status
	MarkedAt  time.Time
	CreatedAt time.Time
}

// Student is a read-only projection from the student registry.
type Student struct {
	ID           string
	ExternalCode string
	DisplayName  string
	ClassID      *string
	ClassLabel   string
	IsActive     bool
}

// DayOf truncates a timestamp to its calendar day, keeping the location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
