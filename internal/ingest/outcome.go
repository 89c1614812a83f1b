package ingest

import (
	"time"

	"scangate/internal/attendance"
)

// OutcomeStatus is what happened to one processed scan event.
type OutcomeStatus string

const (
	OutcomePresent       OutcomeStatus = "present"
	OutcomeLate          OutcomeStatus = "late"
	OutcomeAlreadyMarked OutcomeStatus = "already_marked"
	OutcomeNotFound      OutcomeStatus = "not_found"
	OutcomeError         OutcomeStatus = "error"
)

// Outcome is the operator-facing result of one scan event. It is held only
// in the bounded history buffer and on the feedback queue, never persisted.
type Outcome struct {
	ID          string        `json:"id"`
	StudentID   *string       `json:"student_id,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	ClassLabel  string        `json:"class_label,omitempty"`
	Status      OutcomeStatus `json:"status"`
	// RecordedStatus carries the existing record's classification when
	// Status is already_marked, so the operator sees what actually stuck.
	RecordedStatus attendance.Status `json:"recorded_status,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
