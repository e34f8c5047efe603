package model

import (
	"time"

	"github.com/google/uuid"
)

// Violation is an integrity event recorded against an attempt for later review.
type Violation struct {
	ID             int64     `json:"id,omitempty"`
	AttemptID      uuid.UUID `json:"attempt_id"`
	ExamineeID     int       `json:"examinee_id"`
	Classification string    `json:"classification"`
	OccurredAt     time.Time `json:"occurred_at"`
	RecordedAt     time.Time `json:"recorded_at,omitempty"`
}

// RecordViolationRequest is the payload for reporting an integrity event.
type RecordViolationRequest struct {
	Classification string     `json:"classification" binding:"required,notblank,max=255"`
	Timestamp      *time.Time `json:"timestamp" binding:"omitempty"`
}
