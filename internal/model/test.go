package model

import (
	"time"

	"github.com/google/uuid"
)

// Test is the read-only definition supplied by the test catalog.
type Test struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
}

// WindowEnd is the last instant a new attempt may be started.
func (t *Test) WindowEnd() time.Time {
	return t.StartTime.Add(t.Duration())
}

// Duration is the per-attempt time limit.
func (t *Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// Available reports whether now falls inside [StartTime, StartTime+Duration].
func (t *Test) Available(now time.Time) bool {
	return !now.Before(t.StartTime) && !now.After(t.WindowEnd())
}

// TestSnapshot is a test definition together with its ordered question set.
type TestSnapshot struct {
	Test      Test       `json:"test"`
	Questions []Question `json:"questions"`
}

// QuestionMarks sums the marks of every question, falling back to the
// test-level total when the question set carries no marks.
func (s *TestSnapshot) QuestionMarks() int {
	total := 0
	for i := range s.Questions {
		total += s.Questions[i].MarksValue()
	}
	if total == 0 {
		return s.Test.TotalMarks
	}
	return total
}
