package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. completed is terminal.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
)

// AttemptOrigin records how an attempt row came to exist.
type AttemptOrigin string

const (
	AttemptOriginStarted     AttemptOrigin = "started"
	AttemptOriginSynthesized AttemptOrigin = "synthesized"
)

// CompletionReason records what closed an attempt.
type CompletionReason string

const (
	CompletionSubmitted       CompletionReason = "submitted"
	CompletionDeadline        CompletionReason = "deadline"
	CompletionResultRequested CompletionReason = "result_requested"
)

// Attempt is one examinee's one try at one test. CompletedAt is capped at
// the deadline; FinalizedAt is when the completion was actually written.
type Attempt struct {
	ID               uuid.UUID              `json:"id"`
	ExamineeID       int                    `json:"examinee_id"`
	TestID           uuid.UUID              `json:"test_id"`
	AttemptNumber    int                    `json:"attempt_number"`
	Status           AttemptStatus          `json:"status"`
	Origin           AttemptOrigin          `json:"origin"`
	StartedAt        time.Time              `json:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	FinalizedAt      *time.Time             `json:"-"`
	CompletionReason *CompletionReason      `json:"completion_reason,omitempty"`
	Answers          []AttemptAnswer        `json:"answers"`
	DraftAnswers     map[string]AnswerValue `json:"draft_answers,omitempty"`
	TotalMarks       int                    `json:"total_marks"`
	MarksObtained    int                    `json:"marks_obtained"`
	Percentage       float64                `json:"percentage"`
	TimeTakenMinutes *int                   `json:"time_taken_minutes,omitempty"`
	// Version is bumped on every write and guards against stale overwrites.
	Version int `json:"-"`
}

// IsCompleted reports whether the attempt reached its terminal state.
func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptStatusCompleted
}

// NeedsRepair reports whether a completed attempt holds answers that were
// persisted without their grading fields.
func (a *Attempt) NeedsRepair() bool {
	if !a.IsCompleted() {
		return false
	}
	for i := range a.Answers {
		if a.Answers[i].IsCorrect == nil || a.Answers[i].MarksObtained == nil {
			return true
		}
	}
	return false
}

// RawAnswers returns the submitted values keyed by question id.
func (a *Attempt) RawAnswers() map[string]AnswerValue {
	out := make(map[string]AnswerValue, len(a.Answers))
	for _, ans := range a.Answers {
		out[ans.QuestionID] = ans.SelectedAnswer
	}
	return out
}

// AttemptAnswer is one captured answer. IsCorrect and MarksObtained are nil
// until the answer has been graded.
type AttemptAnswer struct {
	QuestionID     string      `json:"question_id"`
	SelectedAnswer AnswerValue `json:"selected_answer"`
	IsCorrect      *bool       `json:"is_correct,omitempty"`
	MarksObtained  *int        `json:"marks_obtained,omitempty"`
}

// SubmittedAnswer is one entry of a submit payload. Entries are not
// validated: an unknown question id or a malformed value is graded incorrect.
type SubmittedAnswer struct {
	QuestionID     string      `json:"question_id"`
	SelectedAnswer AnswerValue `json:"selected_answer"`
}

// SubmitAttemptRequest is the payload for finishing an attempt.
type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers"`
	// TimeTakenMinutes is advisory. It only seeds the start time of an
	// attempt synthesized at submit time, clamped to the test duration, and
	// is never used for grading.
	TimeTakenMinutes *AdvisoryMinutes `json:"time_taken_minutes"`
}

const maxAdvisoryMinutes = 24 * 60

// AdvisoryMinutes is a client-reported duration. Any JSON number decodes,
// truncated and clamped to one day. Any other value decodes as zero.
type AdvisoryMinutes int

func (m *AdvisoryMinutes) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*m = 0
		return nil
	}
	*m = AdvisoryMinutes(max(0, min(f, maxAdvisoryMinutes)))
	return nil
}

// SaveAnswerRequest is the payload for autosaving one answer.
type SaveAnswerRequest struct {
	QuestionID     string      `json:"question_id" binding:"required,uuid"`
	SelectedAnswer AnswerValue `json:"selected_answer"`
}

// StartAttemptResult is returned when an attempt is started or resumed.
type StartAttemptResult struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	AttemptNumber    int       `json:"attempt_number"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline"`
	Resumed          bool      `json:"resumed"`
}

// SubmitAttemptResult is returned from a submit.
type SubmitAttemptResult struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	TotalMarks    int       `json:"total_marks"`
	MarksObtained int       `json:"marks_obtained"`
	Percentage    float64   `json:"percentage"`
	TimeTaken     int       `json:"time_taken"`
	Passed        bool      `json:"passed"`
}

// ResultAnswer is one graded answer as shown to the examinee.
type ResultAnswer struct {
	QuestionID     string      `json:"question_id"`
	SelectedAnswer AnswerValue `json:"selected_answer"`
	IsCorrect      bool        `json:"is_correct"`
	MarksObtained  int         `json:"marks_obtained"`
}

// AttemptResult is the full graded view of a completed attempt.
type AttemptResult struct {
	AttemptID        uuid.UUID        `json:"attempt_id"`
	AttemptNumber    int              `json:"attempt_number"`
	TotalMarks       int              `json:"total_marks"`
	MarksObtained    int              `json:"marks_obtained"`
	Percentage       float64          `json:"percentage"`
	Passed           bool             `json:"passed"`
	TimeTaken        int              `json:"time_taken"`
	CompletedAt      time.Time        `json:"completed_at"`
	CompletionReason CompletionReason `json:"completion_reason"`
	Answers          []ResultAnswer   `json:"answers"`
	CorrectCount     int              `json:"correct_count"`
	IncorrectCount   int              `json:"incorrect_count"`
	AccuracyRate     float64          `json:"accuracy_rate"`
	Violations       []Violation      `json:"violations"`
}

// AttemptSummary is one row of an examinee's attempt history.
type AttemptSummary struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	AttemptNumber    int               `json:"attempt_number"`
	Status           AttemptStatus     `json:"status"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CompletionReason *CompletionReason `json:"completion_reason,omitempty"`
	MarksObtained    int               `json:"marks_obtained"`
	TotalMarks       int               `json:"total_marks"`
	Percentage       float64           `json:"percentage"`
	Passed           bool              `json:"passed"`
}

// AttemptState is the live view used to re-seed a client after reload.
type AttemptState struct {
	AttemptID        uuid.UUID              `json:"attempt_id"`
	TestID           uuid.UUID              `json:"test_id"`
	Status           AttemptStatus          `json:"status"`
	StartedAt        time.Time              `json:"started_at"`
	Deadline         time.Time              `json:"deadline"`
	RemainingSeconds int64                  `json:"remaining_seconds"`
	SavedAnswers     map[string]AnswerValue `json:"saved_answers"`
	Questions        []QuestionForExaminee  `json:"questions"`
}
