package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AnswerType enumerates how a question is graded.
type AnswerType string

const (
	AnswerTypeSingleChoice AnswerType = "single_choice"
	AnswerTypeMultiChoice  AnswerType = "multi_choice"
	AnswerTypeNumeric      AnswerType = "numeric"
)

// IsChoice reports whether the type picks from an option list.
func (t AnswerType) IsChoice() bool {
	return t == AnswerTypeSingleChoice || t == AnswerTypeMultiChoice
}

// Question is owned by the question bank; the attempt engine only reads it.
type Question struct {
	ID            uuid.UUID   `json:"id"`
	TestID        uuid.UUID   `json:"test_id"`
	Prompt        string      `json:"prompt"`
	AnswerType    AnswerType  `json:"answer_type"`
	Options       []string    `json:"options,omitempty"`
	CorrectAnswer AnswerValue `json:"correct_answer"`
	Marks         int         `json:"marks"`
	// Tolerance is an optional absolute band for numeric answers.
	Tolerance *float64 `json:"tolerance,omitempty"`
	OrderNum  int      `json:"order_num"`
}

// MarksValue returns the question's marks, defaulting to 1.
func (q *Question) MarksValue() int {
	if q.Marks < 1 {
		return 1
	}
	return q.Marks
}

var (
	ErrTooFewOptions   = errors.New("choice question needs at least two options")
	ErrUnknownOption   = errors.New("correct answer references a missing option")
	ErrMissingCorrect  = errors.New("question has no correct answer")
	ErrUnknownQuestion = errors.New("unknown answer type")
)

// Validate checks the structural invariants of a question record.
func (q *Question) Validate() error {
	if q.CorrectAnswer.IsEmpty() || q.CorrectAnswer.Malformed() {
		return ErrMissingCorrect
	}

	switch q.AnswerType {
	case AnswerTypeSingleChoice, AnswerTypeMultiChoice:
		if len(q.Options) < 2 {
			return ErrTooFewOptions
		}
		if q.AnswerType == AnswerTypeSingleChoice && len(q.CorrectAnswer) != 1 {
			return fmt.Errorf("single choice question has %d correct answers", len(q.CorrectAnswer))
		}
		options := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			options[strings.TrimSpace(o)] = struct{}{}
		}
		for _, c := range q.CorrectAnswer {
			if _, ok := options[strings.TrimSpace(c)]; !ok {
				return fmt.Errorf("%w: %q", ErrUnknownOption, c)
			}
		}
	case AnswerTypeNumeric:
		if len(q.CorrectAnswer) != 1 {
			return fmt.Errorf("numeric question has %d correct answers", len(q.CorrectAnswer))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, q.AnswerType)
	}
	return nil
}

// QuestionForExaminee is a question without its correct answer.
type QuestionForExaminee struct {
	ID         uuid.UUID  `json:"id"`
	Prompt     string     `json:"prompt"`
	AnswerType AnswerType `json:"answer_type"`
	Options    []string   `json:"options,omitempty"`
	Marks      int        `json:"marks"`
	OrderNum   int        `json:"order_num"`
}
