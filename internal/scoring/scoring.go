// Package scoring grades a set of submitted answers against a question set.
//
// Grading is deterministic and has no side effects: the same questions and
// answers always produce the same Outcome, so it is safe to run again on
// retry or when repairing a stored attempt.
package scoring

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-attempt/internal/model"
	"golang.org/x/text/unicode/norm"
)

// DefaultPassPercentage is used when Options.PassPercentage is zero.
const DefaultPassPercentage = 40.0

// Options adjusts aggregate computation.
type Options struct {
	// TotalMarksSnapshot, when positive, replaces the sum of question marks.
	TotalMarksSnapshot int
	PassPercentage     float64
}

// Outcome is the graded result of one attempt.
type Outcome struct {
	Answers        []model.AttemptAnswer
	TotalMarks     int
	MarksObtained  int
	Percentage     float64
	Passed         bool
	CorrectCount   int
	IncorrectCount int
}

// Grade scores submitted answers (question id → value) against questions.
// Answers for unknown questions and malformed values are graded incorrect;
// unanswered questions simply contribute nothing.
func Grade(questions []model.Question, submitted map[string]model.AnswerValue, opts Options) Outcome {
	keys := make([]string, 0, len(submitted))
	for key := range submitted {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	byID := make(map[string]model.AnswerValue, len(submitted))
	var unknown []string
	for _, key := range keys {
		id, ok := canonicalID(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		byID[id] = submitted[key]
	}

	var out Outcome
	known := make(map[string]struct{}, len(questions))
	for i := range questions {
		q := &questions[i]
		id := q.ID.String()
		known[id] = struct{}{}
		out.TotalMarks += q.MarksValue()

		value, answered := byID[id]
		if !answered {
			continue
		}

		correct := IsCorrect(q, value)
		marks := 0
		if correct {
			marks = q.MarksValue()
			out.CorrectCount++
		} else {
			out.IncorrectCount++
		}
		out.MarksObtained += marks
		out.Answers = append(out.Answers, gradedAnswer(id, value, correct, marks))
	}

	for id := range byID {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		value, ok := byID[id]
		if !ok {
			value = submitted[id]
		}
		out.IncorrectCount++
		out.Answers = append(out.Answers, gradedAnswer(id, value, false, 0))
	}

	if opts.TotalMarksSnapshot > 0 {
		out.TotalMarks = opts.TotalMarksSnapshot
	}
	if out.MarksObtained > out.TotalMarks {
		out.MarksObtained = out.TotalMarks
	}

	pass := opts.PassPercentage
	if pass <= 0 {
		pass = DefaultPassPercentage
	}
	out.Percentage = Percentage(out.MarksObtained, out.TotalMarks)
	out.Passed = out.TotalMarks > 0 && out.Percentage >= pass
	return out
}

// Percentage returns 100*obtained/total, or 0 when total is not positive.
func Percentage(obtained, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(obtained) / float64(total)
}

// AccuracyRate is the share of graded answers that were correct, in percent.
func AccuracyRate(correct, incorrect int) float64 {
	return Percentage(correct, correct+incorrect)
}

// IsCorrect applies the per-type rule for a single question. It never panics
// on malformed input; anything it cannot interpret is incorrect.
func IsCorrect(q *model.Question, value model.AnswerValue) bool {
	if value.IsEmpty() || value.Malformed() || q.Validate() != nil {
		return false
	}

	switch q.AnswerType {
	case model.AnswerTypeSingleChoice:
		got, ok := value.Single()
		want, _ := q.CorrectAnswer.Single()
		return ok && normalize(got) == normalize(want)

	case model.AnswerTypeMultiChoice:
		return sameSet(value, q.CorrectAnswer)

	case model.AnswerTypeNumeric:
		raw, ok := value.Single()
		if !ok {
			return false
		}
		got, ok := parseNumber(raw)
		if !ok {
			return false
		}
		wantRaw, _ := q.CorrectAnswer.Single()
		want, ok := parseNumber(wantRaw)
		if !ok {
			return false
		}
		if q.Tolerance != nil && *q.Tolerance > 0 {
			return math.Abs(got-want) <= *q.Tolerance
		}
		return got == want
	}
	return false
}

func gradedAnswer(id string, value model.AnswerValue, correct bool, marks int) model.AttemptAnswer {
	return model.AttemptAnswer{
		QuestionID:     id,
		SelectedAnswer: value,
		IsCorrect:      &correct,
		MarksObtained:  &marks,
	}
}

func canonicalID(key string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(key))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func sameSet(a, b model.AnswerValue) bool {
	left := toSet(a)
	right := toSet(b)
	if len(left) == 0 || len(left) != len(right) {
		return false
	}
	for k := range left {
		if _, ok := right[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(v model.AnswerValue) map[string]struct{} {
	set := make(map[string]struct{}, len(v))
	for _, s := range v {
		if n := normalize(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(normalize(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
