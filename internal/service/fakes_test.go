package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
)

// memAttempts mirrors the constraints of the attempts table: one in-progress
// row per pair, unique attempt numbers and version-guarded updates.
type memAttempts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Attempt

	// beforeUpdate runs under the lock with the stored row before each Update.
	beforeUpdate func(stored *model.Attempt)
	updateCalls  int
}

func newMemAttempts() *memAttempts {
	return &memAttempts{rows: make(map[uuid.UUID]*model.Attempt)}
}

func (m *memAttempts) CountByExamineeAndTest(_ context.Context, examineeID int, testID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.ExamineeID == examineeID && a.TestID == testID {
			n++
		}
	}
	return n, nil
}

func (m *memAttempts) GetInProgress(_ context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ExamineeID == examineeID && a.TestID == testID && a.Status == model.AttemptStatusInProgress {
			return cloneAttempt(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAttempts) GetLatestCompleted(_ context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.Attempt
	for _, a := range m.rows {
		if a.ExamineeID != examineeID || a.TestID != testID || a.Status != model.AttemptStatusCompleted {
			continue
		}
		if latest == nil || a.CompletedAt.After(*latest.CompletedAt) ||
			(a.CompletedAt.Equal(*latest.CompletedAt) && a.AttemptNumber > latest.AttemptNumber) {
			latest = a
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(latest), nil
}

func (m *memAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (m *memAttempts) Create(_ context.Context, a *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ExamineeID != a.ExamineeID || row.TestID != a.TestID {
			continue
		}
		if row.AttemptNumber == a.AttemptNumber {
			return repository.ErrDuplicate
		}
		if row.Status == model.AttemptStatusInProgress && a.Status == model.AttemptStatusInProgress {
			return repository.ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Version = 1
	m.rows[a.ID] = cloneAttempt(a)
	return nil
}

func (m *memAttempts) Update(_ context.Context, a *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	stored, ok := m.rows[a.ID]
	if !ok {
		return repository.ErrVersionConflict
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate(stored)
	}
	if stored.Version != a.Version {
		return repository.ErrVersionConflict
	}
	a.Version++
	m.rows[a.ID] = cloneAttempt(a)
	return nil
}

func (m *memAttempts) ListByExamineeAndTest(_ context.Context, examineeID int, testID uuid.UUID) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range m.list(examineeID) {
		if a.TestID == testID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// put stores a row as is, bypassing the constraints.
func (m *memAttempts) put(a *model.Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.ID] = cloneAttempt(a)
}

func (m *memAttempts) get(id uuid.UUID) *model.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAttempt(m.rows[id])
}

func (m *memAttempts) list(examineeID int) []*model.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Attempt
	for _, a := range m.rows {
		if a.ExamineeID == examineeID {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out
}

func cloneAttempt(a *model.Attempt) *model.Attempt {
	if a == nil {
		return nil
	}
	c := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.FinalizedAt != nil {
		t := *a.FinalizedAt
		c.FinalizedAt = &t
	}
	if a.CompletionReason != nil {
		r := *a.CompletionReason
		c.CompletionReason = &r
	}
	if a.TimeTakenMinutes != nil {
		n := *a.TimeTakenMinutes
		c.TimeTakenMinutes = &n
	}
	if a.Answers != nil {
		c.Answers = make([]model.AttemptAnswer, len(a.Answers))
		for i, ans := range a.Answers {
			c.Answers[i] = ans
			c.Answers[i].SelectedAnswer = append(model.AnswerValue(nil), ans.SelectedAnswer...)
			if ans.IsCorrect != nil {
				v := *ans.IsCorrect
				c.Answers[i].IsCorrect = &v
			}
			if ans.MarksObtained != nil {
				v := *ans.MarksObtained
				c.Answers[i].MarksObtained = &v
			}
		}
	}
	if a.DraftAnswers != nil {
		c.DraftAnswers = make(map[string]model.AnswerValue, len(a.DraftAnswers))
		for k, v := range a.DraftAnswers {
			c.DraftAnswers[k] = v
		}
	}
	return &c
}

type memCatalog struct {
	snapshots map[uuid.UUID]*model.TestSnapshot
}

func (c *memCatalog) Snapshot(_ context.Context, testID uuid.UUID) (*model.TestSnapshot, error) {
	snap, ok := c.snapshots[testID]
	if !ok {
		return nil, ErrTestNotFound
	}
	return snap, nil
}

type memDrafts struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]map[string]model.AnswerValue
}

func newMemDrafts() *memDrafts {
	return &memDrafts{drafts: make(map[uuid.UUID]map[string]model.AnswerValue)}
}

func (d *memDrafts) Save(_ context.Context, attemptID uuid.UUID, questionID string, value model.AnswerValue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drafts[attemptID] == nil {
		d.drafts[attemptID] = make(map[string]model.AnswerValue)
	}
	d.drafts[attemptID][questionID] = value
	return nil
}

func (d *memDrafts) Load(_ context.Context, attemptID uuid.UUID) (map[string]model.AnswerValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]model.AnswerValue, len(d.drafts[attemptID]))
	for k, v := range d.drafts[attemptID] {
		out[k] = v
	}
	return out, nil
}

type memViolations struct {
	mu         sync.Mutex
	violations []model.Violation
}

func (v *memViolations) Record(_ context.Context, violation model.Violation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	violation.ID = int64(len(v.violations) + 1)
	v.violations = append(v.violations, violation)
}

func (v *memViolations) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := []model.Violation{}
	for _, violation := range v.violations {
		if violation.AttemptID == attemptID {
			out = append(out, violation)
		}
	}
	return out, nil
}

type memCompletions struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (c *memCompletions) AttemptCompleted(_ context.Context, attemptID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, attemptID)
}

func (c *memCompletions) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
