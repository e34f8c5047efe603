package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// AttemptStore persists attempts. Update must reject a stale Version with
// repository.ErrVersionConflict; Create must reject a second in-progress
// attempt for the same pair with repository.ErrDuplicate.
type AttemptStore interface {
	CountByExamineeAndTest(ctx context.Context, examineeID int, testID uuid.UUID) (int, error)
	GetInProgress(ctx context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error)
	GetLatestCompleted(ctx context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListByExamineeAndTest(ctx context.Context, examineeID int, testID uuid.UUID) ([]model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	Update(ctx context.Context, a *model.Attempt) error
}

// TestCatalog returns the test definition and question set. Implementations
// return ErrTestNotFound for unknown tests.
type TestCatalog interface {
	Snapshot(ctx context.Context, testID uuid.UUID) (*model.TestSnapshot, error)
}

// DraftStore buffers autosaved answers of in-progress attempts.
type DraftStore interface {
	Save(ctx context.Context, attemptID uuid.UUID, questionID string, value model.AnswerValue) error
	Load(ctx context.Context, attemptID uuid.UUID) (map[string]model.AnswerValue, error)
}

// ViolationLog records and lists integrity events. Record is best effort.
type ViolationLog interface {
	Record(ctx context.Context, v model.Violation)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error)
}

// CompletionNotifier is told about every attempt that reaches completed.
type CompletionNotifier interface {
	AttemptCompleted(ctx context.Context, attemptID uuid.UUID)
}
