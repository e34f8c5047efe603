package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-attempt/internal/model"
)

const attemptColumns = `id, examinee_id, test_id, attempt_number, status, origin, started_at,
	completed_at, finalized_at, completion_reason, answers, draft_answers, total_marks, marks_obtained,
	percentage, time_taken_minutes, version`

// AttemptRepository handles attempt data access. Every write that changes an
// existing row is guarded by the row version.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// CountByExamineeAndTest returns how many attempts the examinee has made.
func (r *AttemptRepository) CountByExamineeAndTest(ctx context.Context, examineeID int, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE examinee_id = $1 AND test_id = $2`,
		examineeID, testID,
	).Scan(&n)
	return n, err
}

// GetInProgress returns the single in-progress attempt for the pair.
func (r *AttemptRepository) GetInProgress(ctx context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error) {
	return r.queryOne(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE examinee_id = $1 AND test_id = $2 AND status = $3`,
		examineeID, testID, model.AttemptStatusInProgress)
}

// GetLatestCompleted returns the most recently completed attempt for the pair.
func (r *AttemptRepository) GetLatestCompleted(ctx context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error) {
	return r.queryOne(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE examinee_id = $1 AND test_id = $2 AND status = $3
		 ORDER BY completed_at DESC, attempt_number DESC
		 LIMIT 1`,
		examineeID, testID, model.AttemptStatusCompleted)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return r.queryOne(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id)
}

// ListByExamineeAndTest returns every attempt of the pair, oldest first.
func (r *AttemptRepository) ListByExamineeAndTest(ctx context.Context, examineeID int, testID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE examinee_id = $1 AND test_id = $2
		 ORDER BY attempt_number`,
		examineeID, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Create inserts a new attempt and fills in its id and version. A second
// in-progress attempt for the pair, or a reused attempt number, yields
// ErrDuplicate.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}
	drafts, err := marshalDrafts(a.DraftAnswers)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO attempts (examinee_id, test_id, attempt_number, status, origin, started_at,
		                       answers, draft_answers, total_marks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
		 RETURNING id, version`,
		a.ExamineeID, a.TestID, a.AttemptNumber, a.Status, a.Origin, a.StartedAt,
		answers, drafts, a.TotalMarks,
	).Scan(&a.ID, &a.Version)
	return translate(err)
}

// Update writes the mutable fields of a when the stored version still equals
// a.Version, then advances a.Version. A lost race yields ErrVersionConflict.
func (r *AttemptRepository) Update(ctx context.Context, a *model.Attempt) error {
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}
	drafts, err := marshalDrafts(a.DraftAnswers)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET status = $1, completed_at = $2, finalized_at = $3, completion_reason = $4,
		     answers = $5::jsonb, draft_answers = $6::jsonb, total_marks = $7,
		     marks_obtained = $8, percentage = $9, time_taken_minutes = $10,
		     version = version + 1
		 WHERE id = $11 AND version = $12
		 RETURNING version`,
		a.Status, a.CompletedAt, a.FinalizedAt, a.CompletionReason,
		answers, drafts, a.TotalMarks,
		a.MarksObtained, a.Percentage, a.TimeTakenMinutes,
		a.ID, a.Version,
	).Scan(&a.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return translate(err)
}

// MergeDraftAnswers overlays drafts onto the stored draft answers of an
// in-progress attempt. It returns ErrNotFound when the attempt is missing or
// already completed.
func (r *AttemptRepository) MergeDraftAnswers(ctx context.Context, attemptID uuid.UUID, drafts map[string]model.AnswerValue) error {
	if len(drafts) == 0 {
		return nil
	}
	payload, err := marshalDrafts(drafts)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET draft_answers = COALESCE(draft_answers, '{}'::jsonb) || $2::jsonb,
		     version = version + 1
		 WHERE id = $1 AND status = $3`,
		attemptID, payload, model.AttemptStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttemptRepository) queryOne(ctx context.Context, sql string, args ...any) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	var (
		a       model.Attempt
		answers []byte
		drafts  []byte
	)
	err := row.Scan(&a.ID, &a.ExamineeID, &a.TestID, &a.AttemptNumber, &a.Status, &a.Origin,
		&a.StartedAt, &a.CompletedAt, &a.FinalizedAt, &a.CompletionReason, &answers, &drafts, &a.TotalMarks,
		&a.MarksObtained, &a.Percentage, &a.TimeTakenMinutes, &a.Version)
	if err != nil {
		return nil, err
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of attempt %s: %w", a.ID, err)
		}
	}
	if len(drafts) > 0 {
		if err := json.Unmarshal(drafts, &a.DraftAnswers); err != nil {
			return nil, fmt.Errorf("decode drafts of attempt %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func marshalAnswers(answers []model.AttemptAnswer) (string, error) {
	if answers == nil {
		answers = []model.AttemptAnswer{}
	}
	b, err := json.Marshal(answers)
	return string(b), err
}

func marshalDrafts(drafts map[string]model.AnswerValue) (string, error) {
	if drafts == nil {
		drafts = map[string]model.AnswerValue{}
	}
	b, err := json.Marshal(drafts)
	return string(b), err
}
