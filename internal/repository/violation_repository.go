package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// ViolationRepository handles the append-only violation log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// CopyInsert bulk-loads violations with COPY.
func (r *ViolationRepository) CopyInsert(ctx context.Context, violations []model.Violation) (int64, error) {
	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_violations"},
		[]string{"attempt_id", "examinee_id", "classification", "occurred_at"},
		pgx.CopyFromSlice(len(violations), func(i int) ([]any, error) {
			v := violations[i]
			return []any{v.AttemptID, v.ExamineeID, v.Classification, v.OccurredAt}, nil
		}),
	)
}

// Insert appends a single violation and fills in its id and recorded time.
func (r *ViolationRepository) Insert(ctx context.Context, v *model.Violation) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempt_violations (attempt_id, examinee_id, classification, occurred_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recorded_at`,
		v.AttemptID, v.ExamineeID, v.Classification, v.OccurredAt,
	).Scan(&v.ID, &v.RecordedAt)
}

// ListByAttempt returns the violations of an attempt in the order they occurred.
func (r *ViolationRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, examinee_id, classification, occurred_at, recorded_at
		 FROM attempt_violations
		 WHERE attempt_id = $1
		 ORDER BY occurred_at, id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	violations := []model.Violation{}
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.ExamineeID, &v.Classification, &v.OccurredAt, &v.RecordedAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
