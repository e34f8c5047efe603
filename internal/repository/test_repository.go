package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// TestRepository reads test definitions owned by the test catalog.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, start_time, duration_minutes, total_marks
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.StartTime, &t.DurationMinutes, &t.TotalMarks)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Create inserts a test definition. Only the seeding tool writes tests.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, start_time, duration_minutes, total_marks)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		t.Title, t.StartTime, t.DurationMinutes, t.TotalMarks,
	).Scan(&t.ID)
}
