package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions for a given test, ordered by order_num.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, prompt, answer_type, options, correct_answer, marks, tolerance, order_num
		 FROM questions WHERE test_id = $1
		 ORDER BY order_num, id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			correct []byte
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Prompt, &q.AnswerType, &q.Options, &correct, &q.Marks, &q.Tolerance, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(correct, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("decode correct answer of question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	correct, err := json.Marshal(q.CorrectAnswer)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, prompt, answer_type, options, correct_answer, marks, tolerance, order_num)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		 RETURNING id`,
		q.TestID, q.Prompt, q.AnswerType, q.Options, string(correct), q.Marks, q.Tolerance, q.OrderNum,
	).Scan(&q.ID)
}
