package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
)

// CompletionQueue announces completed attempts on completed_attempts_queue
// so CompletionWorker can release their draft buffers.
type CompletionQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCompletionQueue creates a new CompletionQueue.
func NewCompletionQueue(rdb *redis.Client, log zerolog.Logger) *CompletionQueue {
	return &CompletionQueue{rdb: rdb, log: log.With().Str("component", "completion_queue").Logger()}
}

// AttemptCompleted enqueues the attempt id. A failure only delays cleanup
// until the draft hash expires.
func (q *CompletionQueue) AttemptCompleted(ctx context.Context, attemptID uuid.UUID) {
	if err := q.rdb.RPush(ctx, config.WorkerKey.CompletedAttemptsQueue, attemptID.String()).Err(); err != nil {
		q.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to enqueue completed attempt")
	}
}
