package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
)

// DraftCleaner removes draft buffers.
type DraftCleaner interface {
	Clear(ctx context.Context, attemptIDs ...string) error
}

// CompletionWorker deletes the redis draft hashes of completed attempts in
// bulk once the attempt row holds the graded answers.
type CompletionWorker struct {
	drafts DraftCleaner
	queue  *batcher
	log    zerolog.Logger
}

// NewCompletionWorker creates a new CompletionWorker.
func NewCompletionWorker(drafts DraftCleaner, rdb *redis.Client, log zerolog.Logger) *CompletionWorker {
	log = log.With().Str("component", "completion_worker").Logger()
	return &CompletionWorker{
		drafts: drafts,
		queue:  &batcher{rdb: rdb, queue: config.WorkerKey.CompletedAttemptsQueue, log: log},
		log:    log,
	}
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *CompletionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CompletionWorker started")
	w.queue.run(ctx, w.flush)
}

func (w *CompletionWorker) flush(ctx context.Context, items []string) {
	ids := completedIDs(items)
	if len(ids) == 0 {
		return
	}
	if err := w.drafts.Clear(ctx, ids...); err != nil {
		w.log.Warn().Err(err).Int("count", len(ids)).Msg("Failed to clear draft buffers, requeueing")
		w.queue.requeue(ctx, ids)
		return
	}
	w.log.Debug().Int("count", len(ids)).Msg("Cleared draft buffers")
}

// completedIDs keeps valid, distinct attempt ids in queue order.
func completedIDs(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item)
		if err != nil {
			continue
		}
		s := id.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		ids = append(ids, s)
	}
	return ids
}
