package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// ViolationWriter is the persistence used by ViolationWorker.
type ViolationWriter interface {
	CopyInsert(ctx context.Context, violations []model.Violation) (int64, error)
	Insert(ctx context.Context, v *model.Violation) error
}

// ViolationWorker persists queued violations: COPY per batch, row by row
// when the batch fails, requeue for rows that still fail.
type ViolationWorker struct {
	store ViolationWriter
	queue *batcher
	log   zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(store ViolationWriter, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	log = log.With().Str("component", "violation_worker").Logger()
	return &ViolationWorker{
		store: store,
		queue: &batcher{rdb: rdb, queue: config.WorkerKey.PersistViolationsQueue, log: log},
		log:   log,
	}
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")
	w.queue.run(ctx, w.flush)
}

func (w *ViolationWorker) flush(ctx context.Context, items []string) {
	violations, raws := decodeViolations(items, w.log)
	if len(violations) == 0 {
		return
	}

	_, err := w.store.CopyInsert(ctx, violations)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(violations)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var requeue []string
	for i := range violations {
		if err := w.store.Insert(ctx, &violations[i]); err != nil {
			w.log.Error().Err(err).Str("attempt_id", violations[i].AttemptID.String()).Msg("Insert failed, requeueing")
			requeue = append(requeue, raws[i])
		}
	}
	w.queue.requeue(ctx, requeue)
}

var errInvalidViolation = errors.New("violation without attempt or classification")

// decodeViolations drops entries that can never be stored and returns the
// rest with their raw form, index-aligned.
func decodeViolations(items []string, log zerolog.Logger) ([]model.Violation, []string) {
	violations := make([]model.Violation, 0, len(items))
	raws := make([]string, 0, len(items))
	for _, item := range items {
		v, err := decodeViolation(item)
		if err != nil {
			// Malformed payloads cannot succeed on retry.
			log.Error().Err(err).Str("data", item).Msg("Discarding malformed violation")
			continue
		}
		violations = append(violations, v)
		raws = append(raws, item)
	}
	return violations, raws
}

func decodeViolation(item string) (model.Violation, error) {
	var v model.Violation
	if err := json.Unmarshal([]byte(item), &v); err != nil {
		return v, err
	}
	v.Classification = strings.TrimSpace(v.Classification)
	if v.AttemptID == uuid.Nil || v.Classification == "" || v.OccurredAt.IsZero() {
		return v, errInvalidViolation
	}
	return v, nil
}
