package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/metrics"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// ViolationStore is the durable side of the violation log.
type ViolationStore interface {
	Insert(ctx context.Context, v *model.Violation) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error)
}

// ViolationRecorder queues violations for ViolationWorker. When the queue is
// unreachable it writes straight to the store, and when that fails too the
// event is logged and dropped. It never reports an error to its caller.
type ViolationRecorder struct {
	rdb   *redis.Client
	store ViolationStore
	log   zerolog.Logger
}

// NewViolationRecorder creates a new ViolationRecorder.
func NewViolationRecorder(rdb *redis.Client, store ViolationStore, log zerolog.Logger) *ViolationRecorder {
	return &ViolationRecorder{
		rdb:   rdb,
		store: store,
		log:   log.With().Str("component", "violation_recorder").Logger(),
	}
}

// Record delivers v on a best-effort basis.
func (r *ViolationRecorder) Record(ctx context.Context, v model.Violation) {
	payload, err := json.Marshal(v)
	if err == nil {
		err = r.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err()
		if err == nil {
			metrics.ViolationsRecorded.WithLabelValues("queue").Inc()
			return
		}
	}
	r.log.Warn().Err(err).Str("attempt_id", v.AttemptID.String()).Msg("Violation queue unavailable, writing directly")

	if err := r.store.Insert(ctx, &v); err != nil {
		r.log.Warn().Err(err).
			Str("attempt_id", v.AttemptID.String()).
			Str("classification", v.Classification).
			Time("occurred_at", v.OccurredAt).
			Msg("Violation dropped")
		return
	}
	metrics.ViolationsRecorded.WithLabelValues("direct").Inc()
}

// ListByAttempt returns the persisted violations of an attempt.
func (r *ViolationRecorder) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	return r.store.ListByAttempt(ctx, attemptID)
}
