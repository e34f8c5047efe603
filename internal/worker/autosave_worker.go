package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
	"github.com/stemsi/exstem-attempt/internal/service"
)

// DraftWriter merges autosaved answers into attempts.draft_answers.
type DraftWriter interface {
	MergeDraftAnswers(ctx context.Context, attemptID uuid.UUID, drafts map[string]model.AnswerValue) error
}

// AutosaveWorker consumes persist_answers_queue and merges the answers into
// the attempt rows, one write per attempt per batch.
type AutosaveWorker struct {
	store DraftWriter
	queue *batcher
	log   zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(store DraftWriter, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	log = log.With().Str("component", "autosave_worker").Logger()
	return &AutosaveWorker{
		store: store,
		queue: &batcher{rdb: rdb, queue: config.WorkerKey.PersistAnswersQueue, log: log},
		log:   log,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AutosaveWorker started")
	w.queue.run(ctx, w.flush)
}

// draftBatch is the queued saves of one attempt, coalesced by question.
type draftBatch struct {
	drafts map[string]model.AnswerValue
	raws   []string
}

func (w *AutosaveWorker) flush(ctx context.Context, items []string) {
	var requeue []string
	for attemptID, batch := range groupDrafts(items, w.log) {
		err := w.store.MergeDraftAnswers(ctx, attemptID, batch.drafts)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			// The attempt completed meanwhile; its drafts were already graded.
			w.log.Debug().Str("attempt_id", attemptID.String()).Msg("Dropping drafts of closed attempt")
		default:
			w.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Persist error, requeueing")
			requeue = append(requeue, batch.raws...)
		}
	}
	w.queue.requeue(ctx, requeue)
}

// groupDrafts decodes queued saves and groups them by attempt. Later saves of
// the same question win.
func groupDrafts(items []string, log zerolog.Logger) map[uuid.UUID]*draftBatch {
	out := make(map[uuid.UUID]*draftBatch)
	for _, item := range items {
		var p service.DraftPayload
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			log.Error().Err(err).Msg("Unmarshal error")
			continue
		}
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil || p.QuestionID == "" {
			log.Error().Str("attempt_id", p.AttemptID).Msg("Dropping draft with invalid ids")
			continue
		}

		b, ok := out[attemptID]
		if !ok {
			b = &draftBatch{drafts: make(map[string]model.AnswerValue)}
			out[attemptID] = b
		}
		b.drafts[p.QuestionID] = p.Value
		b.raws = append(b.raws, item)
	}
	return out
}
