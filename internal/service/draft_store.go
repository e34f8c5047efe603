package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// draftTTL outlives any attempt; CompletionWorker deletes hashes earlier.
const draftTTL = 24 * time.Hour

// DraftPayload is the persist_answers_queue entry consumed by AutosaveWorker.
type DraftPayload struct {
	AttemptID  string            `json:"attempt_id"`
	QuestionID string            `json:"question_id"`
	Value      model.AnswerValue `json:"value"`
}

// RedisDraftStore keeps autosaved answers in a per-attempt hash and queues
// each save for persistence into attempts.draft_answers.
type RedisDraftStore struct {
	rdb *redis.Client
}

// NewRedisDraftStore creates a new RedisDraftStore.
func NewRedisDraftStore(rdb *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb}
}

// Save writes the answer to the hash and queues it in one round trip.
func (d *RedisDraftStore) Save(ctx context.Context, attemptID uuid.UUID, questionID string, value model.AnswerValue) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	payload, err := json.Marshal(DraftPayload{
		AttemptID:  attemptID.String(),
		QuestionID: questionID,
		Value:      value,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	key := config.CacheKey.AttemptDraftKey(attemptID.String())
	pipe := d.rdb.TxPipeline()
	pipe.HSet(ctx, key, questionID, encoded)
	pipe.Expire(ctx, key, draftTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns every buffered answer of the attempt. Entries that fail to
// decode are skipped.
func (d *RedisDraftStore) Load(ctx context.Context, attemptID uuid.UUID) (map[string]model.AnswerValue, error) {
	raw, err := d.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftKey(attemptID.String())).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.AnswerValue, len(raw))
	for questionID, encoded := range raw {
		var v model.AnswerValue
		if err := json.Unmarshal([]byte(encoded), &v); err != nil {
			continue
		}
		out[questionID] = v
	}
	return out, nil
}

// Clear deletes the draft hashes of the given attempts.
func (d *RedisDraftStore) Clear(ctx context.Context, attemptIDs ...string) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	keys := make([]string, len(attemptIDs))
	for i, id := range attemptIDs {
		keys[i] = config.CacheKey.AttemptDraftKey(id)
	}
	return d.rdb.Del(ctx, keys...).Err()
}
