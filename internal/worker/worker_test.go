package worker

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-attempt/internal/logger"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
	"github.com/stemsi/exstem-attempt/internal/service"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

type recordingViolations struct {
	copyErr  error
	copied   []model.Violation
	inserted []model.Violation
}

func (r *recordingViolations) CopyInsert(_ context.Context, violations []model.Violation) (int64, error) {
	if r.copyErr != nil {
		return 0, r.copyErr
	}
	r.copied = append(r.copied, violations...)
	return int64(len(violations)), nil
}

func (r *recordingViolations) Insert(_ context.Context, v *model.Violation) error {
	r.inserted = append(r.inserted, *v)
	return nil
}

func TestDecodeViolation(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 8, 0, 0, time.UTC)
	valid := model.Violation{AttemptID: uuid.New(), ExamineeID: 7, Classification: " exited fullscreen ", OccurredAt: at}

	tests := []struct {
		name    string
		item    string
		wantErr bool
	}{
		{"valid", mustJSON(t, valid), false},
		{"malformed json", "{", true},
		{"missing attempt", mustJSON(t, model.Violation{Classification: "x", OccurredAt: at}), true},
		{"blank classification", mustJSON(t, model.Violation{AttemptID: uuid.New(), Classification: "  ", OccurredAt: at}), true},
		{"missing time", mustJSON(t, model.Violation{AttemptID: uuid.New(), Classification: "x"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeViolation(tt.item)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v.Classification != "exited fullscreen" {
				t.Fatalf("classification = %q", v.Classification)
			}
		})
	}
}

func TestViolationFlushUsesCopy(t *testing.T) {
	store := &recordingViolations{}
	w := NewViolationWorker(store, nil, logger.Nop())

	v := model.Violation{AttemptID: uuid.New(), ExamineeID: 7, Classification: "switched tab", OccurredAt: time.Now().UTC()}
	w.flush(context.Background(), []string{mustJSON(t, v), "garbage"})

	if len(store.copied) != 1 || len(store.inserted) != 0 {
		t.Fatalf("copied %d inserted %d, want 1 and 0", len(store.copied), len(store.inserted))
	}
}

func TestViolationFlushFallsBackToRows(t *testing.T) {
	store := &recordingViolations{copyErr: errors.New("copy failed")}
	w := NewViolationWorker(store, nil, logger.Nop())

	a := model.Violation{AttemptID: uuid.New(), Classification: "a", OccurredAt: time.Now().UTC()}
	b := model.Violation{AttemptID: uuid.New(), Classification: "b", OccurredAt: time.Now().UTC()}
	w.flush(context.Background(), []string{mustJSON(t, a), mustJSON(t, b)})

	if len(store.inserted) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(store.inserted))
	}
}

type recordingDrafts struct {
	merged map[uuid.UUID]map[string]model.AnswerValue
	err    error
}

func (r *recordingDrafts) MergeDraftAnswers(_ context.Context, attemptID uuid.UUID, drafts map[string]model.AnswerValue) error {
	if r.err != nil {
		return r.err
	}
	if r.merged == nil {
		r.merged = make(map[uuid.UUID]map[string]model.AnswerValue)
	}
	r.merged[attemptID] = drafts
	return nil
}

func TestGroupDrafts(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	items := []string{
		mustJSON(t, service.DraftPayload{AttemptID: a.String(), QuestionID: "q1", Value: model.AnswerValue{"A"}}),
		mustJSON(t, service.DraftPayload{AttemptID: b.String(), QuestionID: "q1", Value: model.AnswerValue{"C"}}),
		mustJSON(t, service.DraftPayload{AttemptID: a.String(), QuestionID: "q1", Value: model.AnswerValue{"B"}}),
		mustJSON(t, service.DraftPayload{AttemptID: "nope", QuestionID: "q1"}),
		"not json",
	}

	groups := groupDrafts(items, logger.Nop())
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if got := groups[a].drafts["q1"]; !reflect.DeepEqual(got, model.AnswerValue{"B"}) {
		t.Fatalf("latest save lost: %v", got)
	}
	if len(groups[a].raws) != 2 {
		t.Fatalf("raws = %d, want 2", len(groups[a].raws))
	}
}

func TestAutosaveFlushDropsClosedAttempts(t *testing.T) {
	store := &recordingDrafts{err: repository.ErrNotFound}
	w := NewAutosaveWorker(store, nil, logger.Nop())

	item := mustJSON(t, service.DraftPayload{AttemptID: uuid.NewString(), QuestionID: "q1", Value: model.AnswerValue{"A"}})
	// Nothing is requeued, so the nil redis client is never touched.
	w.flush(context.Background(), []string{item})
}

func TestAutosaveFlushMerges(t *testing.T) {
	store := &recordingDrafts{}
	w := NewAutosaveWorker(store, nil, logger.Nop())

	id := uuid.New()
	w.flush(context.Background(), []string{
		mustJSON(t, service.DraftPayload{AttemptID: id.String(), QuestionID: "q1", Value: model.AnswerValue{"A"}}),
		mustJSON(t, service.DraftPayload{AttemptID: id.String(), QuestionID: "q2", Value: model.AnswerValue{"4"}}),
	})
	if len(store.merged[id]) != 2 {
		t.Fatalf("merged = %v", store.merged)
	}
}

func TestCompletedIDs(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()
	got := completedIDs([]string{a, "junk", b, a})
	if !reflect.DeepEqual(got, []string{a, b}) {
		t.Fatalf("ids = %v, want %v", got, []string{a, b})
	}
}
