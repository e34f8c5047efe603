package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/clock"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/metrics"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
	"github.com/stemsi/exstem-attempt/internal/retry"
	"github.com/stemsi/exstem-attempt/internal/scoring"
)

// AttemptService owns the attempt state machine. Every operation re-derives
// the deadline from started_at and the test duration, so an attempt nobody
// submitted is closed by whichever request touches it next.
//
// Reads and writes of one attempt run as a single read-grade-write sequence.
// A write that loses an optimistic version race restarts the whole sequence
// under the retry policy.
type AttemptService struct {
	attempts    AttemptStore
	catalog     TestCatalog
	drafts      DraftStore
	violations  ViolationLog
	completions CompletionNotifier
	clock       clock.Clock
	cfg         config.AttemptConfig
	policy      retry.Policy
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	catalog TestCatalog,
	drafts DraftStore,
	violations ViolationLog,
	completions CompletionNotifier,
	clk clock.Clock,
	cfg config.AttemptConfig,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		catalog:     catalog,
		drafts:      drafts,
		violations:  violations,
		completions: completions,
		clock:       clk,
		cfg:         cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxJitter:   cfg.RetryMaxJitter,
			Retryable:   isWriteConflict,
		},
		log: log.With().Str("component", "attempt_service").Logger(),
	}
}

// StartAttempt creates a new attempt or resumes the live one. An in-progress
// attempt whose time is over is closed first and ErrAttemptExpired returned.
func (s *AttemptService) StartAttempt(ctx context.Context, examineeID int, testID uuid.UUID) (*model.StartAttemptResult, error) {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return nil, err
	}

	var res *model.StartAttemptResult
	err = s.run(ctx, "start attempt", func(ctx context.Context) error {
		var err error
		res, err = s.startOnce(ctx, examineeID, snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AttemptService) startOnce(ctx context.Context, examineeID int, snap *model.TestSnapshot) (*model.StartAttemptResult, error) {
	now := s.clock.Now()
	test := &snap.Test

	cur, err := s.inProgress(ctx, examineeID, test.ID)
	if err != nil {
		return nil, err
	}

	if cur != nil {
		deadline := clock.Deadline(cur.StartedAt, test.DurationMinutes)
		if clock.Expired(now, deadline) {
			if err := s.closeOnDeadline(ctx, cur, snap, deadline); err != nil {
				return nil, err
			}
			return nil, ErrAttemptExpired
		}

		metrics.AttemptsResumed.Inc()
		s.log.Info().
			Str("attempt_id", cur.ID.String()).
			Int("examinee_id", examineeID).
			Msg("Attempt resumed")
		return startResult(cur, now, deadline, true), nil
	}

	if !test.Available(now) {
		return nil, ErrNotAvailable
	}

	count, err := s.attempts.CountByExamineeAndTest(ctx, examineeID, test.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if count >= s.cfg.MaxAttemptsPerTest {
		return nil, ErrAttemptLimitExceeded
	}

	a := &model.Attempt{
		ExamineeID:    examineeID,
		TestID:        test.ID,
		AttemptNumber: count + 1,
		Status:        model.AttemptStatusInProgress,
		Origin:        model.AttemptOriginStarted,
		StartedAt:     now,
		TotalMarks:    snap.QuestionMarks(),
	}
	// A concurrent start surfaces as ErrDuplicate; the retry then resumes it.
	if err := s.attempts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	metrics.AttemptsStarted.Inc()
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("examinee_id", examineeID).
		Str("test_id", test.ID.String()).
		Int("attempt_number", a.AttemptNumber).
		Msg("Attempt started")
	return startResult(a, now, clock.Deadline(a.StartedAt, test.DurationMinutes), false), nil
}

// SubmitAttempt grades the submitted answers and completes the attempt.
//
// With no attempt in progress, a completed attempt that finished within the
// idempotency window is returned as is. Otherwise an attempt is synthesized
// and completed so a legitimate submission is never rejected for a missing
// start. A submission later than the deadline plus the grace period closes
// the attempt on its deadline with the answers saved before it.
func (s *AttemptService) SubmitAttempt(ctx context.Context, examineeID int, testID uuid.UUID, req *model.SubmitAttemptRequest) (*model.SubmitAttemptResult, error) {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]model.AnswerValue, len(req.Answers))
	for _, ans := range req.Answers {
		raw[ans.QuestionID] = ans.SelectedAnswer
	}

	var done *model.Attempt
	err = s.run(ctx, "submit attempt", func(ctx context.Context) error {
		var err error
		done, err = s.submitOnce(ctx, examineeID, snap, raw, req.TimeTakenMinutes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.submitResult(done), nil
}

func (s *AttemptService) submitOnce(
	ctx context.Context,
	examineeID int,
	snap *model.TestSnapshot,
	raw map[string]model.AnswerValue,
	timeTaken *model.AdvisoryMinutes,
) (*model.Attempt, error) {
	now := s.clock.Now()

	cur, err := s.inProgress(ctx, examineeID, snap.Test.ID)
	if err != nil {
		return nil, err
	}

	if cur == nil {
		recent, err := s.recentlyCompleted(ctx, examineeID, snap, now)
		if err != nil {
			return nil, err
		}
		if recent != nil {
			metrics.SubmitsDeduplicated.Inc()
			s.log.Info().
				Str("attempt_id", recent.ID.String()).
				Int("examinee_id", examineeID).
				Msg("Duplicate submit answered from completed attempt")
			return recent, nil
		}

		cur, err = s.synthesize(ctx, examineeID, snap, timeTaken, now)
		if err != nil {
			return nil, err
		}
	}

	deadline := clock.Deadline(cur.StartedAt, snap.Test.DurationMinutes)
	if now.After(deadline.Add(s.cfg.SubmitGrace)) {
		s.log.Warn().
			Str("attempt_id", cur.ID.String()).
			Time("deadline", deadline).
			Msg("Submit arrived after grace period, closing on deadline")
		if err := s.closeOnDeadline(ctx, cur, snap, deadline); err != nil {
			return nil, err
		}
		return cur, nil
	}

	completedAt := now
	if completedAt.After(deadline) {
		completedAt = deadline
	}
	if err := s.complete(ctx, cur, snap, raw, completedAt, model.CompletionSubmitted); err != nil {
		return nil, err
	}
	return cur, nil
}

// recentlyCompleted returns the latest completed attempt when a submit is a
// repeat of the one that closed it: the completion was written within the
// idempotency window, or the attempt ran to its deadline and the submit still
// falls inside the grace period.
func (s *AttemptService) recentlyCompleted(ctx context.Context, examineeID int, snap *model.TestSnapshot, now time.Time) (*model.Attempt, error) {
	last, err := s.attempts.GetLatestCompleted(ctx, examineeID, snap.Test.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest completed attempt: %w", err)
	}
	if last.CompletedAt == nil {
		return nil, nil
	}

	written := *last.CompletedAt
	if last.FinalizedAt != nil {
		written = *last.FinalizedAt
	}
	if age := now.Sub(written); age >= 0 && age <= s.cfg.IdempotencyWindow {
		return last, nil
	}

	deadline := clock.Deadline(last.StartedAt, snap.Test.DurationMinutes)
	if !last.CompletedAt.Before(deadline) && !now.Before(deadline) && !now.After(deadline.Add(s.cfg.SubmitGrace)) {
		return last, nil
	}
	return nil, nil
}

// synthesize creates the in-progress attempt a submit expected to find. It
// obeys the same window and ceiling rules as StartAttempt.
func (s *AttemptService) synthesize(ctx context.Context, examineeID int, snap *model.TestSnapshot, timeTaken *model.AdvisoryMinutes, now time.Time) (*model.Attempt, error) {
	test := &snap.Test
	if !test.Available(now) {
		return nil, ErrNotAvailable
	}

	count, err := s.attempts.CountByExamineeAndTest(ctx, examineeID, test.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if count >= s.cfg.MaxAttemptsPerTest {
		return nil, ErrAttemptLimitExceeded
	}

	var elapsed time.Duration
	if timeTaken != nil {
		elapsed = time.Duration(max(0, min(int(*timeTaken), test.DurationMinutes))) * time.Minute
	}

	a := &model.Attempt{
		ExamineeID:    examineeID,
		TestID:        test.ID,
		AttemptNumber: count + 1,
		Status:        model.AttemptStatusInProgress,
		Origin:        model.AttemptOriginSynthesized,
		StartedAt:     now.Add(-elapsed),
		TotalMarks:    snap.QuestionMarks(),
	}
	if err := s.attempts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("synthesize attempt: %w", err)
	}

	metrics.AttemptsSynthesized.Inc()
	s.log.Warn().
		Str("attempt_id", a.ID.String()).
		Int("examinee_id", examineeID).
		Str("test_id", test.ID.String()).
		Msg("Submit without an in-progress attempt, synthesized one")
	return a, nil
}

// GetResult returns the graded view of the examinee's attempt. A completed
// attempt is preferred. An in-progress attempt is closed first, on its
// deadline if the time is over or early otherwise. Completed attempts
// persisted without grading are regraded and saved before they are shown.
func (s *AttemptService) GetResult(ctx context.Context, examineeID int, testID uuid.UUID) (*model.AttemptResult, error) {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return nil, err
	}

	var a *model.Attempt
	err = s.run(ctx, "get result", func(ctx context.Context) error {
		var err error
		a, err = s.resultOnce(ctx, examineeID, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	violations, err := s.violations.ListByAttempt(ctx, a.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to list violations")
		violations = []model.Violation{}
	}
	return s.buildResult(a, violations), nil
}

func (s *AttemptService) resultOnce(ctx context.Context, examineeID int, snap *model.TestSnapshot) (*model.Attempt, error) {
	now := s.clock.Now()

	cur, err := s.inProgress(ctx, examineeID, snap.Test.ID)
	if err != nil {
		return nil, err
	}

	if cur != nil {
		deadline := clock.Deadline(cur.StartedAt, snap.Test.DurationMinutes)
		if clock.Expired(now, deadline) {
			if err := s.closeOnDeadline(ctx, cur, snap, deadline); err != nil {
				return nil, err
			}
			return cur, nil
		}
	}

	last, err := s.attempts.GetLatestCompleted(ctx, examineeID, snap.Test.ID)
	switch {
	case err == nil:
		if last.NeedsRepair() {
			if err := s.repair(ctx, last, snap); err != nil {
				return nil, err
			}
		}
		return last, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("get latest completed attempt: %w", err)
	case cur == nil:
		return nil, ErrAttemptNotFound
	}

	if err := s.complete(ctx, cur, snap, s.pendingAnswers(ctx, cur), now, model.CompletionResultRequested); err != nil {
		return nil, err
	}
	return cur, nil
}

// ListAttempts returns the examinee's attempts at a test, oldest first. An
// attempt whose time ran out is closed before it is listed.
func (s *AttemptService) ListAttempts(ctx context.Context, examineeID int, testID uuid.UUID) ([]model.AttemptSummary, error) {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return nil, err
	}

	var attempts []model.Attempt
	err = s.run(ctx, "list attempts", func(ctx context.Context) error {
		_, _, err := s.liveAttempt(ctx, examineeID, snap, s.clock.Now())
		if err != nil && !errors.Is(err, ErrAttemptNotActive) && !errors.Is(err, ErrAttemptExpired) {
			return err
		}
		attempts, err = s.attempts.ListByExamineeAndTest(ctx, examineeID, testID)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.AttemptSummary, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		out = append(out, model.AttemptSummary{
			AttemptID:        a.ID,
			AttemptNumber:    a.AttemptNumber,
			Status:           a.Status,
			StartedAt:        a.StartedAt,
			CompletedAt:      a.CompletedAt,
			CompletionReason: a.CompletionReason,
			MarksObtained:    a.MarksObtained,
			TotalMarks:       a.TotalMarks,
			Percentage:       a.Percentage,
			Passed:           a.IsCompleted() && s.passed(a),
		})
	}
	return out, nil
}

// GetState returns the live view of the in-progress attempt, used by clients
// to restore answers and the countdown after a reload.
func (s *AttemptService) GetState(ctx context.Context, examineeID int, testID uuid.UUID) (*model.AttemptState, error) {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return nil, err
	}

	var state *model.AttemptState
	err = s.run(ctx, "get state", func(ctx context.Context) error {
		now := s.clock.Now()
		cur, deadline, err := s.liveAttempt(ctx, examineeID, snap, now)
		if err != nil {
			return err
		}

		questions, err := examineeQuestions(snap.Questions)
		if err != nil {
			return err
		}

		state = &model.AttemptState{
			AttemptID:        cur.ID,
			TestID:           cur.TestID,
			Status:           cur.Status,
			StartedAt:        cur.StartedAt,
			Deadline:         deadline,
			RemainingSeconds: int64(clock.Remaining(now, deadline) / time.Second),
			SavedAnswers:     s.pendingAnswers(ctx, cur),
			Questions:        questions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SaveAnswer autosaves one answer of the live attempt.
func (s *AttemptService) SaveAnswer(ctx context.Context, examineeID int, testID uuid.UUID, req *model.SaveAnswerRequest) error {
	snap, err := s.catalog.Snapshot(ctx, testID)
	if err != nil {
		return err
	}

	questionID, ok := questionInTest(snap, req.QuestionID)
	if !ok {
		return ErrQuestionNotInTest
	}

	return s.run(ctx, "save answer", func(ctx context.Context) error {
		cur, _, err := s.liveAttempt(ctx, examineeID, snap, s.clock.Now())
		if err != nil {
			return err
		}
		if err := s.drafts.Save(ctx, cur.ID, questionID, req.SelectedAnswer); err != nil {
			return fmt.Errorf("save draft answer: %w", err)
		}
		return nil
	})
}

// RecordViolation attaches an integrity event to the examinee's in-progress
// attempt. Only the ownership and status checks can fail; delivery of the
// event itself is best effort.
func (s *AttemptService) RecordViolation(ctx context.Context, examineeID int, attemptID uuid.UUID, req *model.RecordViolationRequest) error {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAttemptNotFound
	}
	if err != nil {
		return fmt.Errorf("get attempt: %w", err)
	}
	if a.ExamineeID != examineeID {
		return ErrAttemptNotFound
	}
	if a.IsCompleted() {
		return ErrAttemptNotActive
	}

	s.recordViolation(ctx, a, req)
	return nil
}

// RecordTestViolation is RecordViolation addressed by test instead of attempt,
// for clients that only know which test they are taking.
func (s *AttemptService) RecordTestViolation(ctx context.Context, examineeID int, testID uuid.UUID, req *model.RecordViolationRequest) error {
	cur, err := s.inProgress(ctx, examineeID, testID)
	if err != nil {
		return err
	}
	if cur == nil {
		return ErrAttemptNotActive
	}

	s.recordViolation(ctx, cur, req)
	return nil
}

func (s *AttemptService) recordViolation(ctx context.Context, a *model.Attempt, req *model.RecordViolationRequest) {
	occurredAt := s.clock.Now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		occurredAt = req.Timestamp.UTC()
	}

	s.violations.Record(ctx, model.Violation{
		AttemptID:      a.ID,
		ExamineeID:     a.ExamineeID,
		Classification: req.Classification,
		OccurredAt:     occurredAt,
	})
}

// liveAttempt returns the in-progress attempt and its deadline. An attempt
// past its deadline is closed and reported as ErrAttemptExpired.
func (s *AttemptService) liveAttempt(ctx context.Context, examineeID int, snap *model.TestSnapshot, now time.Time) (*model.Attempt, time.Time, error) {
	cur, err := s.inProgress(ctx, examineeID, snap.Test.ID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if cur == nil {
		return nil, time.Time{}, ErrAttemptNotActive
	}

	deadline := clock.Deadline(cur.StartedAt, snap.Test.DurationMinutes)
	if clock.Expired(now, deadline) {
		if err := s.closeOnDeadline(ctx, cur, snap, deadline); err != nil {
			return nil, time.Time{}, err
		}
		return nil, time.Time{}, ErrAttemptExpired
	}
	return cur, deadline, nil
}

// inProgress returns nil without error when the pair has no live attempt.
func (s *AttemptService) inProgress(ctx context.Context, examineeID int, testID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetInProgress(ctx, examineeID, testID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get in-progress attempt: %w", err)
	}
	return a, nil
}

// pendingAnswers merges the answers known for an in-progress attempt:
// stored answers, then persisted drafts, then the draft buffer.
func (s *AttemptService) pendingAnswers(ctx context.Context, a *model.Attempt) map[string]model.AnswerValue {
	out := a.RawAnswers()
	for id, v := range a.DraftAnswers {
		out[id] = v
	}

	buffered, err := s.drafts.Load(ctx, a.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Draft buffer unavailable, using persisted drafts")
		return out
	}
	for id, v := range buffered {
		out[id] = v
	}
	return out
}

func (s *AttemptService) closeOnDeadline(ctx context.Context, a *model.Attempt, snap *model.TestSnapshot, deadline time.Time) error {
	return s.complete(ctx, a, snap, s.pendingAnswers(ctx, a), deadline, model.CompletionDeadline)
}

// complete grades raw and moves a to completed in one versioned write.
func (s *AttemptService) complete(
	ctx context.Context,
	a *model.Attempt,
	snap *model.TestSnapshot,
	raw map[string]model.AnswerValue,
	completedAt time.Time,
	reason model.CompletionReason,
) error {
	out := s.grade(snap, raw, a.TotalMarks)
	if err := copier.Copy(a, &out); err != nil {
		return fmt.Errorf("apply grading: %w", err)
	}

	minutes := max(0, int(completedAt.Sub(a.StartedAt)/time.Minute))
	finalizedAt := s.clock.Now()
	a.Status = model.AttemptStatusCompleted
	a.CompletedAt = &completedAt
	a.FinalizedAt = &finalizedAt
	a.CompletionReason = &reason
	a.TimeTakenMinutes = &minutes

	if err := s.attempts.Update(ctx, a); err != nil {
		return fmt.Errorf("complete attempt %s: %w", a.ID, err)
	}

	metrics.AttemptsCompleted.WithLabelValues(string(reason)).Inc()
	s.completions.AttemptCompleted(ctx, a.ID)
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("examinee_id", a.ExamineeID).
		Str("reason", string(reason)).
		Int("marks_obtained", a.MarksObtained).
		Int("total_marks", a.TotalMarks).
		Msg("Attempt completed")
	return nil
}

// repair regrades a completed attempt whose answers lack grading fields.
// Status, completion time and reason are left untouched.
func (s *AttemptService) repair(ctx context.Context, a *model.Attempt, snap *model.TestSnapshot) error {
	out := s.grade(snap, a.RawAnswers(), a.TotalMarks)
	if err := copier.Copy(a, &out); err != nil {
		return fmt.Errorf("apply grading: %w", err)
	}

	if err := s.attempts.Update(ctx, a); err != nil {
		return fmt.Errorf("repair attempt %s: %w", a.ID, err)
	}

	metrics.AttemptsRepaired.Inc()
	s.log.Info().Str("attempt_id", a.ID.String()).Msg("Attempt regraded on read")
	return nil
}

// grade scores raw against the snapshot. A positive total is the attempt's
// snapshot and wins over the current question marks.
func (s *AttemptService) grade(snap *model.TestSnapshot, raw map[string]model.AnswerValue, total int) scoring.Outcome {
	if total <= 0 {
		total = snap.QuestionMarks()
	}

	start := time.Now()
	out := scoring.Grade(snap.Questions, raw, scoring.Options{
		TotalMarksSnapshot: total,
		PassPercentage:     s.cfg.PassPercentage,
	})
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	return out
}

func (s *AttemptService) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, s.policy, fn)
	if errors.Is(err, retry.ErrExhausted) {
		metrics.RetriesExhausted.Inc()
		s.log.Error().Err(err).Str("op", op).Msg("Conflict retries exhausted")
		return fmt.Errorf("%s: %w", op, ErrPersistenceConflict)
	}
	return err
}

func (s *AttemptService) passed(a *model.Attempt) bool {
	pass := s.cfg.PassPercentage
	if pass <= 0 {
		pass = scoring.DefaultPassPercentage
	}
	return a.TotalMarks > 0 && a.Percentage >= pass
}

func (s *AttemptService) submitResult(a *model.Attempt) *model.SubmitAttemptResult {
	return &model.SubmitAttemptResult{
		AttemptID:     a.ID,
		TotalMarks:    a.TotalMarks,
		MarksObtained: a.MarksObtained,
		Percentage:    a.Percentage,
		TimeTaken:     derefInt(a.TimeTakenMinutes),
		Passed:        s.passed(a),
	}
}

func (s *AttemptService) buildResult(a *model.Attempt, violations []model.Violation) *model.AttemptResult {
	res := &model.AttemptResult{
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		TotalMarks:    a.TotalMarks,
		MarksObtained: a.MarksObtained,
		Percentage:    a.Percentage,
		Passed:        s.passed(a),
		TimeTaken:     derefInt(a.TimeTakenMinutes),
		Answers:       make([]model.ResultAnswer, 0, len(a.Answers)),
		Violations:    violations,
	}
	if a.CompletedAt != nil {
		res.CompletedAt = *a.CompletedAt
	}
	if a.CompletionReason != nil {
		res.CompletionReason = *a.CompletionReason
	}

	for _, ans := range a.Answers {
		correct := ans.IsCorrect != nil && *ans.IsCorrect
		if correct {
			res.CorrectCount++
		} else {
			res.IncorrectCount++
		}
		res.Answers = append(res.Answers, model.ResultAnswer{
			QuestionID:     ans.QuestionID,
			SelectedAnswer: ans.SelectedAnswer,
			IsCorrect:      correct,
			MarksObtained:  derefInt(ans.MarksObtained),
		})
	}
	res.AccuracyRate = scoring.AccuracyRate(res.CorrectCount, res.IncorrectCount)
	return res
}

func startResult(a *model.Attempt, now, deadline time.Time, resumed bool) *model.StartAttemptResult {
	return &model.StartAttemptResult{
		AttemptID:        a.ID,
		AttemptNumber:    a.AttemptNumber,
		RemainingSeconds: int64(clock.Remaining(now, deadline) / time.Second),
		Deadline:         deadline,
		Resumed:          resumed,
	}
}

func examineeQuestions(questions []model.Question) ([]model.QuestionForExaminee, error) {
	out := make([]model.QuestionForExaminee, 0, len(questions))
	if err := copier.Copy(&out, &questions); err != nil {
		return nil, fmt.Errorf("map questions: %w", err)
	}
	for i := range out {
		out[i].Marks = questions[i].MarksValue()
	}
	return out, nil
}

// questionInTest returns the canonical id of a question of the snapshot.
func questionInTest(snap *model.TestSnapshot, raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	for i := range snap.Questions {
		if snap.Questions[i].ID == id {
			return id.String(), true
		}
	}
	return "", false
}

func isWriteConflict(err error) bool {
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrDuplicate) {
		metrics.WriteConflicts.Inc()
		return true
	}
	return false
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
