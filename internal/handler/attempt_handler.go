package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/middleware"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/response"
	"github.com/stemsi/exstem-attempt/internal/service"
	"github.com/stemsi/exstem-attempt/internal/validator"
)

// AttemptSessions is the attempt engine as seen by the HTTP and WebSocket surface.
type AttemptSessions interface {
	StartAttempt(ctx context.Context, examineeID int, testID uuid.UUID) (*model.StartAttemptResult, error)
	SubmitAttempt(ctx context.Context, examineeID int, testID uuid.UUID, req *model.SubmitAttemptRequest) (*model.SubmitAttemptResult, error)
	GetResult(ctx context.Context, examineeID int, testID uuid.UUID) (*model.AttemptResult, error)
	GetState(ctx context.Context, examineeID int, testID uuid.UUID) (*model.AttemptState, error)
	ListAttempts(ctx context.Context, examineeID int, testID uuid.UUID) ([]model.AttemptSummary, error)
	SaveAnswer(ctx context.Context, examineeID int, testID uuid.UUID, req *model.SaveAnswerRequest) error
	RecordViolation(ctx context.Context, examineeID int, attemptID uuid.UUID, req *model.RecordViolationRequest) error
	RecordTestViolation(ctx context.Context, examineeID int, testID uuid.UUID, req *model.RecordViolationRequest) error
}

// AttemptHandler handles examinee-facing attempt endpoints.
type AttemptHandler struct {
	attempts AttemptSessions
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptSessions, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/student/tests/:test_id/attempts
// Starts a new attempt, or resumes the one still in progress.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	result, err := h.attempts.StartAttempt(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// SubmitAttempt godoc
// POST /api/v1/student/tests/:test_id/submit
// Grades and closes the attempt. A repeated submit returns the stored result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attempts.SubmitAttempt(c.Request.Context(), claims.UserID, testID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/student/tests/:test_id/result
// Returns the graded result of the latest attempt, closing it first if needed.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	result, err := h.attempts.GetResult(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetState godoc
// GET /api/v1/student/tests/:test_id/state
// Covers page reloads: saved answers plus the server-derived remaining time.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	state, err := h.attempts.GetState(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// ListAttempts godoc
// GET /api/v1/student/tests/:test_id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	attempts, err := h.attempts.ListAttempts(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// SaveAnswer godoc
// PUT /api/v1/student/tests/:test_id/answers
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.SaveAnswer(c.Request.Context(), claims.UserID, testID, &req); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID})
}

// RecordViolation godoc
// POST /api/v1/student/attempts/:attempt_id/violations
func (h *AttemptHandler) RecordViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.RecordViolation(c.Request.Context(), claims.UserID, attemptID, &req); err != nil {
		h.fail(c, err)
		return
	}

	response.Accepted(c)
}

// RecordTestViolation godoc
// POST /api/v1/student/tests/:test_id/violations
func (h *AttemptHandler) RecordTestViolation(c *gin.Context) {
	claims, testID, ok := h.examineeAndTest(c)
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.RecordTestViolation(c.Request.Context(), claims.UserID, testID, &req); err != nil {
		h.fail(c, err)
		return
	}

	response.Accepted(c)
}

func (h *AttemptHandler) examineeAndTest(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, testID, true
}

func (h *AttemptHandler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Attempt request failed")
	}
	response.Fail(c, status, code)
}

// classify maps attempt engine errors to an HTTP status and envelope code.
func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNotAvailable):
		return http.StatusForbidden, response.ErrTestNotAvailable
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		return http.StatusForbidden, response.ErrAttemptLimitExceeded
	case errors.Is(err, service.ErrAttemptExpired):
		return http.StatusConflict, response.ErrAttemptExpired
	case errors.Is(err, service.ErrAttemptNotActive):
		return http.StatusConflict, response.ErrAttemptNotActive
	case errors.Is(err, service.ErrPersistenceConflict):
		return http.StatusConflict, response.ErrPersistenceConflict
	case errors.Is(err, service.ErrQuestionNotInTest):
		return http.StatusBadRequest, response.ErrQuestionNotInTest
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
