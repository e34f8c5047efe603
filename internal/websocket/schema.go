package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-attempt/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSync      Action = "sync"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action Action `json:"action"`
	model.SaveAnswerRequest
}

// ViolationRequest is sent by the client to report an integrity event.
type ViolationRequest struct {
	Action Action `json:"action"`
	model.RecordViolationRequest
}

// SubmitRequest is sent by the client to finish and grade the attempt, either
// by hand or when its countdown reaches zero.
type SubmitRequest struct {
	Action Action `json:"action"`
	model.SubmitAttemptRequest
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSaved   Event = "saved"
	EventLogged  Event = "logged"
	EventSync    Event = "sync"
	EventGraded  Event = "graded"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
)

type AutosaveResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

type ViolationResponse struct {
	Event Event `json:"event"`
}

// SyncResponse re-seeds the client countdown from the server deadline.
type SyncResponse struct {
	Event            Event     `json:"event"`
	AttemptID        uuid.UUID `json:"attempt_id"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type GradedResponse struct {
	Event  Event                      `json:"event"`
	Result *model.SubmitAttemptResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
