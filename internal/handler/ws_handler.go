package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/middleware"
	"github.com/stemsi/exstem-attempt/internal/response"
	"github.com/stemsi/exstem-attempt/internal/service"
	"github.com/stemsi/exstem-attempt/internal/validator"
	ws "github.com/stemsi/exstem-attempt/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one live attempt over a WebSocket.
type WSHandler struct {
	attempts AttemptSessions
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts AttemptSessions, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/tests/:test_id/stream
// Upgrades to WebSocket for autosave, violation reports, countdown sync and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	ctx := c.Request.Context()
	s := &wsSession{
		h:          h,
		conn:       conn,
		examineeID: claims.UserID,
		testID:     testID,
		log: h.log.With().
			Int("examinee_id", claims.UserID).
			Str("test_id", testID.String()).
			Logger(),
	}

	// The stream only serves a live attempt; the first frame tells the
	// client how much time it has left.
	if !s.sync(ctx) {
		return
	}
	s.log.Info().Msg("Examinee connected")

	for {
		action, data, err := ws.ReadMessage(conn)
		if err != nil {
			if data != nil {
				ws.WriteError(conn, string(response.ErrInvalidPayload), "malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		switch action {
		case ws.ActionAutosave:
			s.autosave(ctx, data)
		case ws.ActionViolation:
			s.violation(ctx, data)
		case ws.ActionSync:
			s.sync(ctx)
		case ws.ActionSubmit:
			if s.submit(ctx, data) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt completed"),
					time.Now().Add(time.Second))
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			s.log.Warn().Str("action", string(action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(action))
		}
	}
}

type wsSession struct {
	h          *WSHandler
	conn       *websocket.Conn
	examineeID int
	testID     uuid.UUID
	log        zerolog.Logger
}

// sync reports the server-derived remaining time. It returns false when the
// attempt is no longer live and the stream should end.
func (s *wsSession) sync(ctx context.Context) bool {
	state, err := s.h.attempts.GetState(ctx, s.examineeID, s.testID)
	if err != nil {
		s.writeErr(err)
		return false
	}
	ws.WriteTyped(s.conn, ws.SyncResponse{
		Event:            ws.EventSync,
		AttemptID:        state.AttemptID,
		RemainingSeconds: state.RemainingSeconds,
	})
	return true
}

func (s *wsSession) autosave(ctx context.Context, data []byte) {
	var msg ws.AutosaveRequest
	if !s.decode(data, &msg, &msg.SaveAnswerRequest) {
		return
	}

	if err := s.h.attempts.SaveAnswer(ctx, s.examineeID, s.testID, &msg.SaveAnswerRequest); err != nil {
		s.writeErr(err)
		return
	}
	ws.WriteTyped(s.conn, ws.AutosaveResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (s *wsSession) violation(ctx context.Context, data []byte) {
	var msg ws.ViolationRequest
	if !s.decode(data, &msg, &msg.RecordViolationRequest) {
		return
	}

	if err := s.h.attempts.RecordTestViolation(ctx, s.examineeID, s.testID, &msg.RecordViolationRequest); err != nil {
		s.writeErr(err)
		return
	}
	ws.WriteTyped(s.conn, ws.ViolationResponse{Event: ws.EventLogged})
}

// submit returns true once the attempt is completed.
func (s *wsSession) submit(ctx context.Context, data []byte) bool {
	var msg ws.SubmitRequest
	if !s.decode(data, &msg, &msg.SubmitAttemptRequest) {
		return false
	}

	result, err := s.h.attempts.SubmitAttempt(ctx, s.examineeID, s.testID, &msg.SubmitAttemptRequest)
	if err != nil {
		s.writeErr(err)
		return false
	}

	s.log.Info().
		Str("attempt_id", result.AttemptID.String()).
		Int("marks_obtained", result.MarksObtained).
		Msg("Attempt submitted over stream")
	ws.WriteTyped(s.conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}

func (s *wsSession) decode(data []byte, msg interface{}, payload interface{}) bool {
	if err := json.Unmarshal(data, msg); err != nil {
		ws.WriteError(s.conn, string(response.ErrInvalidPayload), "malformed message")
		return false
	}
	if fields := validator.Struct(payload); fields != nil {
		for field, text := range fields {
			ws.WriteError(s.conn, string(response.ErrValidation), field+": "+text)
			break
		}
		return false
	}
	return true
}

func (s *wsSession) writeErr(err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Stream action failed")
	}
	if errors.Is(err, service.ErrAttemptExpired) {
		ws.WriteTyped(s.conn, ws.ErrorResponse{Event: ws.EventExpired, Code: string(code), Error: response.GetMessage(code)})
		return
	}
	ws.WriteError(s.conn, string(code), response.GetMessage(code))
}
