package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports dependency health and worker queue depths.
type SystemHandler struct {
	db        Pinger
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db Pinger, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status   string           `json:"status"`
	Uptime   string           `json:"uptime"`
	Postgres string           `json:"postgres"`
	Redis    string           `json:"redis"`
	Queues   map[string]int64 `json:"queues,omitempty"`
}

// Health godoc
// GET /health
// Returns 200 when postgres and redis answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:   "ok",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Postgres: "ok",
		Redis:    "ok",
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		report.Postgres = "down"
		report.Status = "degraded"
	}

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	violations := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
	answers := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	completed := pipe.LLen(ctx, config.WorkerKey.CompletedAttemptsQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		report.Redis = "down"
		report.Status = "degraded"
	} else {
		report.Queues = map[string]int64{
			config.WorkerKey.PersistViolationsQueue: violations.Val(),
			config.WorkerKey.PersistAnswersQueue:    answers.Val(),
			config.WorkerKey.CompletedAttemptsQueue: completed.Val(),
		}
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
