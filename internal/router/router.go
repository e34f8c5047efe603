package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/handler"
	"github.com/stemsi/exstem-attempt/internal/middleware"
	"github.com/stemsi/exstem-attempt/internal/response"
	"github.com/stemsi/exstem-attempt/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter guards the high-frequency autosave and violation routes.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.POST("/tests/:test_id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.GET("/tests/:test_id/attempts", handlers.Attempt.ListAttempts)
		studentAPI.POST("/tests/:test_id/submit", handlers.Attempt.SubmitAttempt)
		studentAPI.GET("/tests/:test_id/result", handlers.Attempt.GetResult)
		studentAPI.GET("/tests/:test_id/state", handlers.Attempt.GetState)

		// Rate limited per examinee; clients fire these on every keystroke or focus change.
		limited := studentAPI.Group("")
		limited.Use(limiter.Middleware())
		{
			limited.PUT("/tests/:test_id/answers", handlers.Attempt.SaveAnswer)
			limited.POST("/tests/:test_id/violations", handlers.Attempt.RecordTestViolation)
			limited.POST("/attempts/:attempt_id/violations", handlers.Attempt.RecordViolation)
		}
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/tests/:test_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
