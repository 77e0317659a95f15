package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds the router parameters.
type RouterConfig struct {
	CORSOrigins []string
	RateLimit   float64 // write requests per second per user, 0 disables limiting
	RateBurst   int
	// Health reports backend readiness for /healthz. Nil means always ready.
	Health func(ctx context.Context) error
}

// NewRouter registers every route on a new gin engine.
func NewRouter(cfg RouterConfig, h *Handler, resolver UserResolver, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	r.GET("/healthz", healthz(cfg.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", authMiddleware(resolver))

	write := []gin.HandlerFunc{}
	if cfg.RateLimit > 0 {
		write = append(write, rateLimitMiddleware(newUserLimiter(cfg.RateLimit, max(cfg.RateBurst, 1))))
	}
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(slices.Clone(write), handler)
	}

	sessions := api.Group("/sessions")
	{
		sessions.POST("", with(h.StartSession)...)
		sessions.GET("/active", h.GetActiveSession)
		sessions.GET("/:id", h.GetSession)
		sessions.GET("/:id/question", h.CurrentQuestion)
		sessions.POST("/:id/answers", with(h.SubmitAnswer)...)
		sessions.GET("/:id/answers", h.SessionAnswers)
		sessions.POST("/:id/abandon", with(h.AbandonSession)...)
		sessions.POST("/:id/complete", with(h.CompleteSession)...)
		sessions.GET("/:id/summary", h.SessionSummary)
		sessions.GET("/:id/report.pdf", h.SessionReport)
	}

	progress := api.Group("/progress")
	{
		progress.GET("/topics/:topic", h.TopicProgress)
		progress.GET("/sets/:set", h.SetProgress)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func healthz(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
