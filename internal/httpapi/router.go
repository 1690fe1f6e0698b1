// Package httpapi exposes the speak pipeline over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"WhereAmI/internal/ports"
	"WhereAmI/internal/usecase"
)

// Speaker is the inbound port served by the router.
type Speaker interface {
	Speak(ctx context.Context, req usecase.SpeakRequest) (usecase.SpeakResult, error)
}

// Router serves /speak and /healthz.
type Router struct {
	speaker Speaker
	limiter ports.RateLimiter
	logger  *slog.Logger
}

// NewRouter wires the handlers; limiter may be nil.
func NewRouter(speaker Speaker, limiter ports.RateLimiter, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{speaker: speaker, limiter: limiter, logger: logger}
}

// Handler builds the gin engine.
func (r *Router) Handler() http.Handler {
	engine := gin.New()
	_ = engine.SetTrustedProxies(nil)
	engine.Use(r.requestLogger(), sentryRecovery(r.logger))

	engine.GET("/healthz", handleHealthz)

	speak := engine.Group("/speak")
	if r.limiter != nil {
		speak.Use(r.rateLimit())
	}
	speak.GET("/:instanceId/:voiceId/:latitude/:longitude", r.handleSpeak)

	return engine
}

func handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
