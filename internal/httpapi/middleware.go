package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// rateLimit fails open: a limiter error is logged and the request proceeds.
func (r *Router) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := r.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			r.logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Status: http.StatusTooManyRequests,
				Error:  "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func sentryRecovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic serving request", "panic", fmt.Sprint(err), "path", c.Request.URL.Path)
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(c.Request)
				hub.RecoverWithContext(c.Request.Context(), err)
				hub.Flush(2 * time.Second)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
					Status: http.StatusInternalServerError,
					Error:  "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// captureError sends an error to Sentry with request context.
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
