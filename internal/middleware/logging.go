package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kevingruber/turbo-cache/internal/artifact"
	"github.com/rs/zerolog"
)

// RequestLogger creates a middleware that logs HTTP requests.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP())

		if id := c.Param("id"); id != "" {
			event.Str("artifact_id", id)
		}
		if team, ok := artifact.CandidatesFromQuery(c.GetQuery).Resolve(); ok {
			event.Str("team", team)
		}

		if len(c.Errors) > 0 {
			event.Str("error", c.Errors.String())
		}

		event.Msg("request")
	}
}
