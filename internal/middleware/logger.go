package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Logger logs one line per request. Bodies are never logged.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		logger := log.With().
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent())
		if login := c.GetString("login"); login != "" {
			logger = logger.Str("login", login)
		}

		logEvent := logger.Logger()
		switch {
		case statusCode >= 500:
			logEvent.Error().Msg("Server error")
		case statusCode >= 400:
			logEvent.Warn().Msg("Client error")
		default:
			logEvent.Info().Msg("Request processed")
		}
	}
}
