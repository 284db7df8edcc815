package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medipass-api/internal/handler"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler renders the last error recorded by a handler. Internal errors
// are logged with their cause and answered with a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		appErr := handler.ToAppError(c.Errors.Last().Err)
		status := appErr.StatusCode()

		if status >= 500 {
			log.Error().
				Err(appErr.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, ErrorResponse{
			Status:  "error",
			Code:    status,
			Message: appErr.Message,
			TraceID: traceID,
		})
	}
}
