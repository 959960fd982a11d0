package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/logger"
)

// RequestLogger logs every request once it has been served
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Warn()
		case status >= http.StatusBadRequest:
			event = logger.Info()
		default:
			event = logger.Debug()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("clientIP", c.ClientIP()).
			Int64("userID", CurrentUserID(c)).
			Msg("Request served")
	}
}

// Recovery turns panics into SRV_001 responses and reports them
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("panic", fmt.Sprint(recovered)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		logger.ReportPanic(recovered, map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"userID": CurrentUserID(c),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		))
	})
}
