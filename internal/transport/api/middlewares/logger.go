package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// Logger пишет в лог каждый запрос. Уровень зависит от статуса ответа, ошибки из c.Errors
// попадают в лог, но не в ответ клиенту.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	entry := l.WithField("component", "api")
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := entry.WithFields(logrus.Fields{
			"requestID": requestID,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIP":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			fields = fields.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500: //nolint:mnd
			fields.Error("request completed")
		case status >= 400: //nolint:mnd
			fields.Warn("request completed")
		default:
			fields.Info("request completed")
		}
	}
}
