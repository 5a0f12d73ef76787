package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// LogErrors logs the errors handlers attached with c.Error after the
// response has been written.
func LogErrors(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", c.Writer.Status(),
				"error", e.Err,
			)
		}
	}
}
