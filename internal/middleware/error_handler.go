package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

// ErrorHandler renders errors attached with c.Error when the handler wrote nothing, and
// turns panics into a 500.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("Panic in HTTP handler", "panic", p, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		statusCode := errors.HTTPStatusFromError(err.Err)
		message := err.Error()
		if statusCode >= http.StatusInternalServerError {
			log.Error("Request failed", "error", err.Err, "path", c.Request.URL.Path)
			message = "internal server error"
		}
		c.JSON(statusCode, gin.H{"error": message})
	}
}
