package handlers

import (
	"fmt"
	"net/http"

	"go-qr-relay/internal/logger"
	"go-qr-relay/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to the relay's {"error": ...} body:
// client input errors are 400, everything else 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if services.IsValidationError(err) {
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// GlobalErrorHandler recovers from handler panics with a JSON 500
func GlobalErrorHandler(log *logger.StructuredLogger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.Error("Panic recovered", fmt.Errorf("%v", recovered), map[string]interface{}{
			"request_id": c.GetString(logger.RequestIDKey),
			"path":       c.Request.URL.Path,
		})

		if c.Writer.Written() {
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// NotFoundHandler answers unknown routes
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Resource not found",
			"path":  c.Request.URL.Path,
		})
	}
}
