package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware logs every request with a request ID, reusing an
// incoming X-Request-ID when present.
func RequestLoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     statusCode,
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": requestID,
			"client_ip":  c.ClientIP(),
		}

		switch {
		case statusCode >= 500:
			logger.LogWarn("Server error processing request", fields)
		case statusCode >= 400:
			logger.LogWarn("Client error processing request", fields)
		default:
			logger.LogInfo("Request completed", fields)
		}
	}
}

// RecoveryMiddleware recovers from any panics and logs the error
func RecoveryMiddleware(responseHandler ResponseHandler, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				responseHandler.InternalErrorResponse(c, "An unexpected error occurred", fmt.Errorf("panic: %v", r))
				c.Abort()
			}
		}()
		c.Next()
	}
}
