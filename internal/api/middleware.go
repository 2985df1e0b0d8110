// internal/api/middleware.go
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDMiddleware tags each request with a unique ID for log correlation
// and echoes it back in the X-Request-ID header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// CORSMiddleware allows browser clients from any origin to use the JSON API.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Admin-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogMiddleware logs one structured line per completed request.
func RequestLogMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"))
	}
}

// RateLimitMiddleware throttles the model-backed endpoints with a shared
// token bucket. Requests over the limit get a 429 instead of queueing, so a
// burst of generation traffic cannot pile up behind slow model calls.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	helper := NewResponseHelper()

	return func(c *gin.Context) {
		if !limiter.Allow() {
			helper.TooManyRequests(c, "too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware guards the settings endpoints with a shared token
// passed in the X-Admin-Token header. The comparison is constant-time. When
// no token is configured the endpoints are open, which is the expected state
// for local development.
func AdminAuthMiddleware(adminToken string) gin.HandlerFunc {
	helper := NewResponseHelper()

	return func(c *gin.Context) {
		if adminToken == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
			helper.Unauthorized(c, "invalid admin token")
			c.Abort()
			return
		}

		c.Next()
	}
}
