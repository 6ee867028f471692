package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"

	ctxUserID    = "user_id"
	ctxRequestID = "request_id"
)

// requestIDMiddleware propagates the caller's request ID or assigns one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(ctxRequestID),
			"user_id", c.GetInt64(ctxUserID),
		)
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := observer.RequestStarted()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		done(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}

// actorMiddleware reads the acting member from the gateway-set header
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			abort(c, http.StatusUnauthorized, "missing "+headerUserID+" header")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			abort(c, http.StatusUnauthorized, "invalid "+headerUserID+" header")
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message})
}
