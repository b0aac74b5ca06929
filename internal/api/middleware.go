package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an id, reusing a client supplied one, and
// stores a request scoped logger in the context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)

		logger := logging.WithRequestID(id)
		c.Request = c.Request.WithContext(logging.NewContext(c.Request.Context(), logger))
		c.Next()
	}
}

// AccessLog logs one line per request and counts it
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.Get().HTTPRequestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()

		logging.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
