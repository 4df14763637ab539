package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics tracks request metrics
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		m = metrics.Get()
	}
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		m.IncrementRequests(statusCode < 400, latency)

		// Rota registrada, não o path com ids
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// auditPrefixes are the routes that write to Basecamp or grant tokens
var auditPrefixes = []string{
	"/buckets/",
	"/completeTodo/",
	"/uncompleteTodo/",
	"/handdate/",
	"/vaults/",
	"/auth/callback",
}

// Audit logs an audit event for state-changing requests
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if !shouldAudit(c.Request.Method, path) {
			return
		}
		logger.AuditRequest(
			c.Request.Context(),
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.ClientIP(),
		)
	}
}

func shouldAudit(method, path string) bool {
	if method == http.MethodGet && path != "/auth/callback" {
		return false
	}
	for _, prefix := range auditPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
