package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	maxHeapMB        = 512
	maxWSConnections = 100
	readinessTimeout = 2 * time.Second
)

// TokenChecker reports whether an upstream token is available
type TokenChecker interface {
	HasToken(ctx context.Context) (bool, error)
}

// TokenCheckerFunc adapts a function to TokenChecker
type TokenCheckerFunc func(ctx context.Context) (bool, error)

// HasToken calls f(ctx)
func (f TokenCheckerFunc) HasToken(ctx context.Context) (bool, error) {
	return f(ctx)
}

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	tokens    TokenChecker
	redis     *redis.Client
	wsHub     *websocket.Hub
	metrics   *metrics.Metrics
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. redis may be nil when tokens live in memory.
func NewHealthHandler(tokens TokenChecker, rdb *redis.Client, hub *websocket.Hub, m *metrics.Metrics, version string) *HealthHandler {
	if m == nil {
		m = metrics.Get()
	}
	return &HealthHandler{
		tokens:    tokens,
		redis:     rdb,
		wsHub:     hub,
		metrics:   m,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	components := make(map[string]metrics.HealthStatus)

	if h.tokens != nil {
		has, err := h.tokens.HasToken(ctx)
		components["basecamp_token"] = metrics.CheckTokenHealth(has, err)
	}
	components["token_store"] = metrics.CheckRedisHealth(ctx, h.redis)
	components["memory"] = metrics.CheckMemoryHealth(maxHeapMB)
	if h.wsHub != nil {
		components["websocket"] = h.checkWebSocketHealth()
	}

	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

func (h *HealthHandler) checkWebSocketHealth() metrics.HealthStatus {
	if h.wsHub.ConnectionCount() > maxWSConnections {
		return metrics.HealthStatus{
			Status:  "degraded",
			Message: "WebSocket connections near limit",
		}
	}
	return metrics.HealthStatus{
		Status: "healthy",
	}
}

// GetMetrics returns application metrics
// @Router /metrics [get]
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
