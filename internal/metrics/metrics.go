package metrics

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Request latency (in milliseconds)
	TotalLatency int64
	RequestCount int64

	// Upstream (Basecamp) metrics
	UpstreamCalls       int64
	UpstreamErrors      int64
	UpstreamRateLimited int64
	UpstreamInFlight    int64
	UpstreamLatency     int64

	// Aggregation metrics
	Aggregations        int64
	AggregationFailures int64
	BatchesCompleted    int64

	// Todo mutation metrics
	MutationsApplied int64
	MutationErrors   int64
	MutationLatency  int64

	// File upload metrics
	FilesUploaded      int64
	TotalBytesUploaded int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesIn  int64
	WSMessagesOut int64

	// OAuth metrics
	TokenExchanges int64
	TokenRefreshes int64
	TokenErrors    int64

	// Export metrics
	ExportsGenerated int64
	ExportErrors     int64

	// Endpoint-specific metrics
	EndpointMetrics map[string]*EndpointMetrics

	// Start time for uptime calculation
	StartTime time.Time
}

// global metrics instance
var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		globalMetrics = New()
	})
}

// New returns an unshared instance, mostly for tests
func New() *Metrics {
	return &Metrics{
		StartTime:       time.Now(),
		EndpointMetrics: make(map[string]*EndpointMetrics),
	}
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// UpstreamStarted marks one Basecamp call as in flight
func (m *Metrics) UpstreamStarted() {
	atomic.AddInt64(&m.UpstreamCalls, 1)
	atomic.AddInt64(&m.UpstreamInFlight, 1)
}

// UpstreamFinished records the outcome of a Basecamp call
func (m *Metrics) UpstreamFinished(success, rateLimited bool, latencyMs int64) {
	atomic.AddInt64(&m.UpstreamInFlight, -1)
	atomic.AddInt64(&m.UpstreamLatency, latencyMs)
	if !success {
		atomic.AddInt64(&m.UpstreamErrors, 1)
	}
	if rateLimited {
		atomic.AddInt64(&m.UpstreamRateLimited, 1)
	}
}

// IncrementAggregation counts one project aggregation
func (m *Metrics) IncrementAggregation(success bool) {
	atomic.AddInt64(&m.Aggregations, 1)
	if !success {
		atomic.AddInt64(&m.AggregationFailures, 1)
	}
}

// IncrementBatch counts a completed aggregation batch
func (m *Metrics) IncrementBatch() {
	atomic.AddInt64(&m.BatchesCompleted, 1)
}

// IncrementMutation increments todo mutation counters
func (m *Metrics) IncrementMutation(success bool, latencyMs int64) {
	if success {
		atomic.AddInt64(&m.MutationsApplied, 1)
	} else {
		atomic.AddInt64(&m.MutationErrors, 1)
	}
	atomic.AddInt64(&m.MutationLatency, latencyMs)
}

// IncrementFileUpload increments file upload counters
func (m *Metrics) IncrementFileUpload(bytes int64) {
	atomic.AddInt64(&m.FilesUploaded, 1)
	atomic.AddInt64(&m.TotalBytesUploaded, bytes)
}

// IncrementWSConnection increments WebSocket connection counter
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection decrements WebSocket connection counter
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageIn increments WebSocket incoming message counter
func (m *Metrics) IncrementWSMessageIn() {
	atomic.AddInt64(&m.WSMessagesIn, 1)
}

// IncrementWSMessageOut increments WebSocket outgoing message counter
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// IncrementTokenExchange counts an authorization code exchange
func (m *Metrics) IncrementTokenExchange(success bool) {
	atomic.AddInt64(&m.TokenExchanges, 1)
	if !success {
		atomic.AddInt64(&m.TokenErrors, 1)
	}
}

// IncrementTokenRefresh counts a refresh-token grant
func (m *Metrics) IncrementTokenRefresh(success bool) {
	atomic.AddInt64(&m.TokenRefreshes, 1)
	if !success {
		atomic.AddInt64(&m.TokenErrors, 1)
	}
}

// IncrementExport increments xlsx export counters
func (m *Metrics) IncrementExport(success bool) {
	if success {
		atomic.AddInt64(&m.ExportsGenerated, 1)
	} else {
		atomic.AddInt64(&m.ExportErrors, 1)
	}
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndpointMetrics == nil {
		m.EndpointMetrics = make(map[string]*EndpointMetrics)
	}

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	atomic.AddInt64(&em.Requests, 1)
	atomic.AddInt64(&em.TotalLatency, latencyMs)
	if statusCode >= 400 {
		atomic.AddInt64(&em.Errors, 1)
	}
}

// GetEndpointMetrics returns a copy of endpoint metrics
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics)
	for k, v := range m.EndpointMetrics {
		result[k] = EndpointMetrics{
			Requests:     atomic.LoadInt64(&v.Requests),
			Errors:       atomic.LoadInt64(&v.Errors),
			TotalLatency: atomic.LoadInt64(&v.TotalLatency),
		}
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	count := atomic.LoadInt64(&m.RequestCount)
	if count == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.TotalLatency)
	return float64(total) / float64(count)
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	// Uptime
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	// Request metrics
	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	// Upstream metrics
	Upstream struct {
		Calls        int64   `json:"calls"`
		Errors       int64   `json:"errors"`
		RateLimited  int64   `json:"rate_limited"`
		InFlight     int64   `json:"in_flight"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"upstream"`

	// Aggregation metrics
	Aggregations struct {
		Total    int64 `json:"total"`
		Failures int64 `json:"failures"`
		Batches  int64 `json:"batches"`
	} `json:"aggregations"`

	// Mutation metrics
	Mutations struct {
		Applied      int64   `json:"applied"`
		Errors       int64   `json:"errors"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"mutations"`

	// File metrics
	Files struct {
		Uploaded   int64 `json:"uploaded"`
		TotalBytes int64 `json:"total_bytes"`
	} `json:"files"`

	// WebSocket metrics
	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesIn  int64 `json:"messages_in"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	// OAuth metrics
	OAuth struct {
		Exchanges int64 `json:"exchanges"`
		Refreshes int64 `json:"refreshes"`
		Errors    int64 `json:"errors"`
	} `json:"oauth"`

	Exports struct {
		Generated int64 `json:"generated"`
		Errors    int64 `json:"errors"`
	} `json:"exports"`

	// System metrics
	System struct {
		Goroutines   int    `json:"goroutines"`
		HeapAllocMB  uint64 `json:"heap_alloc_mb"`
		HeapInUseMB  uint64 `json:"heap_inuse_mb"`
		StackInUseMB uint64 `json:"stack_inuse_mb"`
		NumGC        uint32 `json:"num_gc"`
	} `json:"system"`

	// Endpoint-specific metrics
	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := MetricsSnapshot{}

	// Uptime
	snapshot.UptimeSeconds = m.GetUptime().Seconds()
	snapshot.StartTime = m.StartTime.Format(time.RFC3339)

	// Request metrics
	snapshot.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snapshot.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snapshot.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	snapshot.Requests.AvgLatencyMs = m.GetAverageLatency()

	// Upstream metrics
	calls := atomic.LoadInt64(&m.UpstreamCalls)
	snapshot.Upstream.Calls = calls
	snapshot.Upstream.Errors = atomic.LoadInt64(&m.UpstreamErrors)
	snapshot.Upstream.RateLimited = atomic.LoadInt64(&m.UpstreamRateLimited)
	snapshot.Upstream.InFlight = atomic.LoadInt64(&m.UpstreamInFlight)
	if calls > 0 {
		snapshot.Upstream.AvgLatencyMs = float64(atomic.LoadInt64(&m.UpstreamLatency)) / float64(calls)
	}

	// Aggregation metrics
	snapshot.Aggregations.Total = atomic.LoadInt64(&m.Aggregations)
	snapshot.Aggregations.Failures = atomic.LoadInt64(&m.AggregationFailures)
	snapshot.Aggregations.Batches = atomic.LoadInt64(&m.BatchesCompleted)

	// Mutation metrics
	applied := atomic.LoadInt64(&m.MutationsApplied)
	mutationErrors := atomic.LoadInt64(&m.MutationErrors)
	snapshot.Mutations.Applied = applied
	snapshot.Mutations.Errors = mutationErrors
	if total := applied + mutationErrors; total > 0 {
		snapshot.Mutations.AvgLatencyMs = float64(atomic.LoadInt64(&m.MutationLatency)) / float64(total)
	}

	// File metrics
	snapshot.Files.Uploaded = atomic.LoadInt64(&m.FilesUploaded)
	snapshot.Files.TotalBytes = atomic.LoadInt64(&m.TotalBytesUploaded)

	// WebSocket metrics
	snapshot.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	snapshot.WebSocket.MessagesIn = atomic.LoadInt64(&m.WSMessagesIn)
	snapshot.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	// OAuth metrics
	snapshot.OAuth.Exchanges = atomic.LoadInt64(&m.TokenExchanges)
	snapshot.OAuth.Refreshes = atomic.LoadInt64(&m.TokenRefreshes)
	snapshot.OAuth.Errors = atomic.LoadInt64(&m.TokenErrors)

	snapshot.Exports.Generated = atomic.LoadInt64(&m.ExportsGenerated)
	snapshot.Exports.Errors = atomic.LoadInt64(&m.ExportErrors)

	// System metrics
	snapshot.System.Goroutines = runtime.NumGoroutine()
	snapshot.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.System.HeapInUseMB = memStats.HeapInuse / 1024 / 1024
	snapshot.System.StackInUseMB = memStats.StackInuse / 1024 / 1024
	snapshot.System.NumGC = memStats.NumGC

	// Endpoint metrics
	endpointMetrics := m.GetEndpointMetrics()
	if len(endpointMetrics) > 0 {
		snapshot.Endpoints = make(map[string]EndpointMetricsSnapshot)
		for k, v := range endpointMetrics {
			em := EndpointMetricsSnapshot{
				Requests: v.Requests,
				Errors:   v.Errors,
			}
			if v.Requests > 0 {
				em.ErrorRate = float64(v.Errors) / float64(v.Requests) * 100
				em.AvgLatencyMs = float64(v.TotalLatency) / float64(v.Requests)
			}
			snapshot.Endpoints[k] = em
		}
	}

	return snapshot
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"` // "healthy", "degraded", "unhealthy"
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckRedisHealth pings the token store backend. A nil client means the memory store is in use.
func CheckRedisHealth(ctx context.Context, rdb *redis.Client) HealthStatus {
	if rdb == nil {
		return HealthStatus{
			Status:  "healthy",
			Message: "memory token store",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return HealthStatus{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency,
		}
	}

	// Check if latency is acceptable (< 100ms)
	if latency > 100 {
		return HealthStatus{
			Status:  "degraded",
			Message: "high latency",
			Latency: latency,
		}
	}

	return HealthStatus{
		Status:  "healthy",
		Latency: latency,
	}
}

// CheckTokenHealth reports whether an upstream token is available.
// Missing tokens only degrade the service: /auth still works.
func CheckTokenHealth(hasToken bool, err error) HealthStatus {
	if err != nil {
		return HealthStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}
	if !hasToken {
		return HealthStatus{
			Status:  "degraded",
			Message: "no Basecamp token, authorize at /auth",
		}
	}
	return HealthStatus{Status: "healthy"}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024

	if heapMB > maxHeapMB {
		return HealthStatus{
			Status:  "unhealthy",
			Message: "heap memory exceeds limit",
		}
	}

	// Warn if using more than 80% of limit
	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{
			Status:  "degraded",
			Message: "heap memory usage high",
		}
	}

	return HealthStatus{
		Status: "healthy",
	}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasUnhealthy := false
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case "unhealthy":
			hasUnhealthy = true
		case "degraded":
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return "unhealthy"
	}
	if hasDegraded {
		return "degraded"
	}
	return "healthy"
}
