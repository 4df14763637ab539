package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotUpstream(t *testing.T) {
	m := New()

	m.UpstreamStarted()
	m.UpstreamStarted()
	assert.Equal(t, int64(2), m.Snapshot().Upstream.InFlight)

	m.UpstreamFinished(true, false, 10)
	m.UpstreamFinished(false, true, 30)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Upstream.Calls)
	assert.Equal(t, int64(1), s.Upstream.Errors)
	assert.Equal(t, int64(1), s.Upstream.RateLimited)
	assert.Equal(t, int64(0), s.Upstream.InFlight)
	assert.InDelta(t, 20.0, s.Upstream.AvgLatencyMs, 0.001)
}

func TestSnapshotMutationsAndAggregations(t *testing.T) {
	m := New()
	m.IncrementMutation(true, 100)
	m.IncrementMutation(false, 300)
	m.IncrementAggregation(true)
	m.IncrementAggregation(false)
	m.IncrementBatch()
	m.TrackEndpoint("/projects", "POST", 200, 5)
	m.TrackEndpoint("/projects", "POST", 500, 15)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Mutations.Applied)
	assert.Equal(t, int64(1), s.Mutations.Errors)
	assert.InDelta(t, 200.0, s.Mutations.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(2), s.Aggregations.Total)
	assert.Equal(t, int64(1), s.Aggregations.Failures)
	assert.Equal(t, int64(1), s.Aggregations.Batches)

	ep := s.Endpoints["POST /projects"]
	assert.Equal(t, int64(2), ep.Requests)
	assert.InDelta(t, 50.0, ep.ErrorRate, 0.001)
}

func TestHealthChecks(t *testing.T) {
	assert.Equal(t, "healthy", CheckRedisHealth(context.Background(), nil).Status)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	assert.NotEqual(t, "unhealthy", CheckRedisHealth(context.Background(), rdb).Status)

	mr.Close()
	assert.Equal(t, "unhealthy", CheckRedisHealth(context.Background(), rdb).Status)

	assert.Equal(t, "degraded", CheckTokenHealth(false, nil).Status)
	assert.Equal(t, "unhealthy", CheckTokenHealth(false, errors.New("boom")).Status)
	assert.Equal(t, "healthy", CheckTokenHealth(true, nil).Status)

	status := DetermineOverallStatus(map[string]HealthStatus{
		"a": {Status: "healthy"},
		"b": {Status: "degraded"},
	})
	assert.Equal(t, "degraded", status)
}
