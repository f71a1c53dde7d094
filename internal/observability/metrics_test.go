package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/api/login", "POST", 200, 30*time.Millisecond)
	m.RecordRequest("/api/all-tasks", "GET", 404, time.Millisecond)
	m.RecordError("/api/all-tasks", "GET", "NOT_FOUND")
	m.RecordEvent("task_graded")

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 2)
	assert.Equal(t, "/api/all-tasks|GET|404", snap.Requests[0].Key)
	assert.Equal(t, "/api/login|POST|200", snap.Requests[1].Key)
	assert.Equal(t, int64(2), snap.Requests[1].Count)
	assert.InDelta(t, 20.0, snap.Requests[1].AvgLatencyMs, 0.001)
	assert.Equal(t, int64(1), snap.Errors["/api/all-tasks|GET|NOT_FOUND"])
	assert.Equal(t, int64(1), snap.Events["task_graded"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordEvent("x")
	assert.Empty(t, m.Snapshot().Requests)
}
