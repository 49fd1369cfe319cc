package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/scheduler/sessions/:sessionId", http.StatusOK, 20*time.Millisecond)
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/scheduler/sessions/:sessionId/save", http.StatusOK, 40*time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.ObserveBackendRequest("course_groupings", "ok", 10*time.Millisecond)
	metrics.SessionOpened()
	metrics.SessionOpened()
	metrics.SessionClosed()

	snap := metrics.Snapshot()

	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.BackendRequests)
	assert.InDelta(t, 10.0, snap.AverageBackendDurationMs, 0.001)
	assert.Equal(t, int64(1), snap.ActiveSessions)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceExposesSchedulerCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveConflicts(3)
	metrics.RecordStaleFetch()
	metrics.ObserveBackendRequest("grouping_schedule", "error", time.Millisecond)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "scheduler_stale_fetches_total 1")
	assert.Contains(t, body, "scheduler_conflicts_detected_count 1")
	assert.Contains(t, body, `backend_request_duration_seconds_count{operation="grouping_schedule",outcome="error"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	metrics.RecordStaleFetch()
	metrics.SessionOpened()

	assert.Equal(t, MetricsSnapshot{}, metrics.Snapshot())

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
