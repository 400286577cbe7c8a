package service

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrapeMetrics(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestRecordCacheOperationMovesCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true)
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(false)

	body := scrapeMetrics(t, m)
	assert.Contains(t, body, "cache_hits_total 2")
	assert.Contains(t, body, "cache_misses_total 1")
}

func TestSetLastSyncTimeExported(t *testing.T) {
	m := NewMetricsService()
	m.SetLastSyncTime(time.Unix(1700000000, 0))

	body := scrapeMetrics(t, m)
	assert.Contains(t, body, "sync_last_timestamp_seconds 1.7e+09")
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordCacheOperation(true)
		m.SetLastSyncTime(time.Now())
		m.SetPendingRecords(3)
		m.ObserveDeadLetter()
	})
}
