package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/champlabs/schoolsync/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for the status API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncPassTotal   *prometheus.CounterVec
	syncPushTotal   *prometheus.CounterVec
	syncPassSeconds prometheus.Observer
	pendingRecords  prometheus.Gauge
	lastSync        prometheus.Gauge
	deadLetters     prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	passCount            uint64
	passFailureCount     uint64
	pushCount            uint64
	pushFailureCount     uint64
	deadLetterCount      uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	syncPassTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_passes_total",
		Help: "Total number of sync passes by result",
	}, []string{"result"})

	syncPushTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pushes_total",
		Help: "Total number of per-record push attempts by collection and result",
	}, []string{"collection", "result"})

	syncPassSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_pass_duration_seconds",
		Help:    "Duration of full sync passes",
		Buckets: prometheus.DefBuckets,
	})

	pendingRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_pending_records",
		Help: "Dirty records awaiting upload, as of the last status notification",
	})

	lastSync := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_timestamp_seconds",
		Help: "Unix time of the last completed sync pass",
	})

	deadLetters := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_dead_letters_total",
		Help: "Records parked after exhausting their push retries",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total remote read cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total remote read cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncPassTotal, syncPushTotal, syncPassSeconds, pendingRecords, lastSync, deadLetters, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncPassTotal:   syncPassTotal,
		syncPushTotal:   syncPushTotal,
		syncPassSeconds: syncPassSeconds,
		pendingRecords:  pendingRecords,
		lastSync:        lastSync,
		deadLetters:     deadLetters,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveSyncPass records the outcome and duration of one full sync pass.
func (m *MetricsService) ObserveSyncPass(failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
		atomic.AddUint64(&m.passFailureCount, 1)
	}
	m.syncPassTotal.WithLabelValues(result).Inc()
	m.syncPassSeconds.Observe(duration.Seconds())
	atomic.AddUint64(&m.passCount, 1)
}

// ObserveSyncPush records one per-record push attempt.
func (m *MetricsService) ObserveSyncPush(collection models.Collection, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		atomic.AddUint64(&m.pushFailureCount, 1)
	}
	m.syncPushTotal.WithLabelValues(string(collection), result).Inc()
	atomic.AddUint64(&m.pushCount, 1)
}

// ObserveDeadLetter counts a record parked after exhausting its retries.
func (m *MetricsService) ObserveDeadLetter() {
	if m == nil {
		return
	}
	m.deadLetters.Inc()
	atomic.AddUint64(&m.deadLetterCount, 1)
}

// SetPendingRecords publishes the current dirty record count.
func (m *MetricsService) SetPendingRecords(n int) {
	if m == nil {
		return
	}
	m.pendingRecords.Set(float64(n))
}

// SetLastSyncTime records when the most recent sync pass completed.
func (m *MetricsService) SetLastSyncTime(t time.Time) {
	if m == nil {
		return
	}
	m.lastSync.Set(float64(t.Unix()))
}

// RecordCacheOperation records remote read cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// Snapshot returns aggregated metrics suitable for the status endpoint.
func (m *MetricsService) Snapshot() models.SyncMetricsSnapshot {
	if m == nil {
		return models.SyncMetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SyncMetricsSnapshot{
		SyncPasses:               atomic.LoadUint64(&m.passCount),
		SyncPassFailures:         atomic.LoadUint64(&m.passFailureCount),
		RecordPushes:             atomic.LoadUint64(&m.pushCount),
		RecordPushFailures:       atomic.LoadUint64(&m.pushFailureCount),
		DeadLetters:              atomic.LoadUint64(&m.deadLetterCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
