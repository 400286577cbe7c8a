package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/champlabs/schoolsync/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newConfigService(useOffline, autoSync bool) *service.DataService {
	return service.NewDataService(nil, nil, nil, nil, service.Config{
		UseOffline: useOffline,
		AutoSync:   autoSync,
	}, nil, nil)
}

func TestConfigHandlerGet(t *testing.T) {
	r := gin.New()
	h := NewConfigHandler(newConfigService(true, false))
	r.GET("/config", h.Get)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data service.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.UseOffline)
	assert.False(t, body.Data.AutoSync)
}

func TestConfigHandlerPartialUpdate(t *testing.T) {
	svc := newConfigService(false, true)
	r := gin.New()
	h := NewConfigHandler(svc)
	r.PATCH("/config", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/config", strings.NewReader(`{"use_offline":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cfg := svc.GetConfig()
	assert.True(t, cfg.UseOffline)
	assert.True(t, cfg.AutoSync, "omitted field is untouched")
}

func TestConfigHandlerRejectsBadBody(t *testing.T) {
	r := gin.New()
	h := NewConfigHandler(newConfigService(false, false))
	r.PATCH("/config", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/config", strings.NewReader(`{"use_offline":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceListRejectsBadDate(t *testing.T) {
	r := gin.New()
	h := NewAttendanceHandler(nil)
	r.GET("/attendance", h.List)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/attendance?date=02-03-2026", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentCreateRejectsBadBody(t *testing.T) {
	r := gin.New()
	h := NewStudentHandler(nil)
	r.POST("/students", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	h := NewMetricsHandler(service.NewMetricsService())
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestPrometheusEndpoint(t *testing.T) {
	r := gin.New()
	h := NewMetricsHandler(service.NewMetricsService())
	r.GET("/metrics", h.Prometheus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}
