package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, testutil.ToFloat64(m.cacheHitRatio), 0.0001)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 5*time.Millisecond)
	m.RecordExportJob("finance", "csv", "FINISHED", time.Second)
	m.RecordVariantGenerated("math")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "http_requests_total"))
	assert.True(t, strings.Contains(body, `export_jobs_total{status="FINISHED",type="finance"} 1`))
	assert.True(t, strings.Contains(body, `variants_generated_total{subject="math"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordExportJob("backup", "json", "FAILED", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
