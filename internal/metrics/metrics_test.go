package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_InsightCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("daily")
	c.RecordCacheHit("daily")
	c.RecordCacheMiss("weekly")
	c.RecordGeneration("weekly", "success")
	c.RecordGeneration("weekly", "error")
	c.RecordQuotaRejection("daily")

	if got := testutil.ToFloat64(c.cacheHits.WithLabelValues("daily")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheMisses.WithLabelValues("weekly")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.generations.WithLabelValues("weekly", "success")); got != 1 {
		t.Errorf("generations success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.generations.WithLabelValues("weekly", "error")); got != 1 {
		t.Errorf("generations error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.quotaRejections.WithLabelValues("daily")); got != 1 {
		t.Errorf("quota rejections = %v, want 1", got)
	}
}

func TestCollector_HTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(429)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("status 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("429")); got != 1 {
		t.Errorf("status 429 = %v, want 1", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit("daily")
	c.RecordGenerationLatency(150 * time.Millisecond)
	c.RecordDigestRun()

	handler := SetupMetricsRoute(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"menoplan_insight_cache_hits_total",
		"menoplan_insight_generation_latency_seconds",
		"menoplan_digest_runs_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("メトリクス %s が出力に含まれない", name)
		}
	}
}
