// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// insight.MetricsRecorderを実装する。
type Collector struct {
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	generations       *prometheus.CounterVec
	generationLatency prometheus.Histogram
	quotaRejections   *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	digestRuns        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menoplan_insight_cache_hits_total",
			Help: "インサイトキャッシュヒットの合計数",
		}, []string{"insight_type"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menoplan_insight_cache_misses_total",
			Help: "インサイトキャッシュミスの合計数",
		}, []string{"insight_type"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menoplan_insight_generations_total",
			Help: "インサイト生成の種別・結果別の合計数",
		}, []string{"insight_type", "outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "menoplan_insight_generation_latency_seconds",
			Help:    "インサイト生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menoplan_ai_quota_rejections_total",
			Help: "AI日次クォータ超過による拒否の合計数",
		}, []string{"feature"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menoplan_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		digestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menoplan_digest_runs_total",
			Help: "週次ダイジェスト事前計算の実行回数",
		}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.generations,
		c.generationLatency,
		c.quotaRejections,
		c.httpStatus,
		c.digestRuns,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(insightType string) {
	c.cacheHits.WithLabelValues(insightType).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(insightType string) {
	c.cacheMisses.WithLabelValues(insightType).Inc()
}

// RecordGeneration はインサイト生成の結果（success / error）を記録する。
func (c *Collector) RecordGeneration(insightType, outcome string) {
	c.generations.WithLabelValues(insightType, outcome).Inc()
}

// RecordGenerationLatency は生成のレイテンシを記録する。
func (c *Collector) RecordGenerationLatency(duration time.Duration) {
	c.generationLatency.Observe(duration.Seconds())
}

// RecordQuotaRejection はクォータ超過による拒否を記録する。
func (c *Collector) RecordQuotaRejection(feature string) {
	c.quotaRejections.WithLabelValues(feature).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordDigestRun はダイジェスト事前計算の実行を記録する。
func (c *Collector) RecordDigestRun() {
	c.digestRuns.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
