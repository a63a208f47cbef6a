// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上流リクエストの結果ラベル。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// 永続化ジョブの結果ラベル。
const (
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobPanicked  = "panicked"
	JobDropped   = "dropped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// iTunesクライアント、永続化サービス、ディスパッチャーから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(operation, outcome string, duration time.Duration)
	RecordRowSaved(table string)
	RecordRowFailed(table string)
	RecordPersistJob(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	rowsSaved        *prometheus.CounterVec
	rowsFailed       *prometheus.CounterVec
	persistJobs      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podsearch_upstream_requests_total",
			Help: "iTunes APIへのリクエスト数（リトライ後の最終結果）",
		}, []string{"operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podsearch_upstream_latency_seconds",
			Help:    "iTunes APIリクエストのレイテンシ（秒、リトライ込み）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		rowsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podsearch_rows_saved_total",
			Help: "テーブル別の保存成功行数",
		}, []string{"table"}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podsearch_rows_failed_total",
			Help: "テーブル別の保存失敗行数",
		}, []string{"table"}),
		persistJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podsearch_persist_jobs_total",
			Help: "バックグラウンド永続化ジョブの結果別件数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.rowsSaved,
		c.rowsFailed,
		c.persistJobs,
	)

	return c
}

// RecordUpstreamRequest は上流リクエストの結果とレイテンシを記録する。
func (c *Collector) RecordUpstreamRequest(operation, outcome string, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(operation, outcome).Inc()
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRowSaved は保存成功を1行記録する。
func (c *Collector) RecordRowSaved(table string) {
	c.rowsSaved.WithLabelValues(table).Inc()
}

// RecordRowFailed は保存失敗を1行記録する。
func (c *Collector) RecordRowFailed(table string) {
	c.rowsFailed.WithLabelValues(table).Inc()
}

// RecordPersistJob は永続化ジョブの結果を記録する。
func (c *Collector) RecordPersistJob(outcome string) {
	c.persistJobs.WithLabelValues(outcome).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクスを注入しない場合に使う。
type Nop struct{}

func (Nop) RecordUpstreamRequest(string, string, time.Duration) {}
func (Nop) RecordRowSaved(string) {}
func (Nop) RecordRowFailed(string) {}
func (Nop) RecordPersistJob(string) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
