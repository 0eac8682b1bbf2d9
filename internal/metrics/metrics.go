// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordProjectCreated()
	RecordTechnologyCreated()
	RecordImageStored(source string)
	RecordLoginFailure()
	RecordSessionsCleaned(count int64)
	RecordOrphanImagesRemoved(count int)
}

// 画像の保存経路。
const (
	ImageSourceUpload = "upload"
	ImageSourceImport = "import"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus          *prometheus.CounterVec
	requestLatency      prometheus.Histogram
	projectsCreated     prometheus.Counter
	technologiesCreated prometheus.Counter
	imagesStored        *prometheus.CounterVec
	loginFailures       prometheus.Counter
	sessionsCleaned     prometheus.Counter
	orphanImagesRemoved prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		projectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_projects_created_total",
			Help: "作成されたプロジェクトの合計数",
		}),
		technologiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_technologies_created_total",
			Help: "作成された技術の合計数",
		}),
		imagesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_images_stored_total",
			Help: "保存されたプロジェクト画像の合計数",
		}, []string{"source"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_login_failures_total",
			Help: "ログイン失敗の合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		orphanImagesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_orphan_images_removed_total",
			Help: "削除された未参照画像の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.projectsCreated,
		c.technologiesCreated,
		c.imagesStored,
		c.loginFailures,
		c.sessionsCleaned,
		c.orphanImagesRemoved,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordProjectCreated はプロジェクト作成を記録する。
func (c *Collector) RecordProjectCreated() {
	c.projectsCreated.Inc()
}

// RecordTechnologyCreated は技術の作成を記録する。
func (c *Collector) RecordTechnologyCreated() {
	c.technologiesCreated.Inc()
}

// RecordImageStored は画像の保存を経路別に記録する。
func (c *Collector) RecordImageStored(source string) {
	c.imagesStored.WithLabelValues(source).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
}

// RecordSessionsCleaned は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// RecordOrphanImagesRemoved は削除した未参照画像数を記録する。
func (c *Collector) RecordOrphanImagesRemoved(count int) {
	c.orphanImagesRemoved.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを必要としないコマンドやテストで使用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int) {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordProjectCreated() {}
func (NopCollector) RecordTechnologyCreated() {}
func (NopCollector) RecordImageStored(string) {}
func (NopCollector) RecordLoginFailure() {}
func (NopCollector) RecordSessionsCleaned(int64) {}
func (NopCollector) RecordOrphanImagesRemoved(int) {}

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

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
