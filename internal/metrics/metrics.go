// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// HTTPミドルウェアやサービス層から利用する。
type Recorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordPostCreated()
	RecordLikeToggled(liked bool)
	RecordCommentAdded()
	RecordLogin(success bool)
	RecordRegistration()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	postsCreated  prometheus.Counter
	likesToggled  *prometheus.CounterVec
	commentsAdded prometheus.Counter
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialboard_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialboard_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialboard_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		likesToggled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialboard_likes_toggled_total",
			Help: "いいねのトグル回数（action=like|unlike）",
		}, []string{"action"}),
		commentsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialboard_comments_added_total",
			Help: "追加されたコメントの合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialboard_logins_total",
			Help: "ログイン試行回数（result=success|failure）",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialboard_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.postsCreated,
		c.likesToggled,
		c.commentsAdded,
		c.logins,
		c.registrations,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordLikeToggled はいいねのトグルを記録する。
func (c *Collector) RecordLikeToggled(liked bool) {
	action := "unlike"
	if liked {
		action = "like"
	}
	c.likesToggled.WithLabelValues(action).Inc()
}

// RecordCommentAdded はコメント追加を記録する。
func (c *Collector) RecordCommentAdded() {
	c.commentsAdded.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// Nop は何も記録しないRecorder。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordPostCreated()                                   {}
func (Nop) RecordLikeToggled(bool)                               {}
func (Nop) RecordCommentAdded()                                  {}
func (Nop) RecordLogin(bool)                                     {}
func (Nop) RecordRegistration()                                  {}

// OrNop はrecがnilの場合にNopを返す。
func OrNop(rec Recorder) Recorder {
	if rec == nil {
		return Nop{}
	}
	return rec
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
