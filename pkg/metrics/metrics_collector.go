package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// nil 接收者上的方法都是空操作，测试中可以直接传 nil
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 论坛指标
	votesTotal       *prometheus.CounterVec
	commentsTotal    *prometheus.CounterVec
	feedPagesTotal   *prometheus.CounterVec
	feedPageDuration *prometheus.HistogramVec
	storeConflicts   *prometheus.CounterVec
	storeRetries     *prometheus.CounterVec
	stalePagesTotal  *prometheus.CounterVec
	cacheOperations  *prometheus.CounterVec
}

// NewMetricsCollector 在 reg 上注册全部指标
// reg 为 nil 时使用 prometheus.DefaultRegisterer
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &MetricsCollector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		votesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_votes_total",
				Help: "Votes processed, by target type and outcome",
			},
			[]string{"target_type", "outcome"}, // outcome: inserted, switched, retracted, noop
		),

		commentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_comments_total",
				Help: "Comments added or removed",
			},
			[]string{"action"},
		),

		feedPagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_feed_pages_total",
				Help: "Feed pages served, by sort and result",
			},
			[]string{"sort", "result"},
		),

		feedPageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_feed_page_duration_seconds",
				Help:    "Time spent building one feed page",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
			},
			[]string{"sort"},
		),

		storeConflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_store_conflicts_total",
				Help: "Concurrent write conflicts reported by the store",
			},
			[]string{"operation"},
		),

		storeRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_store_retries_exhausted_total",
				Help: "Operations that gave up after the maximum number of attempts",
			},
			[]string{"operation"},
		),

		stalePagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_feed_stale_pages_total",
				Help: "Feed pages served from the last-good cache after a store timeout",
			},
			[]string{"sort"},
		),

		cacheOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_cache_operations_total",
				Help: "Page cache operations, by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration, responseSize int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordVote 记录一次投票的结果
func (m *MetricsCollector) RecordVote(targetType, outcome string) {
	if m == nil {
		return
	}
	m.votesTotal.WithLabelValues(targetType, outcome).Inc()
}

// RecordComments 记录新增或删除的评论数
func (m *MetricsCollector) RecordComments(action string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.commentsTotal.WithLabelValues(action).Add(float64(n))
}

// RecordFeedPage 记录一次 feed 分页
func (m *MetricsCollector) RecordFeedPage(sort, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.feedPagesTotal.WithLabelValues(sort, result).Inc()
	m.feedPageDuration.WithLabelValues(sort).Observe(duration.Seconds())
	if result == "stale" {
		m.stalePagesTotal.WithLabelValues(sort).Inc()
	}
}

// RecordConflict 记录一次写冲突
func (m *MetricsCollector) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.storeConflicts.WithLabelValues(operation).Inc()
}

// RecordRetryExhausted 记录重试次数耗尽
func (m *MetricsCollector) RecordRetryExhausted(operation string) {
	if m == nil {
		return
	}
	m.storeRetries.WithLabelValues(operation).Inc()
}

// RecordCacheOperation 记录缓存操作
func (m *MetricsCollector) RecordCacheOperation(operation string, ok bool) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(operation, strconv.FormatBool(ok)).Inc()
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
