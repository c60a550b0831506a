// Package metrics 定义了 Prometheus 指标以及记录 HTTP 请求的 Gin 中间件。
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "psearch"

// 事件处理结果，作为 SyncEventsTotal 的 result 标签。
const (
	ResultOK         = "ok"
	ResultRetry      = "retry"
	ResultDeadLetter = "dead_letter"
	ResultMalformed  = "malformed"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SyncEventsTotal 统计 Kafka 题目事件的处理结果。
	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Problem events consumed, by type and result",
		},
		[]string{"type", "result"},
	)

	// SearchDuration 记录搜索后端的查询耗时。
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Problem search duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// ReindexJobsTotal 统计全量重建任务的结果。
	ReindexJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_jobs_total",
			Help:      "Reindex jobs, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, SyncEventsTotal, SearchDuration, ReindexJobsTotal)
}

// StatusLabel 把 error 转换为 "ok" / "error" 标签。
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return ResultOK
}

// Middleware 记录 HTTP 请求耗时和次数。path 使用路由模板，避免标签基数过高。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
