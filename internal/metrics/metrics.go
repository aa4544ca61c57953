package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	uploadsTotal   *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	downloadsTotal *prometheus.CounterVec
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "easyshare",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "easyshare",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "easyshare",
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"outcome"})

		uploadedBytes = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "easyshare",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes accepted into the upload registry.",
		})

		downloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "easyshare",
			Name:      "downloads_total",
			Help:      "Download attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(httpRequests, httpLatency, uploadsTotal, uploadedBytes, downloadsTotal)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	InitMetrics()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveUpload counts an upload attempt; size is only added on success.
func ObserveUpload(outcome string, size int64) {
	InitMetrics()
	uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK && size > 0 {
		uploadedBytes.Add(float64(size))
	}
}

// ObserveDownload counts a download attempt.
func ObserveDownload(outcome string) {
	InitMetrics()
	downloadsTotal.WithLabelValues(outcome).Inc()
}

// Outcome labels shared by the upload and download counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
