package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gzhole/scriptshield/internal/analyzer"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptshield_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scriptshield_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptshield_analyses_total",
		Help: "Total completed analyses by risk category.",
	}, []string{"category"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scriptshield_analysis_duration_seconds",
		Help:    "Time spent in the analysis engine per script.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	familyMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptshield_threat_family_matches_total",
		Help: "Total analyses in which a threat family matched.",
	}, []string{"family"})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scriptshield_stage_failures_total",
		Help: "Total analysis stage failures by stage.",
	}, []string{"stage"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAnalysis records the outcome of one engine run.
func RecordAnalysis(res *analyzer.Result, elapsed time.Duration) {
	analysisDuration.Observe(elapsed.Seconds())

	category := "fatal"
	if res.RiskAssessment != nil {
		category = string(res.RiskAssessment.Category)
	}
	analysesTotal.WithLabelValues(category).Inc()

	for _, family := range res.Families() {
		familyMatchesTotal.WithLabelValues(family).Inc()
	}
	for _, f := range res.Failures {
		stageFailuresTotal.WithLabelValues(f.Stage).Inc()
	}
}
