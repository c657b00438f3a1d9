package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmymeta_exchanges_total",
		Help: "Exchanges observed by the capture middleware",
	}, []string{"outcome"})

	SinkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmymeta_sink_writes_total",
		Help: "Metadata writes to the configured sink",
	}, []string{"kind", "result"})

	AuditRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmymeta_audit_rows_total",
		Help: "Rows appended to the audit logs",
	}, []string{"log", "result"})

	ResponseTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildmymeta_response_time_seconds",
		Help:    "Response time of captured exchanges in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildmymeta_http_request_duration_seconds",
		Help:    "Latency of HTTP requests served by the demo API",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
