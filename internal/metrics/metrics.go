package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	BorrowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "library_borrows_total",
		Help: "Borrows committed.",
	})

	// ReturnsTotal is labelled by the persisted terminal status.
	ReturnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_returns_total",
		Help: "Returns committed, by terminal status.",
	}, []string{"status"})
)
