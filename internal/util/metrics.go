package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_created_total",
		Help: "Total number of listings created",
	})

	ListingsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_updated_total",
		Help: "Total number of listings updated",
	})

	ListingsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_deleted_total",
		Help: "Total number of listings deleted",
	})

	ImportsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imports_recorded_total",
		Help: "Total number of import transfers recorded",
	})

	ImportsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imports_failed_total",
		Help: "Total number of failed import transfers",
	}, []string{"reason"})

	ImportsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imports_removed_total",
		Help: "Total number of import records removed",
	})

	ImportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_latency_seconds",
		Help:    "Latency of import quantity transfers",
		Buckets: prometheus.DefBuckets,
	})

	SignInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sign_ins_total",
		Help: "Total number of sign-ins by provider",
	}, []string{"provider"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
