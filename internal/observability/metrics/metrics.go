// Package metrics provides Prometheus instrumentation for netprofile.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Profile domain metrics
	documentValidationTotal *prometheus.CounterVec
	networkLookupTotal      *prometheus.CounterVec
	networkProbeTotal       *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	documentValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprofile_document_validation_total",
			Help: "Total number of uploaded documents validated",
		},
		[]string{"result"},
	)

	networkLookupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprofile_network_lookup_total",
			Help: "Total number of single network lookups",
		},
		[]string{"status"},
	)

	// Network names come from the loaded document, so cardinality is bounded.
	networkProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netprofile_network_probe_total",
			Help: "Total number of network probes",
		},
		[]string{"network", "result"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
