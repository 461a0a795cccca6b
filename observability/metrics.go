package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	registryMetricsOnce sync.Once
	registryRegistry    *RegistryMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "idregistry",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "idregistry",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and HTTP status.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "idregistry",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "idregistry",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// RegistryMetrics tracks registry writes and authorization outcomes.
type RegistryMetrics struct {
	writes      *prometheus.CounterVec
	authFailure *prometheus.CounterVec
	commits     *prometheus.HistogramVec
}

// Registry returns the singleton registry metrics.
func Registry() *RegistryMetrics {
	registryMetricsOnce.Do(func() {
		registryRegistry = &RegistryMetrics{
			writes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "idregistry",
				Subsystem: "registry",
				Name:      "writes_total",
				Help:      "Registry mutations segmented by operation, identity kind and outcome.",
			}, []string{"operation", "kind", "outcome"}),
			authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "idregistry",
				Subsystem: "registry",
				Name:      "authorization_failures_total",
				Help:      "Rejected writes segmented by reason.",
			}, []string{"reason"}),
			commits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "idregistry",
				Subsystem: "registry",
				Name:      "commit_duration_seconds",
				Help:      "Time spent flushing a call's staged writes to storage.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(registryRegistry.writes, registryRegistry.authFailure, registryRegistry.commits)
	})
	return registryRegistry
}

// RecordWrite counts one registry mutation.
func (m *RegistryMetrics) RecordWrite(operation, kind string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.writes.WithLabelValues(operation, kind, outcome).Inc()
}

// RecordAuthFailure counts a rejected write. Reason should be a stable
// identifier such as "not_delegate".
func (m *RegistryMetrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailure.WithLabelValues(reason).Inc()
}

// ObserveCommit records the storage commit latency for operation.
func (m *RegistryMetrics) ObserveCommit(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(operation).Observe(d.Seconds())
}
