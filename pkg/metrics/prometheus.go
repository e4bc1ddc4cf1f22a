// Package metrics provides Prometheus metrics for the location API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream call outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Session check outcomes.
const (
	SessionActive  = "active"
	SessionMissing = "missing"
	SessionError   = "error"
)

// Manager manages all Prometheus metrics for the API.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Upstream (auth provider and table store) calls
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Auth and session health
	loginAttempts    *prometheus.CounterVec
	sessionChecks    *prometheus.CounterVec
	sessionRefreshes *prometheus.CounterVec

	// Trust boundary: caller fields replaced before a write
	sanitizedFields *prometheus.CounterVec

	// Error tracking
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "locapi",
		subsystem:        "api",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.upstreamRequests = m.counterVec("upstream_requests_total",
		"Calls to the hosted auth/data backend by operation, table and outcome",
		"operation", "table", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds",
		"Latency of calls to the hosted backend in milliseconds",
		"operation", "table")

	m.loginAttempts = m.counterVec("login_attempts_total",
		"Password sign-in attempts by outcome",
		"outcome")
	m.sessionChecks = m.counterVec("session_checks_total",
		"Session lookups performed for protected routes by outcome",
		"outcome")
	m.sessionRefreshes = m.counterVec("session_refreshes_total",
		"Access token refreshes by outcome",
		"outcome")

	m.sanitizedFields = m.counterVec("sanitized_fields_total",
		"Caller-supplied record fields replaced or removed before a write",
		"field")

	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type",
		"error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.customLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.customLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.customLabels,
	})
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordUpstreamCall records one backend call and its latency.
func RecordUpstreamCall(operation, table, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(operation, table, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(operation, table).Observe(latencyMs)
}

// RecordLogin records a sign-in attempt outcome.
func RecordLogin(outcome string) {
	globalManager.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordSessionCheck records the outcome of a session lookup.
func RecordSessionCheck(outcome string) {
	globalManager.sessionChecks.WithLabelValues(outcome).Inc()
}

// RecordSessionRefresh records an access token refresh outcome.
func RecordSessionRefresh(outcome string) {
	globalManager.sessionRefreshes.WithLabelValues(outcome).Inc()
}

// RecordSanitizedField counts a caller-supplied field replaced before a write.
func RecordSanitizedField(field string) {
	globalManager.sanitizedFields.WithLabelValues(field).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
