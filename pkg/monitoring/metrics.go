package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection. Each collector owns
// its registry so several can coexist in one process.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	appointmentTransitions *prometheus.CounterVec
	slotOperations         *prometheus.CounterVec
	authAttemptsTotal      *prometheus.CounterVec
	authzDenialsTotal      *prometheus.CounterVec
	rateLimitedTotal       *prometheus.CounterVec
	systemErrors           *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "endpoint"},
		),
		appointmentTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "appointment_transitions_total",
				Help:        "Appointment lifecycle transitions by action and resulting status",
				ConstLabels: constLabels,
			},
			[]string{"action", "status"},
		),
		slotOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "slot_operations_total",
				Help:        "Slot catalog mutations by operation",
				ConstLabels: constLabels,
			},
			[]string{"operation"},
		),
		authAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_attempts_total",
				Help:        "Total number of authentication attempts",
				ConstLabels: constLabels,
			},
			[]string{"role", "status"},
		),
		authzDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "authorization_denials_total",
				Help:        "Requests refused by the access control layer",
				ConstLabels: constLabels,
			},
			[]string{"operation", "role"},
		),
		rateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rate_limited_requests_total",
				Help:        "Requests rejected by the rate limiter",
				ConstLabels: constLabels,
			},
			[]string{"endpoint"},
		),
		systemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "system_errors_total",
				Help:        "Total number of system errors",
				ConstLabels: constLabels,
			},
			[]string{"error_type", "component"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.appointmentTransitions,
		m.slotOperations,
		m.authAttemptsTotal,
		m.authzDenialsTotal,
		m.rateLimitedTotal,
		m.systemErrors,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAppointmentTransition counts a request/approve/reject that was applied
func (m *MetricsCollector) RecordAppointmentTransition(action, status string) {
	m.appointmentTransitions.WithLabelValues(action, status).Inc()
}

// RecordSlotOperation counts a slot create/update/delete
func (m *MetricsCollector) RecordSlotOperation(operation string) {
	m.slotOperations.WithLabelValues(operation).Inc()
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(role, status string) {
	m.authAttemptsTotal.WithLabelValues(role, status).Inc()
}

// RecordAuthorizationDenial records a Forbidden or Unauthenticated decision
func (m *MetricsCollector) RecordAuthorizationDenial(operation, role string) {
	if role == "" {
		role = "anonymous"
	}
	m.authzDenialsTotal.WithLabelValues(operation, role).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *MetricsCollector) RecordRateLimited(endpoint string) {
	m.rateLimitedTotal.WithLabelValues(endpoint).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	m.systemErrors.WithLabelValues(errorType, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
