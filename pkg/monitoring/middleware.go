package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
)

// RequestIDHeader carries the request correlation id
const RequestIDHeader = "X-Request-ID"

// MonitoringMiddleware combines metrics, tracing, and logging
type MonitoringMiddleware struct {
	metrics *MetricsCollector
	tracing *TracingManager
	logger  *logger.Logger
}

// NewMonitoringMiddleware creates a new monitoring middleware. tracing may be
// nil, in which case no spans are started.
func NewMonitoringMiddleware(metrics *MetricsCollector, tracing *TracingManager, log *logger.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		tracing: tracing,
		logger:  log,
	}
}

// HTTPMiddleware assigns a request id, traces, times and logs every request
func (mm *MonitoringMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := logger.ContextWithRequestID(r.Context(), requestID)

		route := routeTemplate(r)
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		wrapper.Header().Set(RequestIDHeader, requestID)

		if mm.tracing != nil {
			ctx = mm.tracing.ExtractTraceContext(ctx, r.Header)
			spanCtx, span := mm.tracing.StartHTTPSpan(ctx, r.Method, route)
			defer span.End()
			ctx = spanCtx
			span.SetAttributes(
				attribute.String("user_agent.original", r.UserAgent()),
				attribute.String("request.id", requestID),
			)
			mm.tracing.InjectTraceContext(ctx, wrapper.Header())

			next.ServeHTTP(wrapper, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", wrapper.statusCode))
			if wrapper.statusCode >= 500 {
				span.SetStatus(codes.Error, http.StatusText(wrapper.statusCode))
			}
		} else {
			next.ServeHTTP(wrapper, r.WithContext(ctx))
		}

		duration := time.Since(start)
		if mm.metrics != nil {
			mm.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapper.statusCode), duration)
			if wrapper.statusCode >= 500 {
				mm.metrics.RecordSystemError("http_5xx", route)
			}
		}

		mm.logger.HTTPRequest(
			ctx,
			r.Method,
			r.URL.Path,
			r.UserAgent(),
			r.RemoteAddr,
			wrapper.statusCode,
			duration.Milliseconds(),
			map[string]interface{}{
				"bytes_written": wrapper.bytesWritten,
				"trace_id":      TraceIDFromContext(ctx),
				"span_id":       SpanIDFromContext(ctx),
			},
		)
	})
}

// routeTemplate returns the matched mux template so metrics do not explode
// on path parameters
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
