package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/autoroute/pkg/autoroute"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "autoroute").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for action duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "autoroute",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects per-action Prometheus metrics:
//   - autoroute_requests_total: requests by route, action, method and status
//   - autoroute_request_duration_seconds: action latency by route and action
//   - autoroute_request_errors_total: failed requests by route, action and error type
//   - autoroute_requests_in_flight: requests currently being served
//   - autoroute_routes: registered routes by verb
//
// Labels use the controller's base route, never the request path, so
// cardinality is bounded by the number of controllers.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	inFlight        prometheus.Gauge
	routes          *prometheus.GaugeVec
}

// NewMetrics registers the metrics with the configured registry. Registering
// twice with the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of controller action requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "action", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Controller action duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "action"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of failed controller action requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "action", "error_type"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of controller action requests being served",
			ConstLabels: config.ConstLabels,
		}),

		routes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Number of registered controller actions by verb",
			ConstLabels: config.ConstLabels,
		}, []string{"verb"}),
	}
}

// Instrument returns an autoroute.Instrument recording request count,
// duration and in-flight requests for every action.
func (m *Metrics) Instrument() autoroute.Instrument {
	return func(route autoroute.ActionRoute, next http.Handler) http.Handler {
		m.routes.WithLabelValues(string(route.Verb)).Inc()
		duration := m.requestDuration.WithLabelValues(route.Route, route.Action)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			duration.Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(route.Route, route.Action, r.Method, strconv.Itoa(rec.status)).Inc()
		})
	}
}

// ErrorHandler wraps next, counting every error by category before next
// writes the response.
func (m *Metrics) ErrorHandler(next autoroute.ErrorHandler) autoroute.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		route, action := "unknown", "unknown"
		if info, ok := autoroute.InfoFromContext(r.Context()); ok {
			route, action = info.Route, info.Action
		}
		m.requestErrors.WithLabelValues(route, action, categorizeError(err)).Inc()
		next(w, r, err)
	}
}

// Options returns the autoroute options wiring m into a build. errorHandler
// is the handler errors are passed on to; nil means the default.
func (m *Metrics) Options(errorHandler autoroute.ErrorHandler) []autoroute.Option {
	if errorHandler == nil {
		errorHandler = autoroute.DefaultErrorHandler(nil)
	}
	return []autoroute.Option{
		autoroute.WithInstrument(m.Instrument()),
		autoroute.WithErrorHandler(m.ErrorHandler(errorHandler)),
	}
}

// categorizeError returns a category for the error type.
// This prevents high-cardinality labels from error messages.
func categorizeError(err error) string {
	var pe *autoroute.PanicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	switch autoroute.StatusOf(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "validation"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusTooManyRequests:
		return "rate_limit"
	case http.StatusNotImplemented:
		return "not_implemented"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
