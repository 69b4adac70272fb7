package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Event dispatch metrics
	EventsProcessed         *prometheus.CounterVec
	EventsFailed            *prometheus.CounterVec
	EventProcessingDuration *prometheus.HistogramVec
	EventHandlerErrors      *prometheus.CounterVec
	EventRetries            *prometheus.CounterVec
	EventsRecovered         prometheus.Counter

	// Notification delivery metrics
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_processed_total",
				Help:      "Total number of events processed by type",
			},
			[]string{"event_type"},
		),
		EventsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_failed_total",
				Help:      "Total number of events that failed to dispatch by type",
			},
			[]string{"event_type"},
		),
		EventProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_processing_duration_seconds",
				Help:      "Event fan-out duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"event_type"},
		),
		EventHandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_handler_errors_total",
				Help:      "Total number of handler errors by event type and handler",
			},
			[]string{"event_type", "handler"},
		),
		EventRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_retries_total",
				Help:      "Total number of handler retry attempts by event type",
			},
			[]string{"event_type"},
		),
		EventsRecovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_recovered_total",
				Help:      "Total number of stored events re-dispatched by recovery",
			},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_deliveries_total",
				Help:      "Total number of notification deliveries by channel and status",
			},
			[]string{"channel", "status"},
		),
		DeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_delivery_duration_seconds",
				Help:      "Notification delivery duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"channel"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.EventsProcessed,
		m.EventsFailed,
		m.EventProcessingDuration,
		m.EventHandlerErrors,
		m.EventRetries,
		m.EventsRecovered,
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
	)

	return m
}

// EventProcessed implements the dispatcher's metrics hook.
func (m *Metrics) EventProcessed(eventType string, seconds float64) {
	m.EventsProcessed.WithLabelValues(eventType).Inc()
	m.EventProcessingDuration.WithLabelValues(eventType).Observe(seconds)
}

// EventFailed implements the dispatcher's metrics hook.
func (m *Metrics) EventFailed(eventType string) {
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// HandlerError implements the dispatcher's metrics hook.
func (m *Metrics) HandlerError(eventType, handler string) {
	m.EventHandlerErrors.WithLabelValues(eventType, handler).Inc()
}

// RetryAttempt implements the dispatcher's metrics hook.
func (m *Metrics) RetryAttempt(eventType string) {
	m.EventRetries.WithLabelValues(eventType).Inc()
}
