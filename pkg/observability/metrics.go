package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics (admin API)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Webhook delivery metrics
	WebhookDeliveriesTotal *prometheus.CounterVec
	WebhookAttemptsTotal   *prometheus.CounterVec
	WebhookAttemptDuration *prometheus.HistogramVec
	WebhookEndpoints       prometheus.Gauge
	DeliveryHistorySize    prometheus.Gauge
	DeliverySuccessRate    prometheus.Gauge

	// Circuit breaker metrics
	CircuitState            *prometheus.GaugeVec
	CircuitTransitionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// Attempt result labels
const (
	AttemptResultSuccess     = "success"
	AttemptResultHTTPError   = "http_error"
	AttemptResultTransport   = "transport_error"
	AttemptResultCircuitOpen = "circuit_open"
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saveit_http_requests_total",
				Help: "Total number of admin API requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saveit_http_request_duration_seconds",
				Help:    "Admin API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		WebhookDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saveit_webhook_deliveries_total",
				Help: "Completed webhook deliveries by terminal result",
			},
			[]string{"event_type", "result"},
		),
		WebhookAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saveit_webhook_attempts_total",
				Help: "Individual webhook delivery attempts by result",
			},
			[]string{"result"},
		),
		WebhookAttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saveit_webhook_attempt_duration_seconds",
				Help:    "Webhook attempt duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		WebhookEndpoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "saveit_webhook_endpoints",
				Help: "Number of registered webhook endpoints",
			},
		),
		DeliveryHistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "saveit_webhook_delivery_history_size",
				Help: "Number of delivery records currently retained",
			},
		),
		DeliverySuccessRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "saveit_webhook_delivery_success_rate",
				Help: "Ratio of successful deliveries over retained history",
			},
		),

		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saveit_circuit_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saveit_circuit_transitions_total",
				Help: "Circuit breaker state transitions",
			},
			[]string{"name", "from", "to"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhookDeliveriesTotal,
		m.WebhookAttemptsTotal,
		m.WebhookAttemptDuration,
		m.WebhookEndpoints,
		m.DeliveryHistorySize,
		m.DeliverySuccessRate,
		m.CircuitState,
		m.CircuitTransitionsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one admin API request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAttempt records one webhook delivery attempt
func (m *Metrics) ObserveAttempt(result string, duration time.Duration) {
	m.WebhookAttemptsTotal.WithLabelValues(result).Inc()
	m.WebhookAttemptDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveDelivery records a terminal delivery result
func (m *Metrics) ObserveDelivery(eventType string, success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	m.WebhookDeliveriesTotal.WithLabelValues(eventType, result).Inc()
}

// SetCircuitState records a breaker's current state. States map to 0=closed,
// 1=half-open, 2=open so dashboards can alert on value > 0.
func (m *Metrics) SetCircuitState(name string, state int) {
	m.CircuitState.WithLabelValues(name).Set(float64(state))
}
