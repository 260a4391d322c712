package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

// Metrics holds the service collectors on a private registry so tests can build isolated instances.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	IntentsCreated  *prometheus.CounterVec
	WebhookOutcomes *prometheus.CounterVec
	PaymentEvents   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Payment gateway calls by operation and result.",
		}, []string{"operation", "result"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of payment gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		IntentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intents_created_total",
			Help:      "Payment intents created by payment method.",
		}, []string{"method"}),
		WebhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_outcomes_total",
			Help:      "Webhook notifications by HTTP status and outcome message.",
		}, []string{"status", "outcome"}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Domain events dispatched for payments.",
		}, []string{"event_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GatewayRequests,
		m.GatewayDuration,
		m.IntentsCreated,
		m.WebhookOutcomes,
		m.PaymentEvents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveGatewayCall(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.GatewayRequests.WithLabelValues(operation, result).Inc()
	m.GatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IntentCreated(method string) {
	if m == nil {
		return
	}
	m.IntentsCreated.WithLabelValues(method).Inc()
}

func (m *Metrics) WebhookOutcome(status, outcome string) {
	if m == nil {
		return
	}
	m.WebhookOutcomes.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) PaymentEvent(eventType string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(eventType).Inc()
}
