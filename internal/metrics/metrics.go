// Package metrics exposes the engine's Prometheus counters on a private
// registry so tests and the /metrics endpoint do not share global state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "aygentx"

type Metrics struct {
	registry *prometheus.Registry

	creditDebits     *prometheus.CounterVec
	creditRefunds    *prometheus.CounterVec
	creditsPurchased prometheus.Counter
	externalFailures *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	persistQueued    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		creditDebits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_debits_total",
			Help:      "Credits debited, by operation.",
		}, []string{"operation"}),
		creditRefunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_refunds_total",
			Help:      "Credits refunded after failed operations, by operation.",
		}, []string{"operation"}),
		creditsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_purchased_total",
			Help:      "Credits granted by confirmed purchases.",
		}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_call_failures_total",
			Help:      "Failed calls to AI and social providers, by provider and kind.",
		}, []string{"provider", "kind"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries, by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
		persistQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_persist_queued_total",
			Help:      "Generated contents handed to the background persist queue.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.creditDebits,
		m.creditRefunds,
		m.creditsPurchased,
		m.externalFailures,
		m.webhookEvents,
		m.persistQueued,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CreditDebited(operation string, amount int64) {
	m.creditDebits.WithLabelValues(operation).Add(float64(amount))
}

func (m *Metrics) CreditRefunded(operation string, amount int64) {
	m.creditRefunds.WithLabelValues(operation).Add(float64(amount))
}

func (m *Metrics) CreditsPurchased(amount int64) {
	m.creditsPurchased.Add(float64(amount))
}

func (m *Metrics) ExternalFailure(provider, kind string) {
	m.externalFailures.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) WebhookEvent(gateway, outcome string) {
	m.webhookEvents.WithLabelValues(gateway, outcome).Inc()
}

func (m *Metrics) PersistQueued() {
	m.persistQueued.Inc()
}
