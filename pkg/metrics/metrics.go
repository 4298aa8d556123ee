// Package metrics exposes Prometheus collectors for the notification
// pipeline: live subscriptions, bus deliveries, created notifications and
// ingested messages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notifyhub"

// Metrics holds the collectors and the registry they are registered with.
// It implements broadcast.Observer, notifications.Recorder and
// ingest.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	subscribers prometheus.Gauge
	published   prometheus.Counter
	deliveries  *prometheus.CounterVec
	created     *prometheus.CounterVec
	ingested    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Live bus subscriptions.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Events published on the bus.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "deliveries_total",
			Help:      "Per-subscriber delivery outcomes.",
		}, []string{"result"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications stored, by type.",
		}, []string{"type"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Ingested messages, by outcome.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.subscribers,
		m.published,
		m.deliveries,
		m.created,
		m.ingested,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Subscribed()   { m.subscribers.Inc() }
func (m *Metrics) Unsubscribed() { m.subscribers.Dec() }
func (m *Metrics) Dropped()      { m.deliveries.WithLabelValues("dropped").Inc() }

func (m *Metrics) Published(delivered, failed int) {
	m.published.Inc()
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) NotificationCreated(typ string) {
	m.created.WithLabelValues(typ).Inc()
}

func (m *Metrics) MessageIngested(result string) {
	m.ingested.WithLabelValues(result).Inc()
}
