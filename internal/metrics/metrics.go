package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's business counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	alertsCreated     prometheus.Counter
	alertTransitions  *prometheus.CounterVec
	channelSends      *prometheus.CounterVec
	contactOutcomes   *prometheus.CounterVec
	concernsRaised    *prometheus.CounterVec
	realtimePublishes *prometheus.CounterVec
	realtimeSessions  prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		alertsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Emergency alerts created",
		}),
		alertTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_transitions_total",
			Help: "Alert status transitions by target status",
		}, []string{"status"}),
		channelSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "channel_sends_total",
			Help: "Channel send attempts by channel and result",
		}, []string{"channel", "result"}),
		contactOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_outcomes_total",
			Help: "Per-contact notification outcomes",
		}, []string{"status"}),
		concernsRaised: f.NewCounterVec(prometheus.CounterOpts{
			Name: "health_concerns_total",
			Help: "Health concerns raised by kind",
		}, []string{"kind"}),
		realtimePublishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_publishes_total",
			Help: "Realtime events published by type",
		}, []string{"type"}),
		realtimeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_sessions",
			Help: "Currently joined realtime sessions",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) AlertCreated() {
	if m == nil {
		return
	}
	m.alertsCreated.Inc()
}

func (m *Metrics) AlertTransitioned(status string) {
	if m == nil {
		return
	}
	m.alertTransitions.WithLabelValues(status).Inc()
}

// ChannelSend records one attempt; result is "sent" or a failure reason.
func (m *Metrics) ChannelSend(channel, result string) {
	if m == nil {
		return
	}
	m.channelSends.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) ContactOutcome(status string) {
	if m == nil {
		return
	}
	m.contactOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) ConcernRaised(kind string) {
	if m == nil {
		return
	}
	m.concernsRaised.WithLabelValues(kind).Inc()
}

func (m *Metrics) RealtimePublished(eventType string) {
	if m == nil {
		return
	}
	m.realtimePublishes.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SessionsChanged(delta float64) {
	if m == nil {
		return
	}
	m.realtimeSessions.Add(delta)
}
