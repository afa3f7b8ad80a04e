package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"dispatch-service/internal/models"
)

// Metrics groups the dispatch collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	alertsDispatched *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	responsesRouted  *prometheus.CounterVec
	connectedParties prometheus.Gauge
	dispatchLatency  prometheus.Histogram
}

// New creates the collectors and registers them on reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		alertsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_dispatched_total",
				Help: "Number of alert requests processed, by outcome",
			},
			[]string{"outcome"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_deliveries_total",
				Help: "Per-recipient delivery attempts, by channel and result",
			},
			[]string{"channel", "result"},
		),
		responsesRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_responses_routed_total",
				Help: "Recipient responses routed back to requesters, by channel",
			},
			[]string{"channel"},
		),
		connectedParties: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "connected_parties",
				Help: "Parties currently present in the connection registry",
			},
		),
		dispatchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alert_dispatch_duration_seconds",
				Help:    "Time from alert receipt to dispatch summary",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(m.alertsDispatched, m.deliveries, m.responsesRouted, m.connectedParties, m.dispatchLatency)
	return m
}

// ObserveDispatch records one finished dispatch.
func (m *Metrics) ObserveDispatch(summary models.DispatchSummary, seconds float64) {
	if m == nil {
		return
	}
	m.alertsDispatched.WithLabelValues("dispatched").Inc()
	m.dispatchLatency.Observe(seconds)
	for _, d := range summary.Deliveries {
		result := "delivered"
		if !d.Delivered {
			result = "failed"
		}
		m.deliveries.WithLabelValues(string(d.Channel), result).Inc()
	}
}

// ObserveRejected records an alert rejected during validation.
func (m *Metrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.alertsDispatched.WithLabelValues("rejected").Inc()
}

// ObserveResponse records how a response was routed.
func (m *Metrics) ObserveResponse(channel models.Channel) {
	if m == nil {
		return
	}
	m.responsesRouted.WithLabelValues(string(channel)).Inc()
}

// SetConnected sets the connected parties gauge.
func (m *Metrics) SetConnected(n int) {
	if m == nil {
		return
	}
	m.connectedParties.Set(float64(n))
}
