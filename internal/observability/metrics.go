package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing, so tests can run without touching
// the global registry.
type Metrics struct {
	Turns          *prometheus.CounterVec
	GateDecisions  *prometheus.CounterVec
	PrefsRetries   *prometheus.CounterVec
	OracleErrors   *prometheus.CounterVec
	TurnLatency    prometheus.Histogram
	CachedChannels prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by outcome.",
		}, []string{"outcome"}),
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Reply gate decisions by verdict.",
		}, []string{"verdict"}),
		PrefsRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefs_retries_total",
			Help:      "Preference resolution retries by scope.",
		}, []string{"scope"}),
		OracleErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_errors_total",
			Help:      "Oracle call errors by caller.",
		}, []string{"caller"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn latency in milliseconds.",
			Buckets:   []float64{100, 300, 700, 1500, 3000, 7000, 15000, 30000, 60000},
		}),
		CachedChannels: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_channels",
			Help:      "Channels currently held in the context cache.",
		}),
	}
}

func (m *Metrics) TurnOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GateDecision(verdict string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(verdict).Inc()
}

func (m *Metrics) PrefsRetry(scope string) {
	if m == nil {
		return
	}
	m.PrefsRetries.WithLabelValues(scope).Inc()
}

func (m *Metrics) OracleError(caller string) {
	if m == nil {
		return
	}
	m.OracleErrors.WithLabelValues(caller).Inc()
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) SetCachedChannels(n int) {
	if m == nil {
		return
	}
	m.CachedChannels.Set(float64(n))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
