package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_sos"

// Metrics holds the Prometheus counters, histograms, and gauges for classification and dispatch.
type Metrics struct {
	Classifications       *prometheus.CounterVec // labels: level={SAFE,DEPRESSION,STORM,CYCLONE}
	ClassifierUnavailable prometheus.Counter

	// Dispatch metrics.
	Dispatches        *prometheus.CounterVec   // labels: result={dispatched,no_recipients,cancelled}
	RecipientOutcomes *prometheus.CounterVec   // labels: outcome={delivered,simulated,failed}
	ChannelAttempts   *prometheus.CounterVec   // labels: channel, result={success,auth,recipient_rejected,transport,unknown}
	VoiceFailures     *prometheus.CounterVec   // labels: channel
	DispatchDuration  prometheus.Histogram
	SimulationMode    prometheus.Gauge
	AuditPublishFails prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: method={forward,reverse}, result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics registered with reg. The operator CLI
// uses a private registry since nothing scrapes it.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()

	reg.MustRegister(
		m.Classifications,
		m.ClassifierUnavailable,
		m.Dispatches,
		m.RecipientOutcomes,
		m.ChannelAttempts,
		m.VoiceFailures,
		m.DispatchDuration,
		m.SimulationMode,
		m.AuditPublishFails,
		m.GeocodeRequests,
		m.GeocodeCache,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Risk classifications by resulting level.",
		}, []string{"level"}),
		ClassifierUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_unavailable_total",
			Help:      "Requests rejected because no risk model was available.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "SOS dispatch invocations by result.",
		}, []string{"result"}),
		RecipientOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipient_outcomes_total",
			Help:      "Per-recipient dispatch outcomes.",
		}, []string{"outcome"}),
		ChannelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_attempts_total",
			Help:      "Text delivery attempts per provider account by result.",
		}, []string{"channel", "result"}),
		VoiceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_failures_total",
			Help:      "Best-effort voice calls that failed after a successful text.",
		}, []string{"channel"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of a complete dispatch across all recipients.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SimulationMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_mode",
			Help:      "1 when no provider credentials are configured and dispatch is simulated.",
		}),
		AuditPublishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_publish_failures_total",
			Help:      "Dispatch reports that could not be published to the audit topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
	}
}
