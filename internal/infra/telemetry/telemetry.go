package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
)

// Metrics bundles the Prometheus collectors for the auth surface and the
// profile synchronization protocol.
type Metrics struct {
	loginOutcomes      *prometheus.CounterVec
	governorRejections prometheus.Counter
	rateLimitHits      *prometheus.CounterVec
	identityCount      prometheus.Gauge
	profileCount       prometheus.Gauge
	divergenceGap      prometheus.Gauge
	backfillRepaired   prometheus.Counter
}

// NewMetrics registers all collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		loginOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procura",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts partitioned by outcome",
		}, []string{"outcome"}),
		governorRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "procura",
			Subsystem: "auth",
			Name:      "governor_rejections_total",
			Help:      "Login submissions rejected locally during a cooldown",
		}),
		rateLimitHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "procura",
			Subsystem: "http",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the server-side rate limiter",
		}, []string{"rule"}),
		identityCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "procura",
			Subsystem: "sync",
			Name:      "identities",
			Help:      "Identity rows observed at the last divergence check",
		}),
		profileCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "procura",
			Subsystem: "sync",
			Name:      "profiles",
			Help:      "Profile rows observed at the last divergence check",
		}),
		divergenceGap: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "procura",
			Subsystem: "sync",
			Name:      "divergence",
			Help:      "Absolute difference between identity and profile counts",
		}),
		backfillRepaired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "procura",
			Subsystem: "sync",
			Name:      "backfill_repaired_total",
			Help:      "Profile rows created by backfill sweeps",
		}),
	}
}

// ObserveLogin records a login outcome: success, invalid, throttled, or error.
func (m *Metrics) ObserveLogin(outcome string) {
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGovernorRejection counts a locally throttled submission.
func (m *Metrics) ObserveGovernorRejection() {
	m.governorRejections.Inc()
}

// ObserveRateLimitRejection counts a server-side rate limit rejection.
func (m *Metrics) ObserveRateLimitRejection(rule string) {
	m.rateLimitHits.WithLabelValues(rule).Inc()
}

// SetDivergence implements port.SyncMetrics.
func (m *Metrics) SetDivergence(identities, profiles int64) {
	m.identityCount.Set(float64(identities))
	m.profileCount.Set(float64(profiles))
	gap := identities - profiles
	if gap < 0 {
		gap = -gap
	}
	m.divergenceGap.Set(float64(gap))
}

// AddBackfillRepaired implements port.SyncMetrics.
func (m *Metrics) AddBackfillRepaired(count int64) {
	if count > 0 {
		m.backfillRepaired.Add(float64(count))
	}
}

var _ port.SyncMetrics = (*Metrics)(nil)
