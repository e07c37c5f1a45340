package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the credential engine.
type Metrics struct {
	TransitionsApplied  *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec
	ConflictRetries     prometheus.Counter
	SweepsRun           prometheus.Counter
	SweepDuration       prometheus.Histogram
	SnapshotCacheHits   prometheus.Counter
	SnapshotCacheMisses prometheus.Counter
}

// New creates and registers all credential engine metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_credential_transitions_applied_total",
			Help: "Successful lifecycle transitions by event kind",
		}, []string{"event"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_credential_transitions_rejected_total",
			Help: "Rejected lifecycle transitions by error code",
		}, []string{"code"}),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_credential_conflict_retries_total",
			Help: "Optimistic-concurrency conflicts that triggered a re-validating retry",
		}),
		SweepsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_compliance_sweeps_total",
			Help: "Compliance sweeps executed",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeguard_compliance_sweep_duration_seconds",
			Help:    "Wall time per compliance sweep",
			Buckets: prometheus.DefBuckets,
		}),
		SnapshotCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_snapshot_cache_hits_total",
			Help: "Compliance snapshots served from the Redis cache",
		}),
		SnapshotCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_snapshot_cache_misses_total",
			Help: "Compliance snapshot cache lookups that missed",
		}),
	}
}

func (m *Metrics) IncrementTransitionApplied(event string) {
	m.TransitionsApplied.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrementTransitionRejected(code string) {
	m.TransitionsRejected.WithLabelValues(code).Inc()
}
