package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PublisherMetrics tracks audit publishing health. Because the publisher is
// best-effort, the failure counter is the only visible sign of a broken
// trail and should be alerted on.
type PublisherMetrics struct {
	Appended     prometheus.Counter
	AppendFailed prometheus.Counter
}

// NewPublisherMetrics creates and registers the audit publisher metrics.
func NewPublisherMetrics() *PublisherMetrics {
	return &PublisherMetrics{
		Appended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_audit_events_appended_total",
			Help: "Total number of audit events appended to the trail",
		}),
		AppendFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_audit_events_failed_total",
			Help: "Total number of audit events dropped because the store append failed",
		}),
	}
}

func (m *PublisherMetrics) IncrementAppended() {
	m.Appended.Inc()
}

func (m *PublisherMetrics) IncrementAppendFailed() {
	m.AppendFailed.Inc()
}
