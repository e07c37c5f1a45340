package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Publisher writes audit events with best-effort semantics: a failed append
// is logged and counted but never propagated, so an audit outage cannot roll
// back the business transition it describes. The trail may have gaps under
// store failure; the failure counter is the signal to alert on.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *PublisherMetrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *PublisherMetrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a best-effort audit publisher.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and appends an event. The returned error covers malformed
// events only; store failures are swallowed after logging.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if !event.Action.IsValid() {
		return fmt.Errorf("unknown audit action %q", event.Action)
	}
	if event.RecordID == "" {
		return fmt.Errorf("audit event requires RecordID")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("audit append failed",
			"action", event.Action,
			"record_id", event.RecordID,
			"error", err,
		)
		if p.metrics != nil {
			p.metrics.IncrementAppendFailed()
		}
		return nil
	}
	if p.metrics != nil {
		p.metrics.IncrementAppended()
	}
	return nil
}
