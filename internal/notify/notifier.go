// Package notify delivers credential lifecycle events to interested parties
// (rota planners, HR tooling, the family portal). Delivery is fire-and-forget:
// the engine never waits on or reacts to delivery outcomes.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// CredentialEvent describes a successful lifecycle transition.
type CredentialEvent struct {
	Kind       string     `json:"kind"`
	RecordID   string     `json:"record_id"`
	SubjectID  string     `json:"subject_id"`
	OrgID      string     `json:"org_id"`
	Status     string     `json:"status"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Notifier is the outbound sink. Implementations must not block on delivery
// guarantees; Notify returns once the event is handed off.
type Notifier interface {
	Notify(ctx context.Context, event CredentialEvent)
}

// LogNotifier writes events to the log. Default sink for development and for
// deployments without a broker.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event CredentialEvent) {
	n.logger.Info("credential event",
		"kind", event.Kind,
		"record_id", event.RecordID,
		"subject_id", event.SubjectID,
		"status", event.Status,
	)
}
