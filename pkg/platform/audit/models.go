package audit

import (
	"context"
	"time"
)

// Action names a recorded mutation. The catalogue is the source of truth for
// what the trail can contain; free-form action strings are not accepted by
// the publisher.
type Action string

const (
	ActionRecordCreated      Action = "credential_record_created"
	ActionApplicationStarted Action = "credential_application_started"
	ActionSubmitted          Action = "credential_submitted"
	ActionCleared            Action = "credential_cleared"
	ActionRejected           Action = "credential_rejected"
	ActionCancelled          Action = "credential_cancelled"
	ActionExpired            Action = "credential_expired"
)

var knownActions = map[Action]bool{
	ActionRecordCreated:      true,
	ActionApplicationStarted: true,
	ActionSubmitted:          true,
	ActionCleared:            true,
	ActionRejected:           true,
	ActionCancelled:          true,
	ActionExpired:            true,
}

// IsValid checks the action against the catalogue.
func (a Action) IsValid() bool {
	return knownActions[a]
}

// Event is one entry in the audit trail: who moved which record between
// which statuses, and when. Keep it transport-agnostic so stores and sinks
// can fan out.
type Event struct {
	Timestamp   time.Time
	Action      Action
	ActorID     string
	RecordID    string
	SubjectID   string
	OrgID       string
	BeforeState string
	AfterState  string
	Reason      string
	RequestID   string
}

// Store persists the trail. Append-only; entries are never updated or
// removed.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRecord(ctx context.Context, recordID string) ([]Event, error)
}
