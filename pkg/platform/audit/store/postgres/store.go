package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "safeguard/pkg/platform/audit"
)

// Store persists the audit trail in PostgreSQL. Append-only: there is no
// update or delete path, matching the retention expectations for records of
// safety-critical checks.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the backing table. Invoked by integration tests and by
// deployments that manage schema in-process.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	action TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	record_id TEXT NOT NULL,
	subject_id TEXT NOT NULL DEFAULT '',
	org_id TEXT NOT NULL DEFAULT '',
	before_state TEXT NOT NULL DEFAULT '',
	after_state TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_record ON audit_events (record_id, occurred_at);
`

// EnsureSchema applies the table definition idempotently.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, occurred_at, action, actor_id, record_id, subject_id, org_id,
			before_state, after_state, reason, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.Action,
		event.ActorID,
		event.RecordID,
		event.SubjectID,
		event.OrgID,
		event.BeforeState,
		event.AfterState,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByRecord(ctx context.Context, recordID string) ([]audit.Event, error) {
	query := `
		SELECT occurred_at, action, actor_id, record_id, subject_id, org_id,
			before_state, after_state, reason, request_id
		FROM audit_events
		WHERE record_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var event audit.Event
		if err := rows.Scan(
			&event.Timestamp, &event.Action, &event.ActorID,
			&event.RecordID, &event.SubjectID, &event.OrgID,
			&event.BeforeState, &event.AfterState, &event.Reason, &event.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
