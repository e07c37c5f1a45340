package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"safeguard/internal/credential/models"
	id "safeguard/pkg/domain"
	"safeguard/pkg/platform/sentinel"
)

// Postgres persists credential records in PostgreSQL. Optimistic concurrency
// rides on the version column: UPDATE ... WHERE version = $expected affects
// zero rows when another transition won the race.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema creates the backing table. Invoked by integration tests and by
// deployments that manage schema in-process rather than via migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS credential_records (
	id UUID PRIMARY KEY,
	subject_id UUID NOT NULL,
	org_id UUID NOT NULL,
	credential_type TEXT NOT NULL,
	check_level TEXT NOT NULL,
	status TEXT NOT NULL,
	reference TEXT NOT NULL DEFAULT '',
	external_reference TEXT NOT NULL DEFAULT '',
	certificate_number TEXT NOT NULL DEFAULT '',
	rejection_reason TEXT NOT NULL DEFAULT '',
	cancellation_reason TEXT NOT NULL DEFAULT '',
	vulnerable_adult_role BOOLEAN NOT NULL DEFAULT FALSE,
	child_facing_role BOOLEAN NOT NULL DEFAULT FALSE,
	application_date TIMESTAMPTZ,
	submission_date TIMESTAMPTZ,
	completion_date TIMESTAMPTZ,
	expiry_date TIMESTAMPTZ,
	renewal_required BOOLEAN NOT NULL DEFAULT FALSE,
	grace_period_days INT NOT NULL DEFAULT 0,
	next_renewal_date TIMESTAMPTZ,
	next_audit_date TIMESTAMPTZ,
	ce_required BOOLEAN NOT NULL DEFAULT FALSE,
	ce_complete BOOLEAN NOT NULL DEFAULT FALSE,
	version BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credential_records_subject ON credential_records (subject_id);
CREATE INDEX IF NOT EXISTS idx_credential_records_org ON credential_records (org_id, created_at);
CREATE INDEX IF NOT EXISTS idx_credential_records_expiry ON credential_records (expiry_date) WHERE expiry_date IS NOT NULL;
`

// EnsureSchema applies the table definition idempotently.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure credential schema: %w", err)
	}
	return nil
}

const recordColumns = `
	id, subject_id, org_id, credential_type, check_level, status,
	reference, external_reference, certificate_number, rejection_reason, cancellation_reason,
	vulnerable_adult_role, child_facing_role,
	application_date, submission_date, completion_date, expiry_date,
	renewal_required, grace_period_days, next_renewal_date,
	next_audit_date, ce_required, ce_complete,
	version, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, record *models.CredentialRecord) error {
	record.Version = 1
	query := `
		INSERT INTO credential_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`
	_, err := s.db.ExecContext(ctx, query, recordArgs(record)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential record: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, recordID id.RecordID) (*models.CredentialRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM credential_records WHERE id = $1`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential record: %w", err)
	}
	return record, nil
}

func (s *Postgres) Save(ctx context.Context, record *models.CredentialRecord, expectedVersion int64) error {
	query := `
		UPDATE credential_records SET
			status = $2,
			reference = $3,
			external_reference = $4,
			certificate_number = $5,
			rejection_reason = $6,
			cancellation_reason = $7,
			vulnerable_adult_role = $8,
			child_facing_role = $9,
			application_date = $10,
			submission_date = $11,
			completion_date = $12,
			expiry_date = $13,
			renewal_required = $14,
			grace_period_days = $15,
			next_renewal_date = $16,
			next_audit_date = $17,
			ce_required = $18,
			ce_complete = $19,
			version = version + 1,
			updated_at = $20
		WHERE id = $1 AND version = $21
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.Status,
		record.Reference,
		record.ExternalReference,
		record.CertificateNumber,
		record.RejectionReason,
		record.CancellationReason,
		record.Roles.VulnerableAdult,
		record.Roles.ChildFacing,
		nullTime(record.ApplicationDate),
		nullTime(record.SubmissionDate),
		nullTime(record.CompletionDate),
		nullTime(record.ExpiryDate),
		record.RenewalRequired,
		record.GracePeriodDays,
		nullTime(record.NextRenewalDate),
		nullTime(record.NextAuditDate),
		record.ContinuingEducationRequired,
		record.ContinuingEducationComplete,
		record.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save credential record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save credential record: %w", err)
	}
	if affected == 0 {
		// Either the record vanished or the version moved. Distinguish for
		// the retry path: a conflict is retryable, a missing record is not.
		if _, findErr := s.FindByID(ctx, record.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConcurrentModification
	}
	record.Version = expectedVersion + 1
	return nil
}

func (s *Postgres) ListBySubject(ctx context.Context, subjectID id.SubjectID, filter ListFilter) ([]*models.CredentialRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM credential_records WHERE subject_id = $1`
	args := []any{uuid.UUID(subjectID)}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY created_at, id`
	return s.queryRecords(ctx, query, args)
}

func (s *Postgres) ListByOrg(ctx context.Context, orgID id.OrgID, filter ListFilter, page Page) ([]*models.CredentialRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM credential_records WHERE org_id = $1`
	args := []any{uuid.UUID(orgID)}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY created_at, id`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	return s.queryRecords(ctx, query, args)
}

func appendFilter(query string, args []any, filter ListFilter) (string, []any) {
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND credential_type = $%d`, len(args))
	}
	return query, args
}

func (s *Postgres) queryRecords(ctx context.Context, query string, args []any) ([]*models.CredentialRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query credential records: %w", err)
	}
	defer rows.Close()

	var out []*models.CredentialRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential records: %w", err)
	}
	return out, nil
}

func recordArgs(record *models.CredentialRecord) []any {
	return []any{
		uuid.UUID(record.ID),
		uuid.UUID(record.SubjectID),
		uuid.UUID(record.OrgID),
		record.Type,
		record.CheckLevel,
		record.Status,
		record.Reference,
		record.ExternalReference,
		record.CertificateNumber,
		record.RejectionReason,
		record.CancellationReason,
		record.Roles.VulnerableAdult,
		record.Roles.ChildFacing,
		nullTime(record.ApplicationDate),
		nullTime(record.SubmissionDate),
		nullTime(record.CompletionDate),
		nullTime(record.ExpiryDate),
		record.RenewalRequired,
		record.GracePeriodDays,
		nullTime(record.NextRenewalDate),
		nullTime(record.NextAuditDate),
		record.ContinuingEducationRequired,
		record.ContinuingEducationComplete,
		record.Version,
		record.CreatedAt,
		record.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.CredentialRecord, error) {
	var (
		record                          models.CredentialRecord
		recordID, subjectID, orgID      uuid.UUID
		appDate, subDate, compDate      sql.NullTime
		expDate, renewalDate, auditDate sql.NullTime
	)
	err := row.Scan(
		&recordID, &subjectID, &orgID,
		&record.Type, &record.CheckLevel, &record.Status,
		&record.Reference, &record.ExternalReference, &record.CertificateNumber,
		&record.RejectionReason, &record.CancellationReason,
		&record.Roles.VulnerableAdult, &record.Roles.ChildFacing,
		&appDate, &subDate, &compDate, &expDate,
		&record.RenewalRequired, &record.GracePeriodDays, &renewalDate,
		&auditDate, &record.ContinuingEducationRequired, &record.ContinuingEducationComplete,
		&record.Version, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.RecordID(recordID)
	record.SubjectID = id.SubjectID(subjectID)
	record.OrgID = id.OrgID(orgID)
	record.ApplicationDate = timePtr(appDate)
	record.SubmissionDate = timePtr(subDate)
	record.CompletionDate = timePtr(compDate)
	record.ExpiryDate = timePtr(expDate)
	record.NextRenewalDate = timePtr(renewalDate)
	record.NextAuditDate = timePtr(auditDate)
	return &record, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
