package store

import (
	"context"

	"safeguard/internal/credential/models"
	id "safeguard/pkg/domain"
)

// ListFilter narrows queries over a subject's or organization's records.
// Zero values mean "no constraint".
type ListFilter struct {
	Status models.CredentialStatus
	Type   models.CredentialType
}

// Page bounds a scan. Offset-based pagination is enough here: sweeps walk the
// whole population in order and have no cursor-stability requirement.
type Page struct {
	Limit  int
	Offset int
}

// Store is interface-driven to keep the lifecycle logic testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
//
// Save enforces optimistic concurrency: expectedVersion must match the stored
// version or sentinel.ErrConcurrentModification is returned and nothing is
// written. On success the stored version is bumped. Records are append-only
// at the business level; there is intentionally no Delete.
type Store interface {
	Create(ctx context.Context, record *models.CredentialRecord) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.CredentialRecord, error)
	Save(ctx context.Context, record *models.CredentialRecord, expectedVersion int64) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID, filter ListFilter) ([]*models.CredentialRecord, error)
	ListByOrg(ctx context.Context, orgID id.OrgID, filter ListFilter, page Page) ([]*models.CredentialRecord, error)
}
