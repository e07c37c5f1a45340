package store

import (
	"context"
	"sort"
	"sync"

	"safeguard/internal/credential/models"
	id "safeguard/pkg/domain"
	"safeguard/pkg/platform/sentinel"
)

// InMemory keeps records in a map guarded by a RWMutex. It favors clarity
// over performance and backs unit tests and local development.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.CredentialRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.CredentialRecord)}
}

func (s *InMemory) Create(_ context.Context, record *models.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := record.Clone()
	stored.Version = 1
	s.records[record.ID] = stored
	record.Version = stored.Version
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.RecordID) (*models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

// Save applies the optimistic-version check under the write lock so two
// racing transitions on one record resolve to exactly one winner.
func (s *InMemory) Save(_ context.Context, record *models.CredentialRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConcurrentModification
	}
	stored := record.Clone()
	stored.Version = expectedVersion + 1
	s.records[record.ID] = stored
	record.Version = stored.Version
	return nil
}

func (s *InMemory) ListBySubject(_ context.Context, subjectID id.SubjectID, filter ListFilter) ([]*models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CredentialRecord
	for _, record := range s.records {
		if record.SubjectID != subjectID || !matches(record, filter) {
			continue
		}
		out = append(out, record.Clone())
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListByOrg(_ context.Context, orgID id.OrgID, filter ListFilter, page Page) ([]*models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*models.CredentialRecord
	for _, record := range s.records {
		if record.OrgID != orgID || !matches(record, filter) {
			continue
		}
		all = append(all, record.Clone())
	}
	sortByCreation(all)

	if page.Offset >= len(all) {
		return nil, nil
	}
	all = all[page.Offset:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all, nil
}

func matches(record *models.CredentialRecord, filter ListFilter) bool {
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	if filter.Type != "" && record.Type != filter.Type {
		return false
	}
	return true
}

// sortByCreation gives deterministic listings, with the record ID as a
// tiebreak for records created in the same instant.
func sortByCreation(records []*models.CredentialRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
