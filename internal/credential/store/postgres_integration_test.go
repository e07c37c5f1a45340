//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeguard/internal/credential/models"
	"safeguard/internal/credential/store"
	id "safeguard/pkg/domain"
	"safeguard/pkg/platform/sentinel"
	"safeguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "credential_records"))
}

func newStoredRecord(s *PostgresStoreSuite, subjectID id.SubjectID, orgID id.OrgID) *models.CredentialRecord {
	record, err := models.NewCredentialRecord(
		id.RecordID(uuid.New()), subjectID, orgID,
		models.TypeCriminalRecordCheck, models.LevelEnhanced,
		models.RoleFlags{VulnerableAdult: true}, time.Now().UTC().Truncate(time.Microsecond),
	)
	s.Require().NoError(err)
	return record
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	record := newStoredRecord(s, id.SubjectID(uuid.New()), id.OrgID(uuid.New()))
	renewal := time.Now().UTC().AddDate(0, 11, 0).Truncate(time.Microsecond)
	record.RenewalRequired = true
	record.NextRenewalDate = &renewal

	s.Require().NoError(s.store.Create(ctx, record))
	s.Equal(int64(1), record.Version)

	found, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.Equal(record.SubjectID, found.SubjectID)
	s.Equal(models.TypeCriminalRecordCheck, found.Type)
	s.Equal(models.LevelEnhanced, found.CheckLevel)
	s.Equal(models.StatusNotStarted, found.Status)
	s.True(found.Roles.VulnerableAdult)
	s.True(found.RenewalRequired)
	s.Require().NotNil(found.NextRenewalDate)
	s.True(renewal.Equal(*found.NextRenewalDate))
	s.Nil(found.ExpiryDate)

	_, err = s.store.FindByID(ctx, id.RecordID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	record := newStoredRecord(s, id.SubjectID(uuid.New()), id.OrgID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, record))
	s.ErrorIs(s.store.Create(ctx, record), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestSaveVersionCheck() {
	ctx := context.Background()
	record := newStoredRecord(s, id.SubjectID(uuid.New()), id.OrgID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, record))

	now := time.Now().UTC().Truncate(time.Microsecond)
	record.ApplyStartApplication("ref-1", now)
	s.Require().NoError(s.store.Save(ctx, record, 1))
	s.Equal(int64(2), record.Version)

	found, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApplicationSubmitted, found.Status)
	s.Equal("ref-1", found.Reference)
	s.Equal(int64(2), found.Version)

	// Stale writer still holding version 1.
	s.ErrorIs(s.store.Save(ctx, record, 1), sentinel.ErrConcurrentModification)

	missing := newStoredRecord(s, record.SubjectID, record.OrgID)
	s.ErrorIs(s.store.Save(ctx, missing, 1), sentinel.ErrNotFound)
}

// TestConcurrentSave verifies that racing transitions on one record resolve
// to exactly one winner under the version check.
func (s *PostgresStoreSuite) TestConcurrentSave() {
	ctx := context.Background()
	record := newStoredRecord(s, id.SubjectID(uuid.New()), id.OrgID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, record))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempt := record.Clone()
			attempt.ApplyStartApplication("ref-race", time.Now().UTC())
			err := s.store.Save(ctx, attempt, 1)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConcurrentModification) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one save should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	found, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
}

func (s *PostgresStoreSuite) TestListBySubjectAndOrg() {
	ctx := context.Background()
	subjectID := id.SubjectID(uuid.New())
	orgID := id.OrgID(uuid.New())

	first := newStoredRecord(s, subjectID, orgID)
	second := newStoredRecord(s, subjectID, orgID)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := newStoredRecord(s, id.SubjectID(uuid.New()), orgID)
	other.CreatedAt = first.CreatedAt.Add(2 * time.Second)
	for _, r := range []*models.CredentialRecord{first, second, other} {
		s.Require().NoError(s.store.Create(ctx, r))
	}

	records, err := s.store.ListBySubject(ctx, subjectID, store.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(first.ID, records[0].ID)
	s.Equal(second.ID, records[1].ID)

	records, err = s.store.ListBySubject(ctx, subjectID, store.ListFilter{Status: models.StatusCleared})
	s.Require().NoError(err)
	s.Empty(records)

	records, err = s.store.ListByOrg(ctx, orgID, store.ListFilter{}, store.Page{Limit: 2})
	s.Require().NoError(err)
	s.Len(records, 2)

	records, err = s.store.ListByOrg(ctx, orgID, store.ListFilter{}, store.Page{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(other.ID, records[0].ID)
}
