package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeguard/internal/credential/classify"
	"safeguard/internal/credential/models"
	"safeguard/internal/credential/service"
	"safeguard/internal/credential/store"
	id "safeguard/pkg/domain"
	"safeguard/pkg/requestcontext"
)

type fakeCache struct {
	snapshots map[id.OrgID]ComplianceSnapshot
	puts      int
	gets      int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[id.OrgID]ComplianceSnapshot)}
}

func (c *fakeCache) Get(_ context.Context, orgID id.OrgID) (ComplianceSnapshot, bool, error) {
	c.gets++
	snapshot, ok := c.snapshots[orgID]
	return snapshot, ok, nil
}

func (c *fakeCache) Put(_ context.Context, orgID id.OrgID, snapshot ComplianceSnapshot) error {
	c.puts++
	c.snapshots[orgID] = snapshot
	return nil
}

type SweepSuite struct {
	suite.Suite

	records *store.InMemory
	service *service.Service
	cache   *fakeCache
	sweep   *Sweep
	orgID   id.OrgID
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.records = store.NewInMemory()
	s.service = service.New(s.records)
	s.cache = newFakeCache()
	s.sweep = NewSweep(s.records, s.service, WithCache(s.cache), WithPageSize(2))
	s.orgID = id.OrgID(uuid.New())
}

// clearedAt walks a fresh record to cleared at the given time. A basic
// criminal record check is valid for six months from completion.
func (s *SweepSuite) clearedAt(completed time.Time) *models.CredentialRecord {
	ctx := requestcontext.WithTime(context.Background(), completed)
	record, err := s.service.CreateRecord(ctx, service.CreateParams{
		SubjectID:  id.SubjectID(uuid.New()),
		OrgID:      s.orgID,
		Type:       models.TypeCriminalRecordCheck,
		CheckLevel: models.LevelBasic,
	})
	s.Require().NoError(err)

	for _, cmd := range []service.Command{
		service.StartApplication{Reference: "ref-1"},
		service.Submit{ExternalReference: "ext-1"},
		service.Complete{CertificateNumber: "cert-1", Outcome: models.OutcomeCleared},
	} {
		record, err = s.service.Apply(ctx, record.ID, cmd)
		s.Require().NoError(err)
	}
	return record
}

func (s *SweepSuite) TestRunExpiresLapsedRecords() {
	completed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lapsed := s.clearedAt(completed)
	current := s.clearedAt(completed.AddDate(0, 5, 0))

	// Eight months on: the first record's six-month validity has run out.
	now := completed.AddDate(0, 8, 0)
	ctx := requestcontext.WithTime(context.Background(), now)

	breakdown, err := s.sweep.Run(ctx, s.orgID)
	s.Require().NoError(err)

	s.Equal(2, breakdown.Total)
	s.Equal(1, breakdown.ByStatus[models.StatusExpired])
	s.Equal(1, breakdown.ByStatus[models.StatusCleared])
	s.InDelta(0.5, breakdown.ComplianceRate, 1e-9)
	s.Equal(1, breakdown.ByPriority[classify.PriorityCritical])
	s.Equal(1, breakdown.ByPriority[classify.PriorityLow])

	stored, err := s.records.FindByID(ctx, lapsed.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, stored.Status)

	stored, err = s.records.FindByID(ctx, current.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCleared, stored.Status)
}

func (s *SweepSuite) TestRunPagesThroughPopulation() {
	completed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for range 5 {
		s.clearedAt(completed)
	}

	ctx := requestcontext.WithTime(context.Background(), completed.AddDate(0, 1, 0))
	breakdown, err := s.sweep.Run(ctx, s.orgID)
	s.Require().NoError(err)

	// Page size is 2; all five records still show up exactly once.
	s.Equal(5, breakdown.Total)
	s.Equal(5, breakdown.ByStatus[models.StatusCleared])
}

func (s *SweepSuite) TestRunCachesSnapshot() {
	completed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.clearedAt(completed)

	ctx := requestcontext.WithTime(context.Background(), completed.AddDate(0, 1, 0))
	_, err := s.sweep.Run(ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(1, s.cache.puts)

	snapshot, err := s.sweep.Latest(ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(1, snapshot.Total)
	s.Equal(1, s.cache.gets)
}

func (s *SweepSuite) TestLatestFallsBackOnCacheMiss() {
	completed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.clearedAt(completed)

	ctx := requestcontext.WithTime(context.Background(), completed.AddDate(0, 1, 0))
	snapshot, err := s.sweep.Latest(ctx, s.orgID)
	s.Require().NoError(err)

	s.Equal(1, snapshot.Total)
	s.Equal(1, snapshot.ByStatus[models.StatusCleared])
	s.Zero(s.cache.puts, "a read never warms the cache")
}

func (s *SweepSuite) TestRejectsNilOrg() {
	_, err := s.sweep.Run(context.Background(), id.OrgID{})
	s.Error(err)

	_, err = s.sweep.Latest(context.Background(), id.OrgID{})
	s.Error(err)
}
