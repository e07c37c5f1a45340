package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeguard/internal/credential/models"
	id "safeguard/pkg/domain"
)

var reportNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testRecord(t *testing.T, status models.CredentialStatus, daysToExpiry *int) *models.CredentialRecord {
	t.Helper()
	record, err := models.NewCredentialRecord(
		id.RecordID(uuid.New()), id.SubjectID(uuid.New()), id.OrgID(uuid.New()),
		models.TypeCriminalRecordCheck, models.LevelEnhanced, models.RoleFlags{}, reportNow.AddDate(-1, 0, 0),
	)
	require.NoError(t, err)
	record.Status = status
	if daysToExpiry != nil {
		expiry := reportNow.AddDate(0, 0, *daysToExpiry)
		record.ExpiryDate = &expiry
	}
	return record
}

func days(n int) *int { return &n }

func TestSummarizeEmptyPopulation(t *testing.T) {
	snapshot := Summarize(nil, reportNow)

	assert.Equal(t, 0, snapshot.Total)
	assert.Equal(t, 0.0, snapshot.ComplianceRate)
	assert.Empty(t, snapshot.OverdueRecords)
	assert.Empty(t, snapshot.ExpiringSoonRecords)
}

func TestSummarize(t *testing.T) {
	records := []*models.CredentialRecord{
		testRecord(t, models.StatusCleared, days(300)),  // compliant
		testRecord(t, models.StatusCleared, days(10)),   // compliant, expiring soon
		testRecord(t, models.StatusCleared, days(-5)),   // lapsed but not yet swept
		testRecord(t, models.StatusExpired, days(-40)),  // terminal expired
		testRecord(t, models.StatusUnderReview, nil),    // in flight
		testRecord(t, models.StatusRejected, nil),       // terminal negative
	}

	snapshot := Summarize(records, reportNow)

	assert.Equal(t, 6, snapshot.Total)
	assert.Equal(t, 3, snapshot.ByStatus[models.StatusCleared])
	assert.Equal(t, 1, snapshot.ByStatus[models.StatusExpired])
	assert.Equal(t, 1, snapshot.ByStatus[models.StatusUnderReview])
	assert.Equal(t, 1, snapshot.ByStatus[models.StatusRejected])

	assert.Equal(t, 2, snapshot.ExpiredCount, "lapsed cleared record counts as expired")
	assert.Len(t, snapshot.OverdueRecords, 2)
	assert.Equal(t, 1, snapshot.ExpiringSoon)
	assert.Len(t, snapshot.ExpiringSoonRecords, 1)

	// 2 of 6 are cleared and current.
	assert.InDelta(t, 2.0/6.0, snapshot.ComplianceRate, 1e-9)
}

// Records count independently: several credential types for one subject are
// just several records.
func TestSummarizeIndependentRecords(t *testing.T) {
	subject := id.SubjectID(uuid.New())
	first := testRecord(t, models.StatusCleared, days(200))
	second := testRecord(t, models.StatusCleared, days(-1))
	first.SubjectID = subject
	second.SubjectID = subject

	snapshot := Summarize([]*models.CredentialRecord{first, second}, reportNow)

	assert.Equal(t, 2, snapshot.Total)
	assert.Equal(t, 1, snapshot.ExpiredCount)
	assert.InDelta(t, 0.5, snapshot.ComplianceRate, 1e-9)
}
