package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeguard/internal/credential/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsExpiredBoundary(t *testing.T) {
	expiry := date(2025, 7, 1)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"one day before", expiry.AddDate(0, 0, -1), false},
		{"one nanosecond before", expiry.Add(-time.Nanosecond), false},
		{"the expiry instant", expiry, true},
		{"one day after", expiry.AddDate(0, 0, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(tt.now, &expiry))
		})
	}

	t.Run("nil expiry never expires", func(t *testing.T) {
		assert.False(t, IsExpired(date(2100, 1, 1), nil))
	})
}

func TestDaysUntilExpiry(t *testing.T) {
	expiry := date(2025, 7, 1)

	t.Run("whole days remaining", func(t *testing.T) {
		days, ok := DaysUntilExpiry(date(2025, 6, 1), &expiry)
		require.True(t, ok)
		assert.Equal(t, 30, days)
	})

	t.Run("negative once lapsed", func(t *testing.T) {
		days, ok := DaysUntilExpiry(date(2025, 7, 11), &expiry)
		require.True(t, ok)
		assert.Equal(t, -10, days)
	})

	t.Run("nil expiry yields no value", func(t *testing.T) {
		_, ok := DaysUntilExpiry(date(2025, 6, 1), nil)
		assert.False(t, ok)
	})
}

// A basic criminal-record check completed 2025-01-01 is valid six months: it
// expires 2025-07-01 and is flagged as expiring soon by 2025-06-25.
func TestBasicCheckSixMonthValidity(t *testing.T) {
	completed := date(2025, 1, 1)
	expiryDate := models.TypeCriminalRecordCheck.ExpiryDate(completed, models.LevelBasic)
	require.NotNil(t, expiryDate)
	assert.Equal(t, date(2025, 7, 1), *expiryDate)

	assert.True(t, IsExpiringSoon(date(2025, 6, 25), expiryDate, 30))
	assert.False(t, IsExpiringSoon(date(2025, 2, 1), expiryDate, 30))
}

// The validity table and the day arithmetic agree: computing an expiry and
// immediately asking for days-until-expiry from the completion instant gives
// the validity period's length in days.
func TestValidityRoundTrip(t *testing.T) {
	completed := date(2025, 3, 10)

	tests := []struct {
		credType models.CredentialType
		level    models.CheckLevel
		wantDays int
	}{
		{models.TypeCriminalRecordCheck, models.LevelBasic, 184},                  // to 2025-09-10
		{models.TypeCriminalRecordCheck, models.LevelStandard, 365},               // to 2026-03-10
		{models.TypeCriminalRecordCheck, models.LevelEnhancedWithBarredList, 730}, // to 2027-03-10
		{models.TypeRightToWork, models.LevelRightToWorkTimeLimited, 365},
		{models.TypeProfessionalCertification, models.LevelStandardTier, 365},
	}
	for _, tt := range tests {
		t.Run(string(tt.credType)+"/"+string(tt.level), func(t *testing.T) {
			expiryDate := tt.credType.ExpiryDate(completed, tt.level)
			require.NotNil(t, expiryDate)
			days, ok := DaysUntilExpiry(completed, expiryDate)
			require.True(t, ok)
			assert.Equal(t, tt.wantDays, days)
		})
	}

	t.Run("permanent right to work has no expiry", func(t *testing.T) {
		assert.Nil(t, models.TypeRightToWork.ExpiryDate(completed, models.LevelRightToWorkPermanent))
	})
}

func TestIsExpiringSoon(t *testing.T) {
	expiry := date(2025, 7, 1)

	assert.True(t, IsExpiringSoon(date(2025, 6, 28), &expiry, 7))
	assert.False(t, IsExpiringSoon(date(2025, 6, 1), &expiry, 7))
	assert.False(t, IsExpiringSoon(date(2025, 7, 2), &expiry, 7), "already expired is not expiring soon")
	assert.False(t, IsExpiringSoon(date(2025, 6, 28), nil, 7))
}

func TestIsRenewalDue(t *testing.T) {
	renewal := date(2025, 5, 1)

	assert.True(t, IsRenewalDue(date(2025, 5, 1), &renewal, true))
	assert.True(t, IsRenewalDue(date(2025, 6, 1), &renewal, true))
	assert.False(t, IsRenewalDue(date(2025, 4, 30), &renewal, true))
	assert.False(t, IsRenewalDue(date(2025, 6, 1), &renewal, false), "no renewal policy means never due")
	assert.False(t, IsRenewalDue(date(2025, 6, 1), nil, true))
}

func TestGracePeriod(t *testing.T) {
	expiry := date(2025, 7, 1)

	t.Run("window after expiry", func(t *testing.T) {
		end := GracePeriodEnd(&expiry, 14)
		require.NotNil(t, end)
		assert.Equal(t, date(2025, 7, 15), *end)

		assert.True(t, IsInGracePeriod(date(2025, 7, 7), &expiry, 14))
		assert.False(t, IsInGracePeriod(date(2025, 6, 30), &expiry, 14), "not yet expired")
		assert.False(t, IsInGracePeriod(date(2025, 7, 15), &expiry, 14), "grace period end is exclusive")
	})

	t.Run("no grace period configured", func(t *testing.T) {
		assert.Nil(t, GracePeriodEnd(&expiry, 0))
		assert.False(t, IsInGracePeriod(date(2025, 7, 7), &expiry, 0))
	})

	t.Run("no expiry", func(t *testing.T) {
		assert.Nil(t, GracePeriodEnd(nil, 14))
	})
}
