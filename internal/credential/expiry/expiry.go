// Package expiry holds the pure date arithmetic behind the credential
// lifecycle: days-to-expiry, expiring-soon and renewal-due predicates, and
// grace-period handling. Everything here is deterministic in its inputs and
// free of side effects so the classifier and compliance reports are
// reproducible.
//
// Boundary convention: a credential is expired at the expiry instant itself,
// i.e. expired means !now.Before(expiry). One nanosecond before the expiry
// it is still valid.
package expiry

import "time"

const hoursPerDay = 24

// IsExpired reports whether the credential has lapsed. A nil expiry means
// the credential type never expires, so it is never expired.
func IsExpired(now time.Time, expiry *time.Time) bool {
	if expiry == nil {
		return false
	}
	return !now.Before(*expiry)
}

// DaysUntilExpiry returns whole days remaining until expiry, negative once
// lapsed, and (0, false) when no expiry applies. Partial days truncate
// toward zero.
func DaysUntilExpiry(now time.Time, expiry *time.Time) (int, bool) {
	if expiry == nil {
		return 0, false
	}
	return int(expiry.Sub(now) / (hoursPerDay * time.Hour)), true
}

// IsExpiringSoon reports whether the credential is still valid but lapses
// within the given number of days.
func IsExpiringSoon(now time.Time, expiry *time.Time, withinDays int) bool {
	if expiry == nil || IsExpired(now, expiry) {
		return false
	}
	days, _ := DaysUntilExpiry(now, expiry)
	return days <= withinDays
}

// IsRenewalDue reports whether the renewal cycle should have begun. Records
// without a renewal policy are never due.
func IsRenewalDue(now time.Time, nextRenewal *time.Time, renewalRequired bool) bool {
	if !renewalRequired || nextRenewal == nil {
		return false
	}
	return !now.Before(*nextRenewal)
}

// GracePeriodEnd returns the end of the provisional-validity window after
// expiry, or nil when no expiry applies or no grace period is configured.
func GracePeriodEnd(expiry *time.Time, gracePeriodDays int) *time.Time {
	if expiry == nil || gracePeriodDays <= 0 {
		return nil
	}
	end := expiry.AddDate(0, 0, gracePeriodDays)
	return &end
}

// IsInGracePeriod reports whether now falls between expiry and the end of
// the grace period: the credential has lapsed but is provisionally honoured
// pending renewal.
func IsInGracePeriod(now time.Time, expiry *time.Time, gracePeriodDays int) bool {
	end := GracePeriodEnd(expiry, gracePeriodDays)
	if end == nil {
		return false
	}
	return IsExpired(now, expiry) && now.Before(*end)
}
