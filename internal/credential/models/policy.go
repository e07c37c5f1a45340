package models

import (
	"time"

	dErrors "safeguard/pkg/domain-errors"
)

// CredentialType is the tagged variant that selects a per-type policy:
// which check levels exist, how long a cleared credential stays valid, and
// which level a sensitive role legally requires. The lifecycle state machine
// itself is shared; only this policy table differs between types.
type CredentialType string

const (
	// TypeCriminalRecordCheck is a DBS check: the UK background-check process
	// for roles involving vulnerable people.
	TypeCriminalRecordCheck CredentialType = "criminal_record_check"

	TypeRightToWork               CredentialType = "right_to_work"
	TypeDrivingLicence            CredentialType = "driving_licence"
	TypeProfessionalCertification CredentialType = "professional_certification"
)

// CheckLevel is the strictness tier of a check. Criminal-record checks use
// the four DBS tiers; right-to-work distinguishes permanent (List A) from
// time-limited (List B) evidence; the remaining types carry a single
// standard tier.
type CheckLevel string

const (
	LevelBasic                  CheckLevel = "basic"
	LevelStandard               CheckLevel = "standard"
	LevelEnhanced               CheckLevel = "enhanced"
	LevelEnhancedWithBarredList CheckLevel = "enhanced_with_barred_lists"

	LevelRightToWorkPermanent   CheckLevel = "rtw_permanent"
	LevelRightToWorkTimeLimited CheckLevel = "rtw_time_limited"

	LevelStandardTier CheckLevel = "standard_tier"
)

// RoleFlags describes the sensitivity of the roles the subject holds. Role
// sensitivity can change after a record is created, so every guard reads the
// flags at validation time rather than trusting creation-time checks.
type RoleFlags struct {
	VulnerableAdult bool `json:"vulnerable_adult"`
	ChildFacing     bool `json:"child_facing"`
}

// validity is one cell of the policy table: how long a cleared credential at
// a given level remains valid. Months of zero with noExpiry set means the
// credential never lapses (permanent right to work).
type validity struct {
	months   int
	noExpiry bool
}

// validityPeriods is the per-type policy table. A (type, level) pair absent
// from this table is not a legal combination.
var validityPeriods = map[CredentialType]map[CheckLevel]validity{
	TypeCriminalRecordCheck: {
		LevelBasic:                  {months: 6},
		LevelStandard:               {months: 12},
		LevelEnhanced:               {months: 18},
		LevelEnhancedWithBarredList: {months: 24},
	},
	TypeRightToWork: {
		LevelRightToWorkPermanent:   {noExpiry: true},
		LevelRightToWorkTimeLimited: {months: 12},
	},
	TypeDrivingLicence: {
		LevelStandardTier: {months: 36},
	},
	TypeProfessionalCertification: {
		LevelStandardTier: {months: 12},
	},
}

// criminalCheckRank orders DBS tiers for "at least as strict as" checks.
var criminalCheckRank = map[CheckLevel]int{
	LevelBasic:                  1,
	LevelStandard:               2,
	LevelEnhanced:               3,
	LevelEnhancedWithBarredList: 4,
}

// ParseCredentialType constructs a CredentialType from external input.
func ParseCredentialType(s string) (CredentialType, error) {
	t := CredentialType(s)
	if _, ok := validityPeriods[t]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown credential type %q", s)
	}
	return t, nil
}

// IsValid checks that the type is one of the supported enum values.
func (t CredentialType) IsValid() bool {
	_, ok := validityPeriods[t]
	return ok
}

func (t CredentialType) String() string {
	return string(t)
}

// AllowsLevel reports whether level is a legal check level for this type.
func (t CredentialType) AllowsLevel(level CheckLevel) bool {
	_, ok := validityPeriods[t][level]
	return ok
}

// HasExpiry reports whether a cleared credential of this type and level ever
// lapses. Permanent right-to-work evidence does not.
func (t CredentialType) HasExpiry(level CheckLevel) bool {
	v, ok := validityPeriods[t][level]
	return ok && !v.noExpiry
}

// ValidityMonths returns the validity period for a (type, level) pair, with
// ok=false when the credential has no expiry or the pair is not legal.
func (t CredentialType) ValidityMonths(level CheckLevel) (int, bool) {
	v, ok := validityPeriods[t][level]
	if !ok || v.noExpiry {
		return 0, false
	}
	return v.months, true
}

// ExpiryDate computes the expiry for a credential cleared at completion.
// Returns nil when the (type, level) pair has no expiry. Calendar-month
// arithmetic: a Basic check completed 2025-01-01 expires 2025-07-01.
func (t CredentialType) ExpiryDate(completion time.Time, level CheckLevel) *time.Time {
	months, ok := t.ValidityMonths(level)
	if !ok {
		return nil
	}
	expiry := completion.AddDate(0, months, 0)
	return &expiry
}

// RequiredLevel returns the minimum check level the given role flags demand
// for this credential type. ok=false means the type places no role-based
// constraint (only criminal-record checks do).
func (t CredentialType) RequiredLevel(roles RoleFlags) (CheckLevel, bool) {
	if t != TypeCriminalRecordCheck {
		return "", false
	}
	switch {
	case roles.ChildFacing:
		return LevelEnhancedWithBarredList, true
	case roles.VulnerableAdult:
		return LevelEnhanced, true
	default:
		return "", false
	}
}

// Satisfies reports whether level is at least as strict as required. Only
// meaningful for DBS tiers; unknown levels never satisfy a requirement.
func (level CheckLevel) Satisfies(required CheckLevel) bool {
	have, ok := criminalCheckRank[level]
	if !ok {
		return false
	}
	want, ok := criminalCheckRank[required]
	if !ok {
		return false
	}
	return have >= want
}
