// Package classify derives a risk priority and the list of required actions
// for a credential record. Classify is a pure function of the record and the
// observation time; identical inputs always produce identical output, which
// compliance reports and their tests rely on.
package classify

import (
	"time"

	"safeguard/internal/credential/expiry"
	"safeguard/internal/credential/models"
)

// Priority grades how urgently a record needs attention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ActionKind names a concrete follow-up for the provider's compliance team.
type ActionKind string

const (
	ActionRenewImmediately ActionKind = "renew_immediately"
	ActionRenewUrgently    ActionKind = "renew_urgently"
	ActionPlanRenewal      ActionKind = "plan_renewal"
	ActionCompleteRenewal  ActionKind = "complete_renewal"
	ActionVerifyWithIssuer ActionKind = "verify_with_issuing_authority"
	ActionScheduleAudit    ActionKind = "schedule_audit"
	ActionCompleteCE       ActionKind = "complete_ce_requirements"
)

// Thresholds for the expiry-proximity tiers, in days.
const (
	urgentWindowDays   = 7
	planningWindowDays = 30
)

// Result is the classifier output for one record.
type Result struct {
	Priority        Priority     `json:"priority"`
	RequiredActions []ActionKind `json:"required_actions"`
}

// Classify grades a record. Precedence is fixed, highest first:
//
//  1. expired (or terminal expired status) -> critical, renew immediately
//  2. expiring within 7 days              -> critical, renew urgently
//  3. expiring within 30 days             -> high, plan renewal
//  4. renewal due                          -> high, complete renewal
//  5. not yet cleared                      -> medium, verify with issuer
//  6. otherwise                            -> low, no action
//
// "Renewal due" ranks below "expiring soon" so that a record both due for
// renewal and near expiry surfaces with the expiry-driven action; the renewal
// obligation is implied by it.
//
// Independent obligations append regardless of the tier that matched: an
// overdue audit adds schedule_audit, and an unmet continuing-education
// requirement on a certification adds complete_ce_requirements.
func Classify(record *models.CredentialRecord, now time.Time) Result {
	var res Result

	switch {
	case record.Status == models.StatusExpired || expiry.IsExpired(now, record.ExpiryDate):
		res.Priority = PriorityCritical
		res.RequiredActions = append(res.RequiredActions, ActionRenewImmediately)
	case expiry.IsExpiringSoon(now, record.ExpiryDate, urgentWindowDays):
		res.Priority = PriorityCritical
		res.RequiredActions = append(res.RequiredActions, ActionRenewUrgently)
	case expiry.IsExpiringSoon(now, record.ExpiryDate, planningWindowDays):
		res.Priority = PriorityHigh
		res.RequiredActions = append(res.RequiredActions, ActionPlanRenewal)
	case expiry.IsRenewalDue(now, record.NextRenewalDate, record.RenewalRequired):
		res.Priority = PriorityHigh
		res.RequiredActions = append(res.RequiredActions, ActionCompleteRenewal)
	case record.Status != models.StatusCleared:
		res.Priority = PriorityMedium
		res.RequiredActions = append(res.RequiredActions, ActionVerifyWithIssuer)
	default:
		res.Priority = PriorityLow
	}

	if record.NextAuditDate != nil && !now.Before(*record.NextAuditDate) {
		res.RequiredActions = append(res.RequiredActions, ActionScheduleAudit)
	}
	if record.Type == models.TypeProfessionalCertification &&
		record.ContinuingEducationRequired && !record.ContinuingEducationComplete {
		res.RequiredActions = append(res.RequiredActions, ActionCompleteCE)
	}

	return res
}
