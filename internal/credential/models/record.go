package models

import (
	"time"

	id "safeguard/pkg/domain"
	dErrors "safeguard/pkg/domain-errors"
)

// CredentialRecord is the aggregate root for one credential instance (a DBS
// check, right-to-work check, driving licence, or professional certification)
// held by one subject.
//
// Invariants:
//   - Type and CheckLevel form a legal pair in the policy table
//   - Status only moves along the lifecycle graph in status.go
//   - ApplicationDate <= CompletionDate <= ExpiryDate when all are present
//   - A terminal record (rejected, cancelled, expired) never returns to an
//     active status; renewal creates a new record
//   - Records are never physically deleted; superseded records stay on file
//     for the audit trail
//
// Mutation goes through the Can*/Apply* transition pairs only. Services call
// Can* first, then Apply* inside the save path, so a retry after a version
// conflict re-runs the guard against fresh state.
type CredentialRecord struct {
	ID        id.RecordID    `json:"id"`
	SubjectID id.SubjectID   `json:"subject_id"`
	OrgID     id.OrgID       `json:"org_id"`
	Type      CredentialType `json:"type"`
	CheckLevel CheckLevel    `json:"check_level"`
	Status    CredentialStatus `json:"status"`

	// Reference is the provider's own application reference; the
	// ExternalReference is assigned by the issuing authority at submission.
	Reference         string `json:"reference,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`

	// CertificateNumber is opaque once issued.
	CertificateNumber  string `json:"certificate_number,omitempty"`
	RejectionReason    string `json:"rejection_reason,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	Roles RoleFlags `json:"roles"`

	ApplicationDate *time.Time `json:"application_date,omitempty"`
	SubmissionDate  *time.Time `json:"submission_date,omitempty"`
	CompletionDate  *time.Time `json:"completion_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`

	// Renewal policy. NextRenewalDate is when the provider plans to begin the
	// next cycle; GracePeriodDays extends provisional validity past expiry
	// while that cycle runs.
	RenewalRequired bool       `json:"renewal_required"`
	GracePeriodDays int        `json:"grace_period_days"`
	NextRenewalDate *time.Time `json:"next_renewal_date,omitempty"`

	// Audit and continuing-education obligations feed the classifier but do
	// not gate lifecycle transitions.
	NextAuditDate                 *time.Time `json:"next_audit_date,omitempty"`
	ContinuingEducationRequired   bool       `json:"continuing_education_required"`
	ContinuingEducationComplete   bool       `json:"continuing_education_complete"`

	// Version supports optimistic concurrency in stores; it is bumped by the
	// store on every successful save, not by transitions.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome is the result of a completed verification.
type Outcome string

const (
	OutcomeCleared  Outcome = "cleared"
	OutcomeRejected Outcome = "rejected"
)

// ParseOutcome constructs an Outcome from external input.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if o != OutcomeCleared && o != OutcomeRejected {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown outcome %q", s)
	}
	return o, nil
}

// NewCredentialRecord creates a record in StatusNotStarted for a subject
// whose role requires the credential.
func NewCredentialRecord(
	recordID id.RecordID,
	subjectID id.SubjectID,
	orgID id.OrgID,
	credType CredentialType,
	level CheckLevel,
	roles RoleFlags,
	now time.Time,
) (*CredentialRecord, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id cannot be nil")
	}
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject id cannot be nil")
	}
	if !credType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown credential type")
	}
	if !credType.AllowsLevel(level) {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"check level %q is not valid for credential type %q", level, credType)
	}
	return &CredentialRecord{
		ID:         recordID,
		SubjectID:  subjectID,
		OrgID:      orgID,
		Type:       credType,
		CheckLevel: level,
		Status:     StatusNotStarted,
		Roles:      roles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsTerminal reports whether the record can no longer transition.
func (r *CredentialRecord) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// IsCleared reports whether the record holds a positive, completed outcome.
// Callers still need the expiry calculator to know whether it is current.
func (r *CredentialRecord) IsCleared() bool {
	return r.Status == StatusCleared
}

// ValidateDates enforces the date-ordering invariant. Checked before any
// state is persisted so a structurally invalid record is rejected at the
// boundary.
func (r *CredentialRecord) ValidateDates() error {
	if r.ApplicationDate != nil && r.CompletionDate != nil &&
		r.CompletionDate.Before(*r.ApplicationDate) {
		return dErrors.New(dErrors.CodeValidation, "completion date precedes application date")
	}
	if r.CompletionDate != nil && r.ExpiryDate != nil &&
		!r.ExpiryDate.After(*r.CompletionDate) {
		return dErrors.New(dErrors.CodeValidation, "expiry date must be after completion date")
	}
	return nil
}

func (r *CredentialRecord) illegalTransition(event string, target CredentialStatus) error {
	return dErrors.Newf(dErrors.CodeIllegalTransition,
		"%s: cannot move %s record from %s to %s", event, r.Type, r.Status, target)
}

// CanStartApplication checks that an application can be opened.
func (r *CredentialRecord) CanStartApplication() error {
	if r.Status != StatusNotStarted {
		return r.illegalTransition("start_application", StatusApplicationSubmitted)
	}
	return nil
}

// ApplyStartApplication opens the application and stores the provider
// reference. Call CanStartApplication first.
func (r *CredentialRecord) ApplyStartApplication(reference string, now time.Time) {
	r.Status = StatusApplicationSubmitted
	r.Reference = reference
	r.ApplicationDate = &now
	r.UpdatedAt = now
}

// CanSubmit checks that the application can be handed to the issuing
// authority for review.
func (r *CredentialRecord) CanSubmit() error {
	if !r.Status.CanTransitionTo(StatusUnderReview) {
		return r.illegalTransition("submit", StatusUnderReview)
	}
	return nil
}

// ApplySubmit moves the record under review and stores the authority's
// reference. Call CanSubmit first.
func (r *CredentialRecord) ApplySubmit(externalReference string, now time.Time) {
	r.Status = StatusUnderReview
	r.ExternalReference = externalReference
	r.SubmissionDate = &now
	r.UpdatedAt = now
}

// CanComplete checks that the verification can be closed with the given
// outcome. The role-sensitivity guard runs here, at validation time, because
// role flags may have changed since the record was created: a record whose
// subject now holds a child-facing role cannot clear on anything weaker than
// an enhanced check with barred-list search.
func (r *CredentialRecord) CanComplete(outcome Outcome) error {
	target := StatusCleared
	if outcome == OutcomeRejected {
		target = StatusRejected
	}
	if !r.Status.CanTransitionTo(target) {
		return r.illegalTransition("complete", target)
	}
	if outcome == OutcomeCleared {
		if required, ok := r.Type.RequiredLevel(r.Roles); ok && !r.CheckLevel.Satisfies(required) {
			return dErrors.Newf(dErrors.CodeInsufficientCheckLevel,
				"check level %s is insufficient for role requiring %s", r.CheckLevel, required)
		}
	}
	return nil
}

// ApplyComplete records the outcome; a cleared outcome opens the validity
// window by computing the expiry from the policy table. Call CanComplete
// first.
func (r *CredentialRecord) ApplyComplete(certificateNumber string, outcome Outcome, now time.Time) {
	r.CompletionDate = &now
	r.UpdatedAt = now
	if outcome == OutcomeRejected {
		r.Status = StatusRejected
		return
	}
	r.Status = StatusCleared
	r.CertificateNumber = certificateNumber
	r.ExpiryDate = r.Type.ExpiryDate(now, r.CheckLevel)
}

// CanReject checks that the verification can be closed negatively.
func (r *CredentialRecord) CanReject() error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return r.illegalTransition("reject", StatusRejected)
	}
	return nil
}

// ApplyReject closes the verification with a negative outcome. Call
// CanReject first.
func (r *CredentialRecord) ApplyReject(reason string, now time.Time) {
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.CompletionDate = &now
	r.UpdatedAt = now
}

// CanCancel checks that the record can be withdrawn. Legal from any
// non-terminal status.
func (r *CredentialRecord) CanCancel() error {
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return r.illegalTransition("cancel", StatusCancelled)
	}
	return nil
}

// ApplyCancel withdraws the record. Call CanCancel first.
func (r *CredentialRecord) ApplyCancel(reason string, now time.Time) {
	r.Status = StatusCancelled
	r.CancellationReason = reason
	r.UpdatedAt = now
}

// CanMarkExpired checks that a cleared record has actually lapsed. The
// expiry instant itself counts as expired.
func (r *CredentialRecord) CanMarkExpired(now time.Time) error {
	if !r.Status.CanTransitionTo(StatusExpired) {
		return r.illegalTransition("mark_expired", StatusExpired)
	}
	if r.ExpiryDate == nil {
		return dErrors.New(dErrors.CodeIllegalTransition, "credential has no expiry")
	}
	if now.Before(*r.ExpiryDate) {
		return dErrors.New(dErrors.CodeIllegalTransition, "credential has not yet expired")
	}
	return nil
}

// ApplyMarkExpired moves a lapsed record to its terminal expired status.
// Call CanMarkExpired first.
func (r *CredentialRecord) ApplyMarkExpired(now time.Time) {
	r.Status = StatusExpired
	r.UpdatedAt = now
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (r *CredentialRecord) Clone() *CredentialRecord {
	clone := *r
	clone.ApplicationDate = cloneTime(r.ApplicationDate)
	clone.SubmissionDate = cloneTime(r.SubmissionDate)
	clone.CompletionDate = cloneTime(r.CompletionDate)
	clone.ExpiryDate = cloneTime(r.ExpiryDate)
	clone.NextRenewalDate = cloneTime(r.NextRenewalDate)
	clone.NextAuditDate = cloneTime(r.NextAuditDate)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
