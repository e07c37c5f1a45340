package models

import dErrors "safeguard/pkg/domain-errors"

// CredentialStatus tracks where a credential record sits in its verification
// lifecycle. The shape is shared across credential types: an application is
// started, submitted to the issuing authority, reviewed, and either cleared
// into a time-bound validity window or ended in a terminal outcome.
type CredentialStatus string

const (
	StatusNotStarted           CredentialStatus = "not_started"
	StatusApplicationSubmitted CredentialStatus = "application_submitted"
	StatusUnderReview          CredentialStatus = "under_review"
	StatusCleared              CredentialStatus = "cleared"
	StatusRejected             CredentialStatus = "rejected"
	StatusExpired              CredentialStatus = "expired"
	StatusCancelled            CredentialStatus = "cancelled"
)

// legalTransitions is the single source of truth for the lifecycle graph.
// Cancelled is reachable from every non-terminal status and is therefore
// listed explicitly on each of them.
var legalTransitions = map[CredentialStatus][]CredentialStatus{
	StatusNotStarted:           {StatusApplicationSubmitted, StatusCancelled},
	StatusApplicationSubmitted: {StatusUnderReview, StatusCancelled},
	StatusUnderReview:          {StatusCleared, StatusRejected, StatusCancelled},
	StatusCleared:              {StatusExpired, StatusCancelled},
	StatusRejected:             {},
	StatusExpired:              {},
	StatusCancelled:            {},
}

// ParseCredentialStatus constructs a CredentialStatus from external input.
func ParseCredentialStatus(s string) (CredentialStatus, error) {
	status := CredentialStatus(s)
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown credential status %q", s)
	}
	return status, nil
}

// IsValid checks that the status is one of the supported enum values.
func (s CredentialStatus) IsValid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible. A record in
// a terminal status is superseded by a new record, never reactivated.
func (s CredentialStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to target.
func (s CredentialStatus) CanTransitionTo(target CredentialStatus) bool {
	for _, next := range legalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s CredentialStatus) String() string {
	return string(s)
}
