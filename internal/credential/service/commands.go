package service

import "safeguard/internal/credential/models"

// Command is a lifecycle event requested against one record. Each variant
// maps to one Can*/Apply* pair on the model; the service dispatches it inside
// the save path so retried commands re-run their guards against fresh state.
type Command interface {
	// Kind is the stable event name used in logs, metrics, and notifications.
	Kind() string
}

// StartApplication opens the application and attaches the provider's own
// reference. Legal only from not_started.
type StartApplication struct {
	Reference string
}

// Submit hands the application to the issuing authority. Legal only from
// application_submitted.
type Submit struct {
	ExternalReference string
}

// Complete closes the verification with the authority's outcome. Legal only
// from under_review.
type Complete struct {
	CertificateNumber string
	Outcome           models.Outcome
}

// Reject closes the verification negatively with a reason. Legal only from
// under_review.
type Reject struct {
	Reason string
}

// Cancel withdraws the record. Legal from any non-terminal status.
type Cancel struct {
	Reason string
}

// MarkExpired moves a cleared record past its expiry into the terminal
// expired status. Applied by the compliance sweep or an explicit call.
type MarkExpired struct{}

func (StartApplication) Kind() string { return "start_application" }
func (Submit) Kind() string           { return "submit" }
func (Complete) Kind() string         { return "complete" }
func (Reject) Kind() string           { return "reject" }
func (Cancel) Kind() string           { return "cancel" }
func (MarkExpired) Kind() string      { return "mark_expired" }
