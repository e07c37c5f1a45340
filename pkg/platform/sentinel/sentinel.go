package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConcurrentModification: save lost an optimistic-version race
// - ErrConflict: uniqueness or other constraint violation
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, illegal transitions), use
// pkg/domain-errors directly.
var (
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrConflict               = errors.New("conflict")
	ErrUnavailable            = errors.New("unavailable")
)
