package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and the pipeline translates them into domain errors:
//   - ErrNotFound: record or session does not exist
//   - ErrAlreadyUsed: a uniqueness constraint rejected the write (duplicate email)
//   - ErrConflict: an optimistic version check failed (concurrent session update)
//   - ErrUnavailable: backing service temporarily unavailable
//
// For bad input use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
