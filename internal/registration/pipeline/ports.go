package pipeline

import (
	"context"

	"signup/internal/registration/models"
)

// RegistrationStore is the authoritative store. InsertRegistration returns
// sentinel.ErrAlreadyUsed on a duplicate email; UpsertSupplemental returns
// sentinel.ErrNotFound for an unknown id.
type RegistrationStore interface {
	InsertRegistration(ctx context.Context, record models.RegistrationRecord) (models.RegistrationID, error)
	UpsertSupplemental(ctx context.Context, id models.RegistrationID, record models.SupplementalInfoRecord) error
	FindRegistration(ctx context.Context, id models.RegistrationID) (*models.RegistrationRecord, error)
	FindSupplemental(ctx context.Context, id models.RegistrationID) (*models.SupplementalInfoRecord, error)
}

// Mirror receives a best-effort copy of committed records.
type Mirror interface {
	Primary(ctx context.Context, record models.RegistrationRecord)
	Supplemental(ctx context.Context, record models.SupplementalInfoRecord)
}

// SessionStore persists sessions. CompareAndSwap writes s only when the
// stored version equals expected, then sets s.Version to expected+1; a
// mismatch returns sentinel.ErrConflict.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id SessionID) (*Session, error)
	CompareAndSwap(ctx context.Context, s *Session, expected int64) error
}
