// Package mirror sends a best-effort copy of accepted registrations to an
// analytics sink.
//
// Callers enqueue and return. A single worker drains the queue into a Sink
// behind a circuit breaker. Nothing here ever reports an error back to the
// registration pipeline: failures are logged and counted.
package mirror

import (
	"context"

	"signup/internal/registration/models"
)

// Mirror is what the pipeline sees. Implementations never block past
// enqueue and never return errors.
type Mirror interface {
	Primary(ctx context.Context, record models.RegistrationRecord)
	Supplemental(ctx context.Context, record models.SupplementalInfoRecord)
}

// Sink delivers one encoded event. Errors are the dispatcher's concern only.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// Disabled is the mirror used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Primary(context.Context, models.RegistrationRecord)         {}
func (Disabled) Supplemental(context.Context, models.SupplementalInfoRecord) {}
