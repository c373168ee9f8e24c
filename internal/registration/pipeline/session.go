package pipeline

import (
	"time"

	"github.com/google/uuid"

	"signup/internal/registration/models"
)

// SessionID identifies one registrant's pipeline instance.
type SessionID string

// NewSessionID returns a random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ParseSessionID accepts only canonical UUIDs.
func ParseSessionID(s string) (SessionID, bool) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return SessionID(u.String()), true
}

// Session is the persisted pipeline instance. Version increases on every
// successful write and guards compare-and-swap.
type Session struct {
	ID SessionID `json:"id"`
	Machine
	RegistrationID *models.RegistrationID   `json:"registrationId,omitempty"`
	Primary        models.RegistrationInput `json:"primary"`
	Supplemental   models.SupplementalInput `json:"supplemental"`
	Feedback       Feedback                 `json:"feedback"`
	Version        int64                    `json:"version"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// Form is the form the presentation layer should show.
type Form string

const (
	FormPrimary      Form = "primary"
	FormSupplemental Form = "supplemental"
	FormNone         Form = "none"
)

// Outcome classifies the last operation for notification rendering.
type Outcome string

const (
	OutcomeNone       Outcome = "none"
	OutcomeSuccess    Outcome = "success"
	OutcomeValidation Outcome = "validation"
	OutcomeConflict   Outcome = "conflict"
	OutcomeFailure    Outcome = "failure"
)

// Feedback tells the presentation layer what to render.
type Feedback struct {
	Form           Form                `json:"form"`
	FormEnabled    bool                `json:"formEnabled"`
	Submitting     bool                `json:"submitting"`
	CanDecline     bool                `json:"canDecline"`
	Outcome        Outcome             `json:"outcome"`
	Message        string              `json:"message,omitempty"`
	FieldErrors    map[string][]string `json:"fieldErrors,omitempty"`
	HighlightField string              `json:"highlightField,omitempty"`
}

// feedbackFor derives the form controls from the machine state.
func feedbackFor(m Machine) Feedback {
	fb := Feedback{Outcome: OutcomeNone}
	switch {
	case m.State == StateIdle || (m.State == StateError && m.FailedPhase == PhasePrimary):
		fb.Form, fb.FormEnabled = FormPrimary, true
	case m.State == StateSubmitting:
		fb.Form, fb.Submitting = FormPrimary, true
	case m.AcceptsSupplemental():
		fb.Form, fb.FormEnabled, fb.CanDecline = FormSupplemental, true, true
	case m.State == StateSubmittingSupplemental:
		fb.Form, fb.Submitting = FormSupplemental, true
	default:
		fb.Form = FormNone
	}
	return fb
}

func (s *Session) apply(m Machine, now time.Time) {
	s.Machine = m
	s.Feedback = feedbackFor(m)
	s.UpdatedAt = now
}
