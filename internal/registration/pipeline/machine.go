package pipeline

import (
	"fmt"

	dErrors "signup/pkg/domain-errors"
)

// State is a position in the two-phase registration flow.
type State string

const (
	StateIdle                   State = "idle"
	StateSubmitting             State = "submitting"
	StateAwaitingSupplemental   State = "awaiting_supplemental"
	StateSubmittingSupplemental State = "submitting_supplemental"
	StateDone                   State = "done"
	StateError                  State = "error"
)

// Phase names the step an Error state returns to.
type Phase string

const (
	PhaseNone         Phase = ""
	PhasePrimary      Phase = "primary"
	PhaseSupplemental Phase = "supplemental"
)

// Event drives a transition.
type Event string

const (
	EventSubmitPrimary        Event = "submit_primary"
	EventPrimaryAccepted      Event = "primary_accepted"
	EventPrimaryRejected      Event = "primary_rejected"
	EventSubmitSupplemental   Event = "submit_supplemental"
	EventSupplementalAccepted Event = "supplemental_accepted"
	EventSupplementalFailed   Event = "supplemental_failed"
	EventDecline              Event = "decline"
	// EventExpired abandons an in-flight write whose outcome was never
	// recorded, returning control to the phase that was submitting.
	EventExpired Event = "expired"
)

// Machine is the pipeline state. The zero value is not valid; use NewMachine.
type Machine struct {
	State       State `json:"state"`
	FailedPhase Phase `json:"failedPhase,omitempty"`
}

// NewMachine returns a machine in Idle.
func NewMachine() Machine {
	return Machine{State: StateIdle}
}

// Next is the only transition function. It returns the receiver unchanged
// together with a CodeInvalidState error for any pair not in the table.
func (m Machine) Next(ev Event) (Machine, error) {
	switch {
	case ev == EventSubmitPrimary && m.AcceptsPrimary():
		return Machine{State: StateSubmitting}, nil
	case ev == EventPrimaryAccepted && m.State == StateSubmitting:
		return Machine{State: StateAwaitingSupplemental}, nil
	case ev == EventPrimaryRejected && m.State == StateSubmitting:
		return Machine{State: StateError, FailedPhase: PhasePrimary}, nil
	case ev == EventSubmitSupplemental && m.AcceptsSupplemental():
		return Machine{State: StateSubmittingSupplemental}, nil
	case ev == EventSupplementalAccepted && m.State == StateSubmittingSupplemental:
		return Machine{State: StateDone}, nil
	case ev == EventSupplementalFailed && m.State == StateSubmittingSupplemental:
		return Machine{State: StateError, FailedPhase: PhaseSupplemental}, nil
	case ev == EventDecline && m.AcceptsSupplemental():
		return Machine{State: StateDone}, nil
	case ev == EventExpired && m.State == StateSubmitting:
		return Machine{State: StateError, FailedPhase: PhasePrimary}, nil
	case ev == EventExpired && m.State == StateSubmittingSupplemental:
		return Machine{State: StateError, FailedPhase: PhaseSupplemental}, nil
	}
	return m, m.invalid(ev)
}

// AcceptsPrimary reports whether the primary form may be submitted.
func (m Machine) AcceptsPrimary() bool {
	return m.State == StateIdle || (m.State == StateError && m.FailedPhase == PhasePrimary)
}

// AcceptsSupplemental reports whether the supplemental form may be submitted
// or dismissed.
func (m Machine) AcceptsSupplemental() bool {
	return m.State == StateAwaitingSupplemental || (m.State == StateError && m.FailedPhase == PhaseSupplemental)
}

// InFlight reports whether a store write is outstanding.
func (m Machine) InFlight() bool {
	return m.State == StateSubmitting || m.State == StateSubmittingSupplemental
}

func (m Machine) Terminal() bool {
	return m.State == StateDone
}

func (m Machine) String() string {
	if m.State == StateError {
		return fmt.Sprintf("%s(%s)", m.State, m.FailedPhase)
	}
	return string(m.State)
}

func (m Machine) invalid(ev Event) error {
	switch {
	case m.InFlight():
		return dErrors.New(dErrors.CodeInvalidState, "a submission is already in progress")
	case m.Terminal():
		return dErrors.New(dErrors.CodeInvalidState, "registration is already complete")
	default:
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot %s while %s", ev, m))
	}
}
