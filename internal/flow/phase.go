// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package flow

import "github.com/samber/oops"

// Phase is where a controller is in its submission cycle.
type Phase int

// Phases.
const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event drives a phase change.
type Event int

// Events.
const (
	EventSubmit Event = iota
	EventValid
	EventInvalid
	EventAccepted
	EventRejected
	EventTransportError
	EventPersistFailed
	EventReset
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventValid:
		return "valid"
	case EventInvalid:
		return "invalid"
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventTransportError:
		return "transport_error"
	case EventPersistFailed:
		return "persist_failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

var transitions = map[Phase]map[Event]Phase{
	PhaseIdle: {
		EventSubmit: PhaseValidating,
	},
	PhaseValidating: {
		EventValid:   PhaseSubmitting,
		EventInvalid: PhaseFailed,
	},
	PhaseSubmitting: {
		EventAccepted:       PhaseSucceeded,
		EventRejected:       PhaseFailed,
		EventTransportError: PhaseFailed,
		EventPersistFailed:  PhaseFailed,
	},
	PhaseSucceeded: {
		EventReset: PhaseIdle,
	},
	PhaseFailed: {
		EventReset: PhaseIdle,
	},
}

// Transition returns the phase that follows from on event ev. It has no
// side effects; pairs not in the table return FLOW_INVALID_TRANSITION.
func Transition(from Phase, ev Event) (Phase, error) {
	if next, ok := transitions[from][ev]; ok {
		return next, nil
	}
	return from, oops.Code("FLOW_INVALID_TRANSITION").In("flow").
		With("phase", from.String()).
		With("event", ev.String()).
		Errorf("no transition from %s on %s", from, ev)
}
