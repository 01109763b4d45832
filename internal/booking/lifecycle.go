// Package booking implements the ride booking lifecycle: the status graph,
// the events each transition emits, and a service that applies transitions
// against storage atomically.
package booking

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusDriverAssigned Status = "driver_assigned"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDriverAssigned, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// EventType labels a booking_events row.
type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventBookingConfirmed EventType = "booking_confirmed"
	EventDriverAssigned   EventType = "driver_assigned"
	EventBookingCompleted EventType = "booking_completed"
	EventBookingCancelled EventType = "booking_cancelled"
)

// Transition names accepted by Lifecycle.Next.
const (
	TransitionConfirm      = "confirm"
	TransitionAssignDriver = "assign_driver"
	TransitionComplete     = "complete"
	TransitionCancel       = "cancel"
)

var (
	// ErrInvalidTransition is returned when a transition is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrUnknownTransition is returned for a transition name outside the table.
	ErrUnknownTransition = errors.New("unknown booking transition")
)

// Transition is one edge of the status graph.
type Transition struct {
	Name  string
	From  []Status
	To    Status
	Event EventType
}

func (t Transition) allowedFrom(s Status) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

// Transitions is the ordered status graph. Cancel is reachable from every
// non-terminal status.
var Transitions = []Transition{
	{
		Name:  TransitionConfirm,
		From:  []Status{StatusPending},
		To:    StatusConfirmed,
		Event: EventBookingConfirmed,
	},
	{
		Name:  TransitionAssignDriver,
		From:  []Status{StatusConfirmed},
		To:    StatusDriverAssigned,
		Event: EventDriverAssigned,
	},
	{
		Name:  TransitionComplete,
		From:  []Status{StatusDriverAssigned},
		To:    StatusCompleted,
		Event: EventBookingCompleted,
	},
	{
		Name:  TransitionCancel,
		From:  []Status{StatusPending, StatusConfirmed, StatusDriverAssigned},
		To:    StatusCancelled,
		Event: EventBookingCancelled,
	},
}

// TransitionByName looks up a transition in the table.
func TransitionByName(name string) (Transition, bool) {
	for _, t := range Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}

// TransitionByEvent looks up the transition that emits the given event.
func TransitionByEvent(ev EventType) (Transition, bool) {
	for _, t := range Transitions {
		if t.Event == ev {
			return t, true
		}
	}
	return Transition{}, false
}

// Lifecycle decides which transitions are legal.
//
// In strict mode only the edges listed in Transitions are allowed. When
// Strict is false any non-terminal status may take any named transition.
type Lifecycle struct {
	Strict bool
}

// DefaultLifecycle returns a strict lifecycle.
func DefaultLifecycle() *Lifecycle {
	return &Lifecycle{Strict: true}
}

// Next validates the named transition from current and returns it.
func (l *Lifecycle) Next(current Status, name string) (Transition, error) {
	t, ok := TransitionByName(name)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownTransition, name)
	}
	if !current.Known() {
		return Transition{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	if current.Terminal() {
		return Transition{}, fmt.Errorf("%w: %s is terminal, cannot %s", ErrInvalidTransition, current, name)
	}
	if l.Strict && !t.allowedFrom(current) {
		return Transition{}, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, name, current)
	}
	return t, nil
}

// Replay derives the status implied by an ordered event trail. The trail
// must start with exactly one booking_created event; every later event must
// map to a transition the lifecycle accepts. It returns the final status and
// the number of transitions applied.
func (l *Lifecycle) Replay(events []EventType) (Status, int, error) {
	if len(events) == 0 {
		return "", 0, errors.New("event trail is empty")
	}
	if events[0] != EventBookingCreated {
		return "", 0, fmt.Errorf("event trail starts with %s, want %s", events[0], EventBookingCreated)
	}

	status := StatusPending
	for i, ev := range events[1:] {
		if ev == EventBookingCreated {
			return status, i, fmt.Errorf("duplicate %s at position %d", EventBookingCreated, i+1)
		}
		t, ok := TransitionByEvent(ev)
		if !ok {
			return status, i, fmt.Errorf("unknown event type %q at position %d", ev, i+1)
		}
		if _, err := l.Next(status, t.Name); err != nil {
			return status, i, fmt.Errorf("event %d: %w", i+1, err)
		}
		status = t.To
	}
	return status, len(events) - 1, nil
}
