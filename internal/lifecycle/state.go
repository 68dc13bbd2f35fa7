// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
)

const (
	// StateCreated indicates the runtime exists but Init was never called.
	StateCreated State = iota
	// StateInitialized indicates persisted state was loaded.
	StateInitialized
	// StateStarting indicates Start is running activators.
	StateStarting
	// StateActive indicates the runtime is serving requests.
	StateActive
	// StateStopping indicates Stop is in progress.
	StateStopping
	// StateResolved indicates the runtime stopped and can be started again.
	StateResolved
	// StateClosed is terminal: every resource was released.
	StateClosed
)

// ErrInvalidState is returned when a State value is not one of the defined lifecycle states.
var ErrInvalidState = errors.New("invalid state")

// ErrTransition is wrapped by every rejected transition.
var ErrTransition = errors.New("invalid lifecycle transition")

type (
	// State is the lifecycle state of a runtime.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}

	// TransitionError is returned when an operation is not allowed in the
	// current state.
	TransitionError struct {
		Op    string
		State State
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateResolved:
		return "resolved"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=created, 1=initialized, 2=starting, 3=active, 4=stopping, 5=resolved, 6=closed)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransition
}

// Validate returns nil if the State is one of the defined lifecycle states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateInitialized, StateStarting, StateActive, StateStopping, StateResolved, StateClosed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal returns true for StateClosed.
func (s State) IsTerminal() bool {
	return s == StateClosed
}
