// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when content is accessed while closed.
	ErrNotOpen = errors.New("content not open")
	// ErrAlreadyOpen is returned when opening content that is open.
	ErrAlreadyOpen = errors.New("content already open")
	// ErrAlreadyClosed is returned when closing content that is closed.
	ErrAlreadyClosed = errors.New("content already closed")
	// ErrAlreadyInitialized is returned by factories initialized twice.
	ErrAlreadyInitialized = errors.New("factory already initialized")
	// ErrNegotiation is the sentinel wrapped by NegotiationError.
	ErrNegotiation = errors.New("module negotiation failed")
)

type (
	// StateError reports a call that violated the open/close discipline of
	// Content. It wraps ErrNotOpen, ErrAlreadyOpen or ErrAlreadyClosed.
	StateError struct {
		Op  string
		Err error
	}

	// NegotiationError attributes a negotiation failure to a location and
	// the factory that produced it. It wraps both ErrNegotiation and the
	// factory's error.
	NegotiationError struct {
		Location   string
		Negotiator string
		Err        error
	}
)

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the state sentinel.
func (e *StateError) Unwrap() error {
	return e.Err
}

// Error implements the error interface.
func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiate module %q with %s: %v", e.Location, e.Negotiator, e.Err)
}

// Unwrap returns ErrNegotiation and the underlying cause.
func (e *NegotiationError) Unwrap() []error {
	return []error{ErrNegotiation, e.Err}
}
