// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// SourceConnect marks modules whose content comes from the negotiator.
	SourceConnect SourceKind = "connect"
	// SourceDir marks modules backed by a directory.
	SourceDir SourceKind = "dir"
	// SourceArchive marks modules backed by a zip archive.
	SourceArchive SourceKind = "archive"
)

var (
	// ErrInvalidLocation is the sentinel error wrapped by InvalidLocationError.
	ErrInvalidLocation = errors.New("invalid module location")

	// ErrInvalidSourceKind is the sentinel error wrapped by InvalidSourceKindError.
	ErrInvalidSourceKind = errors.New("invalid source kind")
)

type (
	// Location identifies where a module is installed from. It is opaque to
	// the runtime: the negotiator may claim it, otherwise it is a path.
	Location string

	// SourceKind records which content source bound a module.
	SourceKind string

	// ModuleID is assigned at install time and never reused.
	ModuleID int64

	// InvalidLocationError is returned when a Location is empty or blank.
	InvalidLocationError struct {
		Value Location
	}

	// InvalidSourceKindError is returned for unknown source kinds.
	InvalidSourceKindError struct {
		Value SourceKind
	}
)

// Error implements the error interface for InvalidLocationError.
func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid module location %q (must not be empty or whitespace-only)", e.Value)
}

// Unwrap returns ErrInvalidLocation for errors.Is() compatibility.
func (e *InvalidLocationError) Unwrap() error { return ErrInvalidLocation }

// Validate returns nil if the location is usable.
func (l Location) Validate() error {
	if strings.TrimSpace(string(l)) == "" {
		return &InvalidLocationError{Value: l}
	}
	return nil
}

// String returns the string representation of the Location.
func (l Location) String() string { return string(l) }

// Error implements the error interface for InvalidSourceKindError.
func (e *InvalidSourceKindError) Error() string {
	return fmt.Sprintf("invalid source kind %q (valid: connect, dir, archive)", e.Value)
}

// Unwrap returns ErrInvalidSourceKind for errors.Is() compatibility.
func (e *InvalidSourceKindError) Unwrap() error { return ErrInvalidSourceKind }

// Validate returns nil if the kind is one of the defined sources.
func (k SourceKind) Validate() error {
	switch k {
	case SourceConnect, SourceDir, SourceArchive:
		return nil
	default:
		return &InvalidSourceKindError{Value: k}
	}
}

// String returns the string representation of the SourceKind.
func (k SourceKind) String() string { return string(k) }

// String returns the decimal form of the id.
func (id ModuleID) String() string { return strconv.FormatInt(int64(id), 10) }
