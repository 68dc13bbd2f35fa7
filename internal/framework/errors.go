// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by module operations before Init.
	ErrNotInitialized = errors.New("framework not initialized")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("framework closed")

	// ErrUninstalled is returned by operations on an uninstalled module.
	ErrUninstalled = errors.New("module uninstalled")

	// ErrRevisionClosed is returned by class path lookups on a revision
	// that was replaced or uninstalled.
	ErrRevisionClosed = errors.New("revision closed")

	// ErrNoContent is returned when no source can supply a location.
	ErrNoContent = errors.New("no content source for location")

	// ErrModuleNotFound is returned when a module id or location is unknown.
	ErrModuleNotFound = errors.New("module not found")

	// ErrStoreCorrupt is returned when the persisted module table cannot be
	// decoded.
	ErrStoreCorrupt = errors.New("module store is corrupt")
)

type (
	// ContentError attributes a content binding failure to a location.
	ContentError struct {
		Location Location
		Err      error
	}

	// ModuleError attributes a failure to an installed module.
	ModuleError struct {
		ID       ModuleID
		Location Location
		Op       string
		Err      error
	}
)

func (e *ContentError) Error() string {
	return fmt.Sprintf("binding content for %q: %v", e.Location, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

func (e *ModuleError) Error() string {
	return fmt.Sprintf("%s module %d (%s): %v", e.Op, e.ID, e.Location, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }
