// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"sync"
	"sync/atomic"

	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/manifest"
)

const (
	// ModuleInstalled means the module is bound to content but not resolved.
	ModuleInstalled ModuleState = iota
	// ModuleResolved means the last resolution attempt wired every requirement.
	ModuleResolved
	// ModuleUninstalled is terminal.
	ModuleUninstalled
)

type (
	// ModuleState is the resolution state of a module.
	ModuleState int32

	// Module is an installed module. Its current revision changes on Update;
	// a caller holding a *Revision keeps a stable view until that revision is
	// closed.
	Module struct {
		fw       *Framework
		id       ModuleID
		location Location

		current atomic.Pointer[Revision]
		state   atomic.Int32

		// serializes Update and Uninstall
		mu sync.Mutex
	}
)

// String returns a human-readable representation of the module state.
func (s ModuleState) String() string {
	switch s {
	case ModuleInstalled:
		return "installed"
	case ModuleResolved:
		return "resolved"
	case ModuleUninstalled:
		return "uninstalled"
	default:
		return "unknown"
	}
}

func newModule(fw *Framework, id ModuleID, loc Location) *Module {
	return &Module{fw: fw, id: id, location: loc}
}

// ID returns the module id.
func (m *Module) ID() ModuleID { return m.id }

// Location returns where the module was installed from.
func (m *Module) Location() Location { return m.location }

// State returns the module state.
func (m *Module) State() ModuleState { return ModuleState(m.state.Load()) }

// Current returns the published revision. It is nil only for a module that
// was never bound.
func (m *Module) Current() *Revision { return m.current.Load() }

func (m *Module) revision() (*Revision, error) {
	if m.State() == ModuleUninstalled {
		return nil, &ModuleError{ID: m.id, Location: m.location, Op: "access", Err: ErrUninstalled}
	}
	return m.current.Load(), nil
}

// SymbolicName returns the symbolic name of the current revision.
func (m *Module) SymbolicName() (string, bool) {
	r := m.current.Load()
	if r == nil {
		return "", false
	}
	return r.SymbolicName()
}

// Headers returns the headers of the current revision.
func (m *Module) Headers() (manifest.Headers, error) {
	r, err := m.revision()
	if err != nil {
		return nil, err
	}
	return r.Headers(), nil
}

// Entry returns the entry at path in the current revision.
func (m *Module) Entry(path string) (content.Entry, error) {
	r, err := m.revision()
	if err != nil {
		return nil, err
	}
	return r.Entry(path)
}

// EntryPaths lists entries below path in the current revision.
func (m *Module) EntryPaths(path string, recurse bool) ([]string, bool, error) {
	r, err := m.revision()
	if err != nil {
		return nil, false, err
	}
	return r.EntryPaths(path, recurse)
}

// Find lists entries below dir matching pattern in the current revision.
func (m *Module) Find(dir, pattern string, recurse bool) ([]string, bool, error) {
	r, err := m.revision()
	if err != nil {
		return nil, false, err
	}
	return r.Find(dir, pattern, recurse)
}

// Resource looks name up in the current revision.
func (m *Module) Resource(name string) (content.Entry, error) {
	r, err := m.revision()
	if err != nil {
		return nil, err
	}
	return r.Resource(name)
}
