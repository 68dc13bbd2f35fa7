// SPDX-License-Identifier: MPL-2.0

package resolverhook

import (
	"slices"
	"sync"
	"sync/atomic"
)

type (
	// Table is an in-memory Registry.
	Table struct {
		mu      sync.Mutex
		handles []*Handle
	}

	// Handle is the registration returned by Table.Register.
	Handle struct {
		table  *Table
		owner  string
		hook   Hook
		active atomic.Bool
		uses   atomic.Int32
	}
)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Register adds hook on behalf of owner.
func (t *Table) Register(owner string, hook Hook) *Handle {
	h := &Handle{table: t, owner: owner, hook: hook}
	h.active.Store(true)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = append(t.handles, h)
	return h
}

// Snapshot returns the registered hooks in registration order. Each
// returned registration counts as one use until released.
func (t *Table) Snapshot() []Registration {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Registration, 0, len(t.handles))
	for _, h := range t.handles {
		h.uses.Add(1)
		out = append(out, h)
	}
	return out
}

// Len returns the number of registered hooks.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

func (t *Table) remove(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = slices.DeleteFunc(t.handles, func(x *Handle) bool { return x == h })
}

// Unregister withdraws the hook. Snapshots that still hold it see it as
// inactive from now on. Calling it more than once is harmless.
func (h *Handle) Unregister() {
	if h.active.CompareAndSwap(true, false) {
		h.table.remove(h)
	}
}

func (h *Handle) Hook() Hook { return h.hook }

func (h *Handle) Owner() string { return h.owner }

func (h *Handle) Active() bool { return h.active.Load() }

func (h *Handle) Release() {
	h.uses.Add(-1)
}

// Uses returns how many snapshots still hold the registration.
func (h *Handle) Uses() int {
	return int(h.uses.Load())
}
