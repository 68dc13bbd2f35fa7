// SPDX-License-Identifier: MPL-2.0

package connect

import "sync/atomic"

// Guard tracks the open/closed state of one Content instance. Transitions are
// single compare-and-swap operations, so of two racing Open calls exactly one
// succeeds. A failed call leaves the state unchanged. The zero value is
// closed.
type Guard struct {
	open atomic.Bool
}

// Open moves the guard from closed to open.
func (g *Guard) Open() error {
	if !g.open.CompareAndSwap(false, true) {
		return &StateError{Op: "open", Err: ErrAlreadyOpen}
	}
	return nil
}

// Close moves the guard from open to closed.
func (g *Guard) Close() error {
	if !g.open.CompareAndSwap(true, false) {
		return &StateError{Op: "close", Err: ErrAlreadyClosed}
	}
	return nil
}

// Check returns a StateError naming op when the guard is closed.
func (g *Guard) Check(op string) error {
	if !g.open.Load() {
		return &StateError{Op: op, Err: ErrNotOpen}
	}
	return nil
}

// IsOpen reports whether the guard is open.
func (g *Guard) IsOpen() bool {
	return g.open.Load()
}
