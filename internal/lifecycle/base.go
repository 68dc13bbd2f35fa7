// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Base carries the lifecycle state of a runtime. Concrete runtimes embed it
// and call the Transition helpers from their own Init/Start/Stop/Close.
type Base struct {
	state atomic.Int32

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	lastErr error
	starts  int
}

// NewBase returns a Base in StateCreated.
func NewBase() *Base {
	b := &Base{}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state (atomic, lock-free read).
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsActive returns true if the runtime is in StateActive.
func (b *Base) IsActive() bool {
	return b.State() == StateActive
}

// LastError returns the error recorded by the last failed start, or nil.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Starts returns how many times the runtime reached StateStarting.
func (b *Base) Starts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts
}

// --- Lifecycle helpers for concrete implementations ---

// TransitionToInitialized moves Created or Resolved to Initialized.
// It reports the state it came from.
func (b *Base) TransitionToInitialized() (State, error) {
	for {
		current := b.State()
		switch current {
		case StateCreated, StateResolved:
			if b.state.CompareAndSwap(int32(current), int32(StateInitialized)) {
				return current, nil
			}
		default:
			return current, &TransitionError{Op: "initialize", State: current}
		}
	}
}

// TransitionToStarting moves Initialized to Starting and creates the context
// returned by Context. An already cancelled ctx fails the start.
func (b *Base) TransitionToStarting(ctx context.Context) error {
	// Check for already-cancelled context BEFORE any setup.
	select {
	case <-ctx.Done():
		err := fmt.Errorf("context cancelled before start: %w", ctx.Err())
		b.recordErr(err)
		return err
	default:
	}

	if !b.state.CompareAndSwap(int32(StateInitialized), int32(StateStarting)) {
		return &TransitionError{Op: "start", State: b.State()}
	}

	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.lastErr = nil
	b.starts++
	b.mu.Unlock()
	return nil
}

// TransitionToActive marks the runtime as active.
func (b *Base) TransitionToActive() bool {
	return b.state.CompareAndSwap(int32(StateStarting), int32(StateActive))
}

// TransitionToFailed records err, cancels the run context and moves the
// runtime to Resolved so that it can be started again.
func (b *Base) TransitionToFailed(err error) {
	b.recordErr(err)
	b.cancelRun()
	if b.State() != StateClosed {
		b.state.Store(int32(StateResolved))
	}
}

// TransitionToStopping attempts to transition to Stopping.
// Returns true if the caller must perform the shutdown.
func (b *Base) TransitionToStopping() bool {
	for {
		current := b.State()
		switch current {
		case StateCreated, StateStopping, StateResolved, StateClosed:
			return false
		case StateInitialized:
			if b.state.CompareAndSwap(int32(StateInitialized), int32(StateResolved)) {
				return false
			}
		case StateStarting, StateActive:
			if !b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				continue
			}
			b.cancelRun()
			return true
		default:
			return false
		}
	}
}

// TransitionToResolved marks a stop as complete.
func (b *Base) TransitionToResolved() {
	b.state.CompareAndSwap(int32(StateStopping), int32(StateResolved))
}

// TransitionToClosed moves any non-terminal state to Closed. It returns true
// for the one caller that performed the transition.
func (b *Base) TransitionToClosed() bool {
	for {
		current := b.State()
		if current == StateClosed {
			return false
		}
		if b.state.CompareAndSwap(int32(current), int32(StateClosed)) {
			b.cancelRun()
			return true
		}
	}
}

// Context returns the context of the current run. It is cancelled when the
// runtime stops. Returns nil if the runtime never started.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

func (b *Base) recordErr(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

func (b *Base) cancelRun() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
