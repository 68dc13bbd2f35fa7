// SPDX-License-Identifier: MPL-2.0

package resolverhook

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

const (
	methodBegin            = "begin"
	methodFilterResolvable = "filterResolvable"
	methodFilterCollisions = "filterSingletonCollisions"
	methodFilterMatches    = "filterMatches"
	methodEnd              = "end"
)

type (
	// Aggregator fans one resolution attempt out to a fixed snapshot of hooks.
	Aggregator struct {
		active []Registration
		sink   ErrorSink
		logger *log.Logger
	}

	// Option configures an Aggregator.
	Option func(*Aggregator)
)

// WithErrorSink sets where contained hook failures are reported. Without a
// sink they are logged.
func WithErrorSink(s ErrorSink) Option {
	return func(a *Aggregator) {
		a.sink = s
	}
}

// WithLogger traces every hook call at debug level and logs failures.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New builds an aggregator over snapshot, taking over the hold each
// registration carries. The snapshot is typically Registry.Snapshot().
func New(snapshot []Registration, opts ...Option) *Aggregator {
	a := &Aggregator{
		active: make([]Registration, 0, len(snapshot)),
		logger: log.New(io.Discard),
	}
	for _, r := range snapshot {
		if r != nil {
			a.active = append(a.active, r)
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of hooks still in the active set.
func (a *Aggregator) Len() int {
	return len(a.active)
}

// Begin calls Begin on every hook. A hook that fails here stays in the
// active set.
func (a *Aggregator) Begin() {
	a.each(methodBegin, func(h Hook) error { return h.Begin() }, nil, nil)
}

// FilterResolvable lets every hook shrink the resolvable revisions.
func (a *Aggregator) FilterResolvable(candidates *Candidates[Revision]) {
	a.each(methodFilterResolvable,
		func(h Hook) error { return h.FilterResolvable(candidates) },
		candidates.commit, candidates.rollback)
}

// FilterSingletonCollisions lets every hook shrink the set of capabilities
// colliding with singleton.
func (a *Aggregator) FilterSingletonCollisions(singleton Capability, collisions *Candidates[Capability]) {
	a.each(methodFilterCollisions,
		func(h Hook) error { return h.FilterSingletonCollisions(singleton, collisions) },
		collisions.commit, collisions.rollback)
}

// FilterMatches lets every hook shrink the capabilities matching a
// requirement of requirer.
func (a *Aggregator) FilterMatches(requirer Revision, candidates *Candidates[Capability]) {
	a.each(methodFilterMatches,
		func(h Hook) error { return h.FilterMatches(requirer, candidates) },
		candidates.commit, candidates.rollback)
}

// End calls End on every hook still active, releases every registration and
// clears the active set. Further calls do nothing.
func (a *Aggregator) End() {
	a.each(methodEnd, func(h Hook) error { return h.End() }, nil, nil)
	for _, r := range a.active {
		r.Release()
	}
	a.active = nil
}

func (a *Aggregator) each(method string, call func(Hook) error, commit, rollback func()) {
	kept := a.active[:0]
	for _, r := range a.active {
		if !r.Active() {
			a.logger.Debug("pruning withdrawn hook", "owner", r.Owner(), "phase", method)
			r.Release()
			continue
		}
		kept = append(kept, r)

		a.logger.Debug("calling hook", "owner", r.Owner(), "phase", method)
		if err := invoke(r.Hook(), call); err != nil {
			if rollback != nil {
				rollback()
			}
			a.report(&HookError{Owner: r.Owner(), Method: method, Err: err})
			continue
		}
		if commit != nil {
			commit()
		}
	}
	clear(a.active[len(kept):])
	a.active = kept
}

func invoke(h Hook, call func(Hook) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return call(h)
}

func (a *Aggregator) report(err *HookError) {
	if a.sink != nil {
		a.sink.HookFailed(err)
		return
	}
	a.logger.Warn("resolver hook failed", "owner", err.Owner, "phase", err.Method, "err", err.Err)
}
