// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"context"
	"fmt"
	"slices"

	"github.com/invowk/modhost/pkg/resolverhook"
)

type (
	// ResolveReport is the outcome of one resolution attempt.
	ResolveReport struct {
		Resolved   []*Module
		Unresolved []Unresolved
	}

	// Unresolved explains why a module was left unresolved.
	Unresolved struct {
		Module *Module
		Reason string
	}

	// wiring is the per-revision working state of an attempt.
	wiring struct {
		rev     *Revision
		matches [][]*Capability
		reason  string
	}
)

// Resolve tries to resolve mods, or every installed module when mods is
// empty. Each attempt consults a fresh snapshot of the resolver hooks; a
// failing hook is reported as an error event and otherwise ignored.
//
// Matching is by name within a namespace. A module resolves when every
// requirement has a surviving candidate from a module that is resolved or
// resolves in the same attempt.
func (f *Framework) Resolve(ctx context.Context, mods ...*Module) (*ResolveReport, error) {
	if err := f.checkUsable(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		mods = f.Modules()
	}

	var snapshot []resolverhook.Registration
	if f.hooks != nil {
		snapshot = f.hooks.Snapshot()
	}
	opts := []resolverhook.Option{resolverhook.WithErrorSink(resolverhook.ErrorSinkFunc(f.hookFailed))}
	if f.traceHooks {
		opts = append(opts, resolverhook.WithLogger(f.logger))
	}
	agg := resolverhook.New(snapshot, opts...)
	agg.Begin()
	defer agg.End()

	var revs []resolverhook.Revision
	for _, m := range mods {
		if m.State() != ModuleInstalled {
			continue
		}
		if r := m.current.Load(); r != nil {
			revs = append(revs, r)
		}
	}
	report := &ResolveReport{}
	if len(revs) == 0 {
		return report, nil
	}

	resolvable := resolverhook.NewCandidates(revs)
	agg.FilterResolvable(resolvable)

	pending := make(map[*Revision]*wiring, resolvable.Len())
	var order []*Revision
	for _, r := range revs {
		rev := r.(*Revision)
		if !resolvable.Contains(r) {
			report.Unresolved = append(report.Unresolved, Unresolved{Module: rev.module, Reason: "filtered by resolver hook"})
			continue
		}
		pending[rev] = &wiring{rev: rev}
		order = append(order, rev)
	}

	pool := f.providerPool(order)
	f.filterSingletons(agg, order, pending, pool)

	for _, rev := range order {
		w := pending[rev]
		if w.reason != "" {
			continue
		}
		for _, req := range rev.Requirements("") {
			if req.Namespace == NamespacePackage && slices.Contains(f.systemPackages, req.Name) {
				w.matches = append(w.matches, nil)
				continue
			}
			var found []resolverhook.Capability
			for _, p := range pool {
				for _, c := range p.Capabilities(req.Namespace) {
					if c.name == req.Name {
						found = append(found, c)
					}
				}
			}
			cands := resolverhook.NewCandidates(found)
			agg.FilterMatches(rev, cands)
			if cands.Len() == 0 {
				w.reason = "missing requirement " + req.String()
				break
			}
			var kept []*Capability
			for c := range cands.All() {
				kept = append(kept, c.(*Capability))
			}
			w.matches = append(w.matches, kept)
		}
	}

	// Drop modules whose only providers failed to resolve until nothing changes.
	for changed := true; changed; {
		changed = false
		for _, rev := range order {
			w := pending[rev]
			if w.reason != "" {
				continue
			}
			reqs := rev.Requirements("")
			for i, caps := range w.matches {
				if caps == nil {
					continue
				}
				if !slices.ContainsFunc(caps, func(c *Capability) bool { return f.wired(c.rev, pending) }) {
					w.reason = fmt.Sprintf("requirement %s has no resolved provider", reqs[i])
					changed = true
					break
				}
			}
		}
	}

	for _, rev := range order {
		w := pending[rev]
		if w.reason != "" {
			report.Unresolved = append(report.Unresolved, Unresolved{Module: rev.module, Reason: w.reason})
			continue
		}
		if rev.module.current.Load() != rev ||
			!rev.module.state.CompareAndSwap(int32(ModuleInstalled), int32(ModuleResolved)) {
			report.Unresolved = append(report.Unresolved, Unresolved{Module: rev.module, Reason: "module changed during resolution"})
			continue
		}
		report.Resolved = append(report.Resolved, rev.module)
		f.events.publish(Event{Kind: EventResolved, Module: rev.module})
	}
	f.logger.Debug("resolution finished", "resolved", len(report.Resolved), "unresolved", len(report.Unresolved))
	return report, nil
}

// providerPool returns the revisions that may supply capabilities: those of
// resolved modules plus the attempt's candidates, ordered by module id.
func (f *Framework) providerPool(candidates []*Revision) []*Revision {
	pool := slices.Clone(candidates)
	for _, m := range f.Modules() {
		if m.State() != ModuleResolved {
			continue
		}
		if r := m.current.Load(); r != nil && !slices.Contains(pool, r) {
			pool = append(pool, r)
		}
	}
	slices.SortFunc(pool, func(a, b *Revision) int { return int(a.module.id - b.module.id) })
	return pool
}

// filterSingletons drops a singleton revision when another singleton with the
// same name survives the hooks and is either resolved or installed earlier.
func (f *Framework) filterSingletons(agg *resolverhook.Aggregator, order []*Revision, pending map[*Revision]*wiring, pool []*Revision) {
	for _, rev := range order {
		w := pending[rev]
		if !rev.Headers().Singleton() {
			continue
		}
		name, ok := rev.SymbolicName()
		if !ok {
			continue
		}
		self := rev.Capabilities(NamespaceModule)
		if len(self) == 0 {
			continue
		}

		var collisions []resolverhook.Capability
		for _, other := range pool {
			if other == rev || !other.Headers().Singleton() {
				continue
			}
			for _, c := range other.Capabilities(NamespaceModule) {
				if c.name == name {
					collisions = append(collisions, c)
				}
			}
		}
		if len(collisions) == 0 {
			continue
		}

		cands := resolverhook.NewCandidates(collisions)
		agg.FilterSingletonCollisions(self[0], cands)
		for c := range cands.All() {
			other := c.(*Capability).rev
			ow, candidate := pending[other]
			blocking := other.module.State() == ModuleResolved ||
				(candidate && ow.reason == "" && other.module.id < rev.module.id)
			if blocking {
				w.reason = fmt.Sprintf("singleton %s collides with module %d", name, other.module.id)
				break
			}
		}
	}
}

func (f *Framework) wired(r *Revision, pending map[*Revision]*wiring) bool {
	if w, ok := pending[r]; ok {
		return w.reason == ""
	}
	return r.module.State() == ModuleResolved
}

func (f *Framework) hookFailed(err *resolverhook.HookError) {
	f.logger.Warn("resolver hook failed", "owner", err.Owner, "phase", err.Method, "err", err.Err)
	f.events.publish(Event{Kind: EventError, Owner: err.Owner, Err: err})
}
