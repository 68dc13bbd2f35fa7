// SPDX-License-Identifier: MPL-2.0

package resolverhook

type (
	// Revision is the view of a module revision that hooks can inspect.
	Revision interface {
		ID() string
		SymbolicName() (string, bool)
	}

	// Capability is something a revision provides, in a namespace.
	Capability interface {
		Namespace() string
		Name() string
		Provider() Revision
	}

	// Hook filters resolver decisions. Every method may remove candidates but
	// never add them. A returned error means the call had no effect.
	Hook interface {
		Begin() error
		FilterResolvable(candidates *Candidates[Revision]) error
		FilterSingletonCollisions(singleton Capability, collisions *Candidates[Capability]) error
		FilterMatches(requirer Revision, candidates *Candidates[Capability]) error
		End() error
	}

	// Registration is one registered hook as seen by the registry. Active
	// reports whether the registrant still offers the hook; Release drops the
	// hold a snapshot took on it.
	Registration interface {
		Hook() Hook
		Owner() string
		Active() bool
		Release()
	}

	// Registry enumerates the currently registered hooks in registration
	// order. Every returned registration is held until released.
	Registry interface {
		Snapshot() []Registration
	}

	// Funcs adapts plain functions to Hook. Nil fields do nothing.
	Funcs struct {
		OnBegin                     func() error
		OnFilterResolvable          func(*Candidates[Revision]) error
		OnFilterSingletonCollisions func(Capability, *Candidates[Capability]) error
		OnFilterMatches             func(Revision, *Candidates[Capability]) error
		OnEnd                       func() error
	}
)

func (f Funcs) Begin() error {
	if f.OnBegin == nil {
		return nil
	}
	return f.OnBegin()
}

func (f Funcs) FilterResolvable(c *Candidates[Revision]) error {
	if f.OnFilterResolvable == nil {
		return nil
	}
	return f.OnFilterResolvable(c)
}

func (f Funcs) FilterSingletonCollisions(s Capability, c *Candidates[Capability]) error {
	if f.OnFilterSingletonCollisions == nil {
		return nil
	}
	return f.OnFilterSingletonCollisions(s, c)
}

func (f Funcs) FilterMatches(r Revision, c *Candidates[Capability]) error {
	if f.OnFilterMatches == nil {
		return nil
	}
	return f.OnFilterMatches(r, c)
}

func (f Funcs) End() error {
	if f.OnEnd == nil {
		return nil
	}
	return f.OnEnd()
}
