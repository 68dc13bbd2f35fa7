// SPDX-License-Identifier: MPL-2.0

package resolverhook

import (
	"iter"
	"slices"
)

const (
	alive uint8 = iota
	removed
	staged
)

// Candidates is a shrinkable view over a fixed set of items. Items can be
// removed but never added. Removals made during one hook call are staged and
// only committed when that call succeeds.
type Candidates[T comparable] struct {
	items []T
	state []uint8
	live  int
}

// NewCandidates returns a view over a copy of items.
func NewCandidates[T comparable](items []T) *Candidates[T] {
	return &Candidates[T]{
		items: slices.Clone(items),
		state: make([]uint8, len(items)),
		live:  len(items),
	}
}

// Len returns the number of surviving items.
func (c *Candidates[T]) Len() int {
	return c.live
}

// Contains reports whether v is still a candidate.
func (c *Candidates[T]) Contains(v T) bool {
	for i, item := range c.items {
		if c.state[i] == alive && item == v {
			return true
		}
	}
	return false
}

// All yields the surviving items in their original order.
func (c *Candidates[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i, item := range c.items {
			if c.state[i] != alive {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// Items returns the surviving items in their original order.
func (c *Candidates[T]) Items() []T {
	out := make([]T, 0, c.live)
	for v := range c.All() {
		out = append(out, v)
	}
	return out
}

// Remove drops v and reports whether it was still present. Removing an item
// that is already gone does nothing.
func (c *Candidates[T]) Remove(v T) bool {
	return c.RemoveFunc(func(item T) bool { return item == v }) > 0
}

// RemoveFunc drops every surviving item for which fn returns true and
// returns how many were dropped.
func (c *Candidates[T]) RemoveFunc(fn func(T) bool) int {
	n := 0
	for i, item := range c.items {
		if c.state[i] == alive && fn(item) {
			c.state[i] = staged
			n++
		}
	}
	c.live -= n
	return n
}

func (c *Candidates[T]) commit() {
	for i, s := range c.state {
		if s == staged {
			c.state[i] = removed
		}
	}
}

func (c *Candidates[T]) rollback() {
	for i, s := range c.state {
		if s == staged {
			c.state[i] = alive
			c.live++
		}
	}
}
