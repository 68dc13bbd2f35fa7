// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"maps"
	"slices"
)

// Settings is an immutable set of string pairs handed to Factory.Initialize.
// The zero value is empty.
type Settings struct {
	values map[string]string
}

// NewSettings snapshots m. Later changes to m are not observed.
func NewSettings(m map[string]string) Settings {
	return Settings{values: maps.Clone(m)}
}

// Get returns the value of key.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (s Settings) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Len returns the number of pairs.
func (s Settings) Len() int {
	return len(s.values)
}

// Map returns a copy of the pairs.
func (s Settings) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// With returns a copy of s with key set to value.
func (s Settings) With(key, value string) Settings {
	m := s.Map()
	m[key] = value
	return Settings{values: m}
}
