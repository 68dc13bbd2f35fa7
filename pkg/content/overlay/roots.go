// SPDX-License-Identifier: MPL-2.0

package overlay

import "strings"

// WildcardModule is the MapRoots key that applies to every module without
// its own entry.
const WildcardModule = "*"

type (
	// Roots supplies the overlay roots configured for a module.
	Roots interface {
		Roots(symbolicName string) []string
	}

	// StaticRoots applies the same roots to every module.
	StaticRoots []string

	// MapRoots holds roots per symbolic name with a WildcardModule fallback.
	MapRoots map[string][]string
)

// Roots returns s for every module.
func (s StaticRoots) Roots(string) []string { return s }

// Roots returns the roots of symbolicName, or the wildcard roots.
func (m MapRoots) Roots(symbolicName string) []string {
	if r, ok := m[symbolicName]; ok {
		return r
	}
	return m[WildcardModule]
}

// sanitize trims separators, drops roots that climb out of the module with
// "..", and removes duplicates while keeping the configured order.
func sanitize(roots []string) []string {
	out := make([]string, 0, len(roots))
	seen := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		r = strings.Trim(strings.TrimSpace(r), "/")
		if r == "" || r == "." || strings.Contains(r, "..") {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
