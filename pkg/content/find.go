// SPDX-License-Identifier: MPL-2.0

package content

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Find lists the entries under dir whose last path element matches pattern.
// An empty pattern matches everything. ok is false when the provider has no
// information about dir.
func Find(p Provider, dir, pattern string, recurse bool) ([]string, bool, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, false, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	names, ok, err := p.EntryPaths(dir, recurse)
	if err != nil || !ok {
		return nil, ok, err
	}

	out := []string{}
	for _, name := range names {
		base := path.Base(strings.TrimSuffix(name, "/"))
		if matched, _ := doublestar.Match(pattern, base); matched {
			out = append(out, name)
		}
	}
	return out, true, nil
}
