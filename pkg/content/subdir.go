// SPDX-License-Identifier: MPL-2.0

package content

import (
	"iter"
	"strings"
)

// SubdirProvider is a view of another provider rooted at one of its
// directories. Paths are resolved relative to that directory first; a path
// that already carries the directory prefix is accepted as a second attempt.
// Returned names are relative to the directory.
//
// The view does not own the base provider; Close leaves it open.
type SubdirProvider struct {
	base   Provider
	root   string
	prefix string
}

// NewSubdirProvider returns a view of base rooted at root.
func NewSubdirProvider(base Provider, root string) *SubdirProvider {
	prefix := DirPrefix(root)
	return &SubdirProvider{
		base:   base,
		root:   strings.TrimSuffix(prefix, "/"),
		prefix: prefix,
	}
}

// Root returns the directory the view is rooted at.
func (s *SubdirProvider) Root() string {
	return s.root
}

// candidates returns the base paths to try for p, most specific first.
func (s *SubdirProvider) candidates(p string) []string {
	p = Clean(p)
	out := []string{s.prefix + p}
	if strings.HasPrefix(p, s.prefix) && len(p) > len(s.prefix) {
		out = append(out, p)
	}
	return out
}

// Entry returns the entry at p inside the view.
func (s *SubdirProvider) Entry(p string) (Entry, error) {
	if Clean(p) == "" {
		return nil, nil
	}
	for _, candidate := range s.candidates(p) {
		e, err := s.base.Entry(candidate)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return Rename(e, strings.TrimPrefix(e.Name(), s.prefix)), nil
		}
	}
	return nil, nil
}

// Entries yields the base names under the view root, relative to it.
func (s *SubdirProvider) Entries() (iter.Seq[string], error) {
	names, err := s.base.Entries()
	if err != nil {
		return nil, err
	}
	return func(yield func(string) bool) {
		for name := range names {
			rel, ok := strings.CutPrefix(name, s.prefix)
			if !ok || rel == "" {
				continue
			}
			if !yield(rel) {
				return
			}
		}
	}, nil
}

// ContainsDir reports whether dir exists inside the view.
func (s *SubdirProvider) ContainsDir(dir string) (bool, error) {
	for _, candidate := range s.candidates(dir) {
		ok, err := s.base.ContainsDir(candidate)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// EntryPaths lists p inside the view with the view root stripped from every
// name.
func (s *SubdirProvider) EntryPaths(p string, recurse bool) ([]string, bool, error) {
	for _, candidate := range s.candidates(p) {
		names, ok, err := s.base.EntryPaths(candidate, recurse)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		out := make([]string, 0, len(names))
		for _, name := range names {
			if rel, cut := strings.CutPrefix(name, s.prefix); cut && rel != "" {
				out = append(out, rel)
			}
		}
		return out, true, nil
	}
	return nil, false, nil
}

// Close does nothing; the base provider belongs to someone else.
func (s *SubdirProvider) Close() error {
	return nil
}
