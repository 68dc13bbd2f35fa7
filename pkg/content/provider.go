// SPDX-License-Identifier: MPL-2.0

package content

import (
	"iter"
	"strings"
)

type (
	// Provider gives access to the entries of one module revision.
	//
	// Entry returns nil and no error when the path does not exist.
	// EntryPaths reports ok == false when the provider knows nothing about
	// path; an existing directory with no children yields ok == true and an
	// empty slice. Close releases the provider and everything it wraps.
	Provider interface {
		Entry(path string) (Entry, error)
		Entries() (iter.Seq[string], error)
		ContainsDir(dir string) (bool, error)
		EntryPaths(path string, recurse bool) (names []string, ok bool, err error)
		Close() error
	}

	// DirBacked is implemented by providers whose content is a directory on
	// the local filesystem.
	DirBacked interface {
		Dir() string
	}

	// Unwrapper is implemented by decorators to expose the provider they own.
	Unwrapper interface {
		Unwrap() Provider
	}
)

// IsRoot reports whether path denotes the provider root.
func IsRoot(path string) bool {
	return path == "/" || path == "."
}

// Clean strips leading separators from path. The root forms "/" and "."
// become the empty string.
func Clean(path string) string {
	if IsRoot(path) {
		return ""
	}
	return strings.TrimLeft(path, "/")
}

// DirPrefix returns the directory form of path: empty for the root, otherwise
// the cleaned path with exactly one trailing slash.
func DirPrefix(path string) string {
	p := strings.TrimRight(Clean(path), "/")
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// Innermost follows Unwrap until it reaches a provider that wraps nothing.
func Innermost(p Provider) Provider {
	for {
		u, ok := p.(Unwrapper)
		if !ok {
			return p
		}
		inner := u.Unwrap()
		if inner == nil {
			return p
		}
		p = inner
	}
}

// AsDirBacked returns the first provider in the wrapper chain of p that is
// backed by a directory.
func AsDirBacked(p Provider) (DirBacked, bool) {
	for p != nil {
		if d, ok := p.(DirBacked); ok {
			return d, true
		}
		u, ok := p.(Unwrapper)
		if !ok {
			return nil, false
		}
		p = u.Unwrap()
	}
	return nil, false
}

// ListPaths computes an EntryPaths result over a flat list of entry names.
// Directories that are only implied by deeper names are reported too. ok is
// false when no name lives under path, unless path is the root.
func ListPaths(names iter.Seq[string], path string, recurse bool) ([]string, bool) {
	prefix := DirPrefix(path)
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	found := prefix == ""
	for name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		found = true
		rest := name[len(prefix):]
		if rest == "" {
			continue
		}
		for i := 0; i < len(rest); i++ {
			if rest[i] != '/' {
				continue
			}
			add(prefix + rest[:i+1])
			if !recurse {
				break
			}
		}
		if recurse || !strings.Contains(strings.TrimSuffix(rest, "/"), "/") {
			add(name)
		}
	}
	if !found {
		return nil, false
	}
	if out == nil {
		out = []string{}
	}
	return out, true
}
