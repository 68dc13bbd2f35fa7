// SPDX-License-Identifier: MPL-2.0

package overlay

import (
	"iter"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/invowk/modhost/pkg/content"

	"github.com/charmbracelet/log"
)

type (
	// Factory wraps directory-backed base providers with an overlay.
	Factory struct {
		Roots  Roots
		Logger *log.Logger
	}

	// Provider is the overlay wrapper. Roots and the nested per-root
	// providers are resolved on first use and never rebuilt afterwards.
	Provider struct {
		content.Wrapper

		gen    content.Generation
		source Roots
		logger *log.Logger

		mu     sync.Mutex
		roots  atomic.Pointer[[]string]
		nested atomic.Pointer[[]*content.SubdirProvider]
	}
)

// Wrap returns an overlay for base when it is the module's own content and
// is backed by a directory.
func (f *Factory) Wrap(base content.Provider, gen content.Generation, isBase bool) (content.Provider, bool) {
	if !isBase || f.Roots == nil || gen == nil {
		return nil, false
	}
	if _, ok := content.AsDirBacked(base); !ok {
		return nil, false
	}
	return New(base, gen, f.Roots, f.Logger), true
}

// New returns an overlay over base. The overlay owns base.
func New(base content.Provider, gen content.Generation, roots Roots, logger *log.Logger) *Provider {
	return &Provider{
		Wrapper: content.NewWrapper(base),
		gen:     gen,
		source:  roots,
		logger:  logger,
	}
}

// OverlayRoots returns the sanitized roots for the module. known is false
// while the module's symbolic name is not yet available; nothing is cached in
// that case.
func (o *Provider) OverlayRoots() (roots []string, known bool) {
	if r := o.roots.Load(); r != nil {
		return *r, true
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if r := o.roots.Load(); r != nil {
		return *r, true
	}
	name, ok := o.gen.SymbolicName()
	if !ok {
		return nil, false
	}
	configured := o.source.Roots(name)
	r := sanitize(configured)
	if o.logger != nil && len(r) != len(configured) {
		o.logger.Debug("dropped overlay roots", "module", name, "configured", configured, "kept", r)
	}
	o.roots.Store(&r)
	return r, true
}

func (o *Provider) nestedProviders() []*content.SubdirProvider {
	if n := o.nested.Load(); n != nil {
		return *n
	}
	roots, known := o.OverlayRoots()
	if !known {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if n := o.nested.Load(); n != nil {
		return *n
	}
	n := make([]*content.SubdirProvider, len(roots))
	for i, r := range roots {
		n[i] = content.NewSubdirProvider(o.Unwrap(), r)
	}
	o.nested.Store(&n)
	return n
}

// matchingRoot returns the base entry name of the root that path falls on.
// The provider root itself never matches.
func (o *Provider) matchingRoot(path string) (string, bool, error) {
	q := content.Clean(path)
	if q == "" {
		return "", false, nil
	}
	roots, _ := o.OverlayRoots()
	base := o.Unwrap()
	for _, r := range roots {
		e, err := base.Entry(r)
		if err != nil {
			return "", false, err
		}
		if e == nil {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(q, name) || strings.HasPrefix(name, q) {
			return name, true, nil
		}
		hit, err := base.Entry(name + q)
		if err != nil {
			return "", false, err
		}
		if hit != nil {
			return name, true, nil
		}
	}
	return "", false, nil
}

// rootOnClassPath reports whether "." is on the module class path. A module
// whose metadata is not available yet is treated as having it.
func (o *Provider) rootOnClassPath() bool {
	cp, ok := o.gen.ClassPath()
	if !ok {
		return true
	}
	return slices.ContainsFunc(cp, func(e string) bool { return content.Clean(e) == "" })
}

// Entry serves on-overlay paths from the nested roots only. When the module
// root is not on its class path, on-overlay paths are hidden.
func (o *Provider) Entry(path string) (content.Entry, error) {
	_, onOverlay, err := o.matchingRoot(path)
	if err != nil {
		return nil, err
	}
	if !o.rootOnClassPath() {
		if onOverlay {
			return nil, nil
		}
		return o.Unwrap().Entry(path)
	}
	if !onOverlay {
		return o.Unwrap().Entry(path)
	}
	for _, n := range o.nestedProviders() {
		e, err := n.Entry(path)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

// ContainsDir checks the base and, when the module root is on the class
// path, every overlay root.
func (o *Provider) ContainsDir(dir string) (bool, error) {
	ok, err := o.Unwrap().ContainsDir(dir)
	if err != nil || ok || !o.rootOnClassPath() {
		return ok, err
	}
	for _, n := range o.nestedProviders() {
		ok, err := n.ContainsDir(dir)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// EntryPaths merges the base and overlay listings. Base names lose any
// overlay root prefix and duplicates are dropped in first-seen order. The
// result is absent only when no layer had information about path.
func (o *Provider) EntryPaths(path string, recurse bool) ([]string, bool, error) {
	_, onOverlay, err := o.matchingRoot(path)
	if err != nil {
		return nil, false, err
	}

	m := &merger{seen: make(map[string]struct{}), names: []string{}}
	switch {
	case !o.rootOnClassPath():
		if !onOverlay {
			err = o.addBase(m, path, recurse)
		}
	case onOverlay:
		err = o.addNested(m, path, recurse)
	default:
		if err = o.addBase(m, path, recurse); err == nil {
			err = o.addNested(m, path, recurse)
		}
	}
	if err != nil {
		return nil, false, err
	}
	if !m.contributed {
		return nil, false, nil
	}
	return m.names, true, nil
}

// Entries delegates to the base, which already holds the overlay roots.
func (o *Provider) Entries() (iter.Seq[string], error) {
	return o.Unwrap().Entries()
}

// ExtraClassPath returns the overlay roots that must be searched as class
// path entries of their own. They are needed when the declared class path
// holds an entry that is neither the module root nor covered by the overlay.
func (o *Provider) ExtraClassPath(declared []string) ([]content.Provider, error) {
	required := false
	for _, cp := range declared {
		if content.Clean(cp) == "" {
			continue
		}
		_, on, err := o.matchingRoot(cp)
		if err != nil {
			return nil, err
		}
		if !on {
			required = true
			break
		}
	}
	if !required {
		return nil, nil
	}
	nested := o.nestedProviders()
	out := make([]content.Provider, len(nested))
	for i, n := range nested {
		out[i] = n
	}
	return out, nil
}

func (o *Provider) addBase(m *merger, path string, recurse bool) error {
	names, ok, err := o.Unwrap().EntryPaths(path, recurse)
	if err != nil || !ok {
		return err
	}
	m.contributed = true
	roots, _ := o.OverlayRoots()
	for _, name := range names {
		m.add(strip(name, roots))
	}
	return nil
}

func (o *Provider) addNested(m *merger, path string, recurse bool) error {
	for _, n := range o.nestedProviders() {
		names, ok, err := n.EntryPaths(path, recurse)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		m.contributed = true
		for _, name := range names {
			m.add(name)
		}
	}
	return nil
}

func strip(name string, roots []string) string {
	for _, r := range roots {
		if rest, ok := strings.CutPrefix(name, r+"/"); ok {
			return rest
		}
	}
	return name
}

type merger struct {
	seen        map[string]struct{}
	names       []string
	contributed bool
}

func (m *merger) add(name string) {
	if name == "" {
		return
	}
	if _, dup := m.seen[name]; dup {
		return
	}
	m.seen[name] = struct{}{}
	m.names = append(m.names, name)
}
