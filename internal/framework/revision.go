// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/content/overlay"
	"github.com/invowk/modhost/pkg/manifest"
	"github.com/invowk/modhost/pkg/nsindex"
	"github.com/invowk/modhost/pkg/resolverhook"
)

// Capability and requirement namespaces derived from manifest headers.
const (
	NamespaceModule  = "module"
	NamespacePackage = "package"
)

type (
	// Revision is one binding of a module to its content. Everything but the
	// lazily built class path is fixed before the revision is published.
	Revision struct {
		module     *Module
		generation int64
		source     SourceKind

		headers  atomic.Pointer[manifest.Headers]
		provider content.Provider
		connect  *connect.Provider

		capabilities *nsindex.List[*Capability]
		requirements *nsindex.List[Requirement]

		// guards the class path, the providers it opened and closing
		mu       sync.Mutex
		cpBuilt  bool
		cp       []content.Provider
		cpErr    error
		owned    []content.Provider
		closed   bool
		closeErr error
	}

	// Capability is something a revision provides to others.
	Capability struct {
		namespace string
		name      string
		rev       *Revision
	}

	// Requirement is something a revision needs from others.
	Requirement struct {
		Namespace string
		Name      string
	}
)

func (c *Capability) Namespace() string { return c.namespace }

func (c *Capability) Name() string { return c.name }

// Provider returns the revision offering the capability.
func (c *Capability) Provider() resolverhook.Revision { return c.rev }

// Revision returns the concrete revision offering the capability.
func (c *Capability) Revision() *Revision { return c.rev }

func (c *Capability) String() string { return c.namespace + ":" + c.name }

func (r Requirement) String() string { return r.Namespace + ":" + r.Name }

// ID returns "<module id>.<generation>".
func (r *Revision) ID() string {
	return fmt.Sprintf("%d.%d", r.module.id, r.generation)
}

// Module returns the module the revision belongs to.
func (r *Revision) Module() *Module { return r.module }

// Generation returns the revision number within its module, starting at 1.
func (r *Revision) Generation() int64 { return r.generation }

// Source returns the content source the revision is bound to.
func (r *Revision) Source() SourceKind { return r.source }

// SymbolicName reports the module name. ok is false while the headers are
// still being read or when the module declares no name.
func (r *Revision) SymbolicName() (string, bool) {
	h := r.headers.Load()
	if h == nil {
		return "", false
	}
	return h.SymbolicName()
}

// ClassPath returns the declared class path. ok is false while the headers
// are still being read.
func (r *Revision) ClassPath() ([]string, bool) {
	h := r.headers.Load()
	if h == nil {
		return nil, false
	}
	return h.ClassPath(), true
}

// Headers returns a copy of the manifest headers.
func (r *Revision) Headers() manifest.Headers {
	h := r.headers.Load()
	if h == nil {
		return manifest.Headers{}
	}
	return h.Clone()
}

// Provider returns the wrapped content provider of the revision.
func (r *Revision) Provider() content.Provider { return r.provider }

// Content returns the negotiated content when the revision is connect bound.
func (r *Revision) Content() (connect.Content, bool) {
	if r.connect == nil {
		return nil, false
	}
	return r.connect.Content(), true
}

// Capabilities returns the capabilities in namespace, or all of them for "".
func (r *Revision) Capabilities(namespace string) []*Capability {
	if namespace == "" {
		return r.capabilities.All()
	}
	return r.capabilities.Slice(namespace)
}

// Requirements returns the requirements in namespace, or all of them for "".
func (r *Revision) Requirements(namespace string) []Requirement {
	if namespace == "" {
		return r.requirements.All()
	}
	return r.requirements.Slice(namespace)
}

// Entry returns the entry at path, or nil when it does not exist.
func (r *Revision) Entry(path string) (content.Entry, error) {
	return r.provider.Entry(path)
}

// EntryPaths lists the entries below path. ok is false when path is unknown.
func (r *Revision) EntryPaths(path string, recurse bool) ([]string, bool, error) {
	return r.provider.EntryPaths(path, recurse)
}

// Find lists the entries below dir whose name matches pattern.
func (r *Revision) Find(dir, pattern string, recurse bool) ([]string, bool, error) {
	return content.Find(r.provider, dir, pattern, recurse)
}

// Resource looks name up through the negotiated loader first and then along
// the class path. It returns nil when nothing supplies the resource.
func (r *Revision) Resource(name string) (content.Entry, error) {
	if r.connect != nil {
		loader, ok, err := r.connect.Loader()
		if err != nil {
			return nil, err
		}
		if ok {
			if e, found := loader.Resource(name); found {
				return connect.AsContentEntry(e), nil
			}
		}
	}

	cp, err := r.classPath()
	if err != nil {
		return nil, err
	}
	for _, p := range cp {
		e, err := p.Entry(name)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

// ClassPathProviders returns the providers searched by Resource, in order.
func (r *Revision) ClassPathProviders() ([]content.Provider, error) {
	cp, err := r.classPath()
	if err != nil {
		return nil, err
	}
	return append([]content.Provider(nil), cp...), nil
}

// classPath builds the class path on first use. A closed revision never
// opens nested providers.
func (r *Revision) classPath() ([]content.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRevisionClosed
	}
	if !r.cpBuilt {
		r.cp, r.cpErr = r.buildClassPath()
		r.cpBuilt = true
	}
	return r.cp, r.cpErr
}

func (r *Revision) buildClassPath() ([]content.Provider, error) {
	fw := r.module.fw
	declared, _ := r.ClassPath()
	declared = append(append([]string(nil), declared...), fw.devClassPath...)

	var (
		out      []content.Provider
		seenRoot bool
	)
	for _, entry := range declared {
		if content.Clean(entry) == "" {
			if !seenRoot {
				seenRoot = true
				out = append(out, r.provider)
			}
			continue
		}
		e, err := r.provider.Entry(entry)
		if err != nil {
			return nil, fmt.Errorf("class path entry %q: %w", entry, err)
		}
		if e == nil {
			fw.logger.Debug("class path entry not found", "module", r.module.location, "entry", entry)
			continue
		}
		if strings.HasSuffix(e.Name(), "/") {
			out = append(out, content.NewSubdirProvider(r.provider, e.Name()))
			continue
		}
		nested, err := r.openNested(e)
		if err != nil {
			return nil, fmt.Errorf("class path entry %q: %w", entry, err)
		}
		r.owned = append(r.owned, nested)
		out = append(out, nested)
	}

	if o, ok := findOverlay(r.provider); ok {
		extra, err := o.ExtraClassPath(declared)
		if err != nil {
			return nil, err
		}
		out = append(out, extra...)
	}
	return out, nil
}

// openNested opens an archive stored inside the revision's content. The
// wrapper chain sees it as non-base content.
func (r *Revision) openNested(e content.Entry) (content.Provider, error) {
	data, err := content.ReadAll(e)
	if err != nil {
		return nil, err
	}
	ap, err := content.NewArchiveProvider(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return content.Chain(ap, r, false, r.module.fw.wrappers...), nil
}

func findOverlay(p content.Provider) (*overlay.Provider, bool) {
	for p != nil {
		if o, ok := p.(*overlay.Provider); ok {
			return o, true
		}
		u, ok := p.(content.Unwrapper)
		if !ok {
			return nil, false
		}
		p = u.Unwrap()
	}
	return nil, false
}

// close releases the revision's content exactly once.
func (r *Revision) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.closeErr
	}
	r.closed = true

	var errs []error
	for _, p := range r.owned {
		errs = append(errs, p.Close())
	}
	errs = append(errs, r.provider.Close())
	r.closeErr = errors.Join(errs...)
	return r.closeErr
}

func (r *Revision) setHeaders(h manifest.Headers) {
	r.headers.Store(&h)

	var caps []*Capability
	if name, ok := h.SymbolicName(); ok {
		caps = append(caps, &Capability{namespace: NamespaceModule, name: name, rev: r})
	}
	for _, pkg := range h.Names(manifest.ExportPackage) {
		caps = append(caps, &Capability{namespace: NamespacePackage, name: pkg, rev: r})
	}
	r.capabilities = nsindex.New(caps, (*Capability).Namespace)

	var reqs []Requirement
	for _, mod := range h.Names(manifest.RequireModule) {
		reqs = append(reqs, Requirement{Namespace: NamespaceModule, Name: mod})
	}
	for _, pkg := range h.Names(manifest.ImportPackage) {
		reqs = append(reqs, Requirement{Namespace: NamespacePackage, Name: pkg})
	}
	r.requirements = nsindex.New(reqs, func(q Requirement) string { return q.Namespace })
}
