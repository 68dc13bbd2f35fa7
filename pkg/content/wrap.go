// SPDX-License-Identifier: MPL-2.0

package content

import "iter"

type (
	// Generation is the view of a module revision that wrapper factories
	// receive while the revision's content is being bound. Metadata may not
	// be available yet, which is reported through the ok results.
	Generation interface {
		SymbolicName() (string, bool)
		ClassPath() ([]string, bool)
	}

	// WrapperFactory decides whether to decorate a provider. Returning false
	// leaves base untouched. isBase is true for the module's own content and
	// false for nested content such as embedded archives.
	WrapperFactory interface {
		Wrap(base Provider, gen Generation, isBase bool) (Provider, bool)
	}

	// WrapperFactoryFunc adapts a function to WrapperFactory.
	WrapperFactoryFunc func(base Provider, gen Generation, isBase bool) (Provider, bool)

	// Wrapper owns exactly one provider and delegates every operation to it.
	// Decorators embed Wrapper and override the operations they handle.
	Wrapper struct {
		wrapped Provider
	}
)

// Wrap calls f.
func (f WrapperFactoryFunc) Wrap(base Provider, gen Generation, isBase bool) (Provider, bool) {
	return f(base, gen, isBase)
}

// NewWrapper returns a Wrapper that owns p.
func NewWrapper(p Provider) Wrapper {
	return Wrapper{wrapped: p}
}

// Unwrap returns the wrapped provider.
func (w Wrapper) Unwrap() Provider { return w.wrapped }

// Entry delegates to the wrapped provider.
func (w Wrapper) Entry(path string) (Entry, error) { return w.wrapped.Entry(path) }

// Entries delegates to the wrapped provider.
func (w Wrapper) Entries() (iter.Seq[string], error) { return w.wrapped.Entries() }

// ContainsDir delegates to the wrapped provider.
func (w Wrapper) ContainsDir(dir string) (bool, error) { return w.wrapped.ContainsDir(dir) }

// EntryPaths delegates to the wrapped provider, keeping its absent result.
func (w Wrapper) EntryPaths(path string, recurse bool) ([]string, bool, error) {
	return w.wrapped.EntryPaths(path, recurse)
}

// Close closes the wrapped provider.
func (w Wrapper) Close() error { return w.wrapped.Close() }

// Chain applies factories in order. Each factory sees the result of the
// previous one as its base and may decline to wrap.
func Chain(base Provider, gen Generation, isBase bool, factories ...WrapperFactory) Provider {
	p := base
	for _, f := range factories {
		if f == nil {
			continue
		}
		if wrapped, ok := f.Wrap(p, gen, isBase); ok && wrapped != nil {
			p = wrapped
		}
	}
	return p
}
