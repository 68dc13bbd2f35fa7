// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"context"
	"io"
	"iter"
	"time"
)

type (
	// Factory negotiates module content for locations.
	//
	// Initialize is called at most once per host instance, before any call to
	// Module. Module may be called repeatedly for the same location and must
	// keep returning the same logical binding until it is rebound; it may
	// return an error at any time, which the host propagates. NewActivator is
	// called once per host start; ok == false lets the host run without one.
	Factory interface {
		Initialize(storageDir string, settings Settings) error
		Module(location string) (m Module, ok bool, err error)
		NewActivator() (a Activator, ok bool)
	}

	// Module is the binding of one location. Content may return a different
	// instance on every call, which is how a factory swaps content for the
	// next revision.
	Module interface {
		Content() (Content, error)
	}

	// Content is the full byte content of a module revision.
	Content interface {
		// Headers returns the manifest headers; ok is false when the content
		// supplies none and the host should read them from the entries.
		Headers() (headers map[string]string, ok bool, err error)
		Entries() (iter.Seq[string], error)
		Entry(name string) (e Entry, ok bool, err error)
		// Loader returns a resource loader that replaces class path lookup;
		// ok is false when the content has none.
		Loader() (l Loader, ok bool, err error)
		Open() error
		Close() error
	}

	// Entry is one item of Content. ContentLength is -1 when unknown.
	Entry interface {
		Name() string
		ContentLength() int64
		LastModified() time.Time
		Open() (io.ReadCloser, error)
	}

	// Loader resolves resources on behalf of a module.
	Loader interface {
		Resource(name string) (Entry, bool)
	}

	// Activator hooks into host start and stop.
	Activator interface {
		Start(ctx context.Context) error
		Stop(ctx context.Context) error
	}

	// Named is implemented by factories that report a name for diagnostics.
	Named interface {
		Name() string
	}
)
