// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/manifest"
)

// errSameContent is returned by bind when the negotiator hands back the
// content the previous revision is already bound to.
var errSameContent = errors.New("negotiator returned the bound content")

// Install installs the module at loc. Installing a location twice returns
// the existing module; concurrent installs of one location bind it once.
func (f *Framework) Install(ctx context.Context, loc Location) (*Module, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if err := f.checkUsable(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m, ok := f.ModuleAt(loc); ok {
		return m, nil
	}

	v, err, _ := f.installs.Do(string(loc), func() (any, error) {
		if m, ok := f.ModuleAt(loc); ok {
			return m, nil
		}

		// The id is assigned once content is bound; a failed bind uses none.
		m := newModule(f, 0, loc)
		rev, err := f.bind(m, 1, "", nil)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		id := f.nextID
		f.nextID++
		m.id = id
		m.current.Store(rev)
		f.modules[id] = m
		f.byLocation[loc] = m
		f.mu.Unlock()

		if err := f.persist(); err != nil {
			f.logger.Warn("persisting module table", "err", err)
		}
		name, _ := rev.SymbolicName()
		f.logger.Info("installed module", "id", id, "location", loc, "name", name, "source", rev.source)
		f.events.publish(Event{Kind: EventInstalled, Module: m})
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

// Update rebinds m to fresh content. The new revision is published before
// the previous one is closed, so readers never see a mix of both. When the
// negotiator returns the content m is already bound to, nothing changes.
func (f *Framework) Update(ctx context.Context, m *Module) error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == ModuleUninstalled {
		return &ModuleError{ID: m.id, Location: m.location, Op: "update", Err: ErrUninstalled}
	}

	old := m.current.Load()
	var gen int64 = 1
	if old != nil {
		gen = old.generation + 1
	}
	rev, err := f.bind(m, gen, "", old)
	if errors.Is(err, errSameContent) {
		f.logger.Debug("update kept bound content", "id", m.id, "location", m.location)
		return nil
	}
	if err != nil {
		return &ModuleError{ID: m.id, Location: m.location, Op: "update", Err: err}
	}

	m.current.Store(rev)
	m.state.Store(int32(ModuleInstalled))
	if old != nil {
		if err := old.close(); err != nil {
			f.logger.Warn("closing replaced revision", "id", m.id, "revision", old.ID(), "err", err)
			f.events.publish(Event{Kind: EventError, Module: m, Err: err})
		}
	}

	if err := f.persist(); err != nil {
		f.logger.Warn("persisting module table", "err", err)
	}
	f.logger.Info("updated module", "id", m.id, "revision", rev.ID())
	f.events.publish(Event{Kind: EventUpdated, Module: m})
	return nil
}

// Refresh resolves mods again without rebinding their content. With no
// arguments every installed module is refreshed.
func (f *Framework) Refresh(ctx context.Context, mods ...*Module) (*ResolveReport, error) {
	if err := f.checkUsable(); err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		mods = f.Modules()
	}
	for _, m := range mods {
		m.state.CompareAndSwap(int32(ModuleResolved), int32(ModuleInstalled))
	}
	return f.Resolve(ctx, mods...)
}

// Uninstall removes m and closes its content.
func (f *Framework) Uninstall(ctx context.Context, m *Module) error {
	if err := f.checkUsable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == ModuleUninstalled {
		return &ModuleError{ID: m.id, Location: m.location, Op: "uninstall", Err: ErrUninstalled}
	}
	m.state.Store(int32(ModuleUninstalled))

	f.mu.Lock()
	delete(f.modules, m.id)
	if f.byLocation[m.location] == m {
		delete(f.byLocation, m.location)
	}
	f.mu.Unlock()

	var closeErr error
	if r := m.current.Load(); r != nil {
		closeErr = r.close()
	}
	if err := f.persist(); err != nil {
		f.logger.Warn("persisting module table", "err", err)
	}
	f.logger.Info("uninstalled module", "id", m.id, "location", m.location)
	f.events.publish(Event{Kind: EventUninstalled, Module: m})
	return closeErr
}

// bind creates a revision of m. The negotiator is asked first; when it
// declines, the location is opened from the filesystem. want restricts the
// source when a persisted module is rebound.
func (f *Framework) bind(m *Module, gen int64, want SourceKind, prev *Revision) (*Revision, error) {
	loc := m.location
	rev := &Revision{module: m, generation: gen}

	var base content.Provider
	if f.factory != nil && (want == "" || want == SourceConnect) {
		c, ok, err := connect.Negotiate(f.factory, string(loc))
		if err != nil {
			return nil, &ContentError{Location: loc, Err: err}
		}
		if ok {
			if prev != nil && prev.connect != nil && prev.connect.Content() == c {
				return nil, errSameContent
			}
			cp := connect.NewProvider(c)
			if err := cp.Open(); err != nil {
				return nil, &ContentError{Location: loc, Err: err}
			}
			rev.connect = cp
			rev.source = SourceConnect
			base = cp
		} else if want == SourceConnect {
			return nil, &ContentError{Location: loc, Err: fmt.Errorf("%w: negotiator %s no longer provides it", ErrNoContent, connect.NegotiatorName(f.factory))}
		}
	}

	if base == nil {
		p, kind, err := openPath(string(loc))
		if err != nil {
			return nil, &ContentError{Location: loc, Err: err}
		}
		if want != "" && want != kind {
			_ = p.Close()
			return nil, &ContentError{Location: loc, Err: fmt.Errorf("%w: expected %s content, found %s", ErrNoContent, want, kind)}
		}
		rev.source = kind
		base = p
	}

	rev.provider = content.Chain(base, rev, true, f.wrappers...)

	h, err := f.readHeaders(rev)
	if err != nil {
		_ = rev.provider.Close()
		return nil, &ContentError{Location: loc, Err: err}
	}
	rev.setHeaders(h)
	return rev, nil
}

func openPath(path string) (content.Provider, SourceKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNoContent
		}
		return nil, "", err
	}
	if info.IsDir() {
		p, err := content.NewDirProvider(path)
		return p, SourceDir, err
	}
	p, err := content.OpenArchive(path)
	return p, SourceArchive, err
}

// readHeaders prefers headers supplied by negotiated content and falls back
// to the manifest entry.
func (f *Framework) readHeaders(rev *Revision) (manifest.Headers, error) {
	if rev.connect != nil {
		h, ok, err := rev.connect.Headers()
		if err != nil {
			return nil, err
		}
		if ok {
			return manifest.Headers(h), nil
		}
	}

	e, err := rev.provider.Entry(manifest.Path)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return manifest.Headers{}, nil
	}
	data, err := content.ReadAll(e)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(bytes.NewReader(data))
}
