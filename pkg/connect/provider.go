// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/invowk/modhost/pkg/content"
)

type (
	// Provider adapts negotiated Content to content.Provider. It owns the
	// content: Open opens it once and Close closes it exactly once. Every
	// accessor reports ErrNotOpen while the content is not open.
	Provider struct {
		c Content

		mu     sync.Mutex
		opened bool
		closed bool
	}

	contentEntry struct {
		Entry
	}
)

// NewProvider wraps c without opening it.
func NewProvider(c Content) *Provider {
	return &Provider{c: c}
}

// AsContentEntry presents a connect entry as a content.Entry.
func AsContentEntry(e Entry) content.Entry {
	if e == nil {
		return nil
	}
	return contentEntry{Entry: e}
}

func (e contentEntry) Size() int64        { return e.ContentLength() }
func (e contentEntry) ModTime() time.Time { return e.LastModified() }

// Content returns the wrapped content.
func (p *Provider) Content() Content {
	return p.c
}

// Open opens the wrapped content. Opening a provider twice, or after it was
// closed, is a state error.
func (p *Provider) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return &StateError{Op: "open", Err: ErrAlreadyClosed}
	}
	if p.opened {
		return &StateError{Op: "open", Err: ErrAlreadyOpen}
	}
	if err := p.c.Open(); err != nil {
		return err
	}
	p.opened = true
	return nil
}

// Close closes the wrapped content if this provider opened it. Further calls
// are no-ops.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.opened {
		return nil
	}
	return p.c.Close()
}

// check rejects access outside the provider's own open period, even when
// the content was reopened by another provider since.
func (p *Provider) check(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened || p.closed {
		return &StateError{Op: op, Err: ErrNotOpen}
	}
	return nil
}

// Headers returns the content headers.
func (p *Provider) Headers() (map[string]string, bool, error) {
	if err := p.check("headers"); err != nil {
		return nil, false, err
	}
	return p.c.Headers()
}

// Loader returns the content resource loader.
func (p *Provider) Loader() (Loader, bool, error) {
	if err := p.check("loader"); err != nil {
		return nil, false, err
	}
	return p.c.Loader()
}

// Entry returns the entry at path. Directories without an entry of their own
// are synthesized from deeper names.
func (p *Provider) Entry(path string) (content.Entry, error) {
	if err := p.check("entry"); err != nil {
		return nil, err
	}
	path = content.Clean(path)
	if path == "" {
		return nil, nil
	}
	e, ok, err := p.c.Entry(path)
	if err != nil {
		return nil, err
	}
	if ok {
		return AsContentEntry(e), nil
	}

	dir := content.DirPrefix(path)
	if dir != path {
		if e, ok, err := p.c.Entry(dir); err != nil || ok {
			return AsContentEntry(e), err
		}
	}
	found, err := p.ContainsDir(dir)
	if err != nil || !found {
		return nil, err
	}
	return content.DirEntry(dir, time.Time{}), nil
}

// Entries yields the content entry names.
func (p *Provider) Entries() (iter.Seq[string], error) {
	if err := p.check("entries"); err != nil {
		return nil, err
	}
	return p.c.Entries()
}

// ContainsDir reports whether any entry lives under dir.
func (p *Provider) ContainsDir(dir string) (bool, error) {
	names, err := p.Entries()
	if err != nil {
		return false, err
	}
	prefix := content.DirPrefix(dir)
	if prefix == "" {
		return true, nil
	}
	for name := range names {
		if strings.HasPrefix(name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// EntryPaths lists entry names under path derived from the flat name list.
func (p *Provider) EntryPaths(path string, recurse bool) ([]string, bool, error) {
	names, err := p.Entries()
	if err != nil {
		return nil, false, err
	}
	out, ok := content.ListPaths(names, path, recurse)
	return out, ok, nil
}
