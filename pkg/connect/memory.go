// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"bytes"
	"io"
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type (
	// BytesEntry is an Entry over an in-memory payload.
	BytesEntry struct {
		name    string
		data    []byte
		modTime time.Time
		// length overrides the reported length; -1 hides it.
		length int64
	}

	// MemoryContent is Content held in memory. Populate it with AddBytes
	// and SetLoader before handing it to a module.
	MemoryContent struct {
		Guard

		mu      sync.RWMutex
		headers map[string]string
		order   []string
		entries map[string]*BytesEntry
		loader  Loader

		opens  atomic.Int32
		closes atomic.Int32
	}

	// MapLoader is a Loader backed by a name to entry map.
	MapLoader map[string]Entry

	// MemoryModule is a Module whose content can be replaced with
	// SetContent. Replacing it never touches the instance handed out
	// before.
	MemoryModule struct {
		mu      sync.RWMutex
		content Content
	}
)

// NewBytesEntry returns an entry reporting its real length.
func NewBytesEntry(name string, data []byte, modTime time.Time) *BytesEntry {
	return &BytesEntry{name: name, data: bytes.Clone(data), modTime: modTime, length: int64(len(data))}
}

// WithUnknownLength returns a copy of e that reports a length of -1.
func (e *BytesEntry) WithUnknownLength() *BytesEntry {
	c := *e
	c.length = -1
	return &c
}

// Name returns the entry name.
func (e *BytesEntry) Name() string { return e.name }

// ContentLength returns the payload length, or -1.
func (e *BytesEntry) ContentLength() int64 { return e.length }

// LastModified returns the modification time.
func (e *BytesEntry) LastModified() time.Time { return e.modTime }

// Open returns a reader over the payload.
func (e *BytesEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

// NewMemoryContent returns closed content with the given headers. A nil
// map means the content supplies no headers.
func NewMemoryContent(headers map[string]string) *MemoryContent {
	return &MemoryContent{
		headers: maps.Clone(headers),
		entries: make(map[string]*BytesEntry),
	}
}

// AddBytes adds or replaces an entry and returns c for chaining.
func (c *MemoryContent) AddBytes(name string, data []byte, modTime time.Time) *MemoryContent {
	return c.AddEntry(NewBytesEntry(name, data, modTime))
}

// AddEntry adds or replaces an entry and returns c for chaining.
func (c *MemoryContent) AddEntry(e *BytesEntry) *MemoryContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[e.name]; !exists {
		c.order = append(c.order, e.name)
	}
	c.entries[e.name] = e
	return c
}

// SetLoader installs the resource loader and returns c for chaining.
func (c *MemoryContent) SetLoader(l Loader) *MemoryContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loader = l
	return c
}

// Open opens the content.
func (c *MemoryContent) Open() error {
	if err := c.Guard.Open(); err != nil {
		return err
	}
	c.opens.Add(1)
	return nil
}

// Close closes the content.
func (c *MemoryContent) Close() error {
	if err := c.Guard.Close(); err != nil {
		return err
	}
	c.closes.Add(1)
	return nil
}

// OpenCount returns how many times the content was opened.
func (c *MemoryContent) OpenCount() int { return int(c.opens.Load()) }

// CloseCount returns how many times the content was closed.
func (c *MemoryContent) CloseCount() int { return int(c.closes.Load()) }

// Headers returns a copy of the headers.
func (c *MemoryContent) Headers() (map[string]string, bool, error) {
	if err := c.Check("headers"); err != nil {
		return nil, false, err
	}
	if c.headers == nil {
		return nil, false, nil
	}
	return maps.Clone(c.headers), true, nil
}

// Entries yields entry names in insertion order.
func (c *MemoryContent) Entries() (iter.Seq[string], error) {
	if err := c.Check("entries"); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Values(slices.Clone(c.order)), nil
}

// Entry returns the named entry.
func (c *MemoryContent) Entry(name string) (Entry, bool, error) {
	if err := c.Check("entry"); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false, nil
	}
	return e, true, nil
}

// Loader returns the resource loader, if any.
func (c *MemoryContent) Loader() (Loader, bool, error) {
	if err := c.Check("loader"); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loader, c.loader != nil, nil
}

// Resource returns the entry registered under name.
func (m MapLoader) Resource(name string) (Entry, bool) {
	e, ok := m[name]
	return e, ok
}

// NewMemoryModule returns a module bound to c.
func NewMemoryModule(c Content) *MemoryModule {
	return &MemoryModule{content: c}
}

// Content returns the currently bound content.
func (m *MemoryModule) Content() (Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content, nil
}

// SetContent binds c for the next revision.
func (m *MemoryModule) SetContent(c Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = c
}
