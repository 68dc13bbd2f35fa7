// SPDX-License-Identifier: MPL-2.0

package content

import (
	"archive/zip"
	"fmt"
	"io"
	"iter"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

type (
	// ArchiveProvider serves entries from a zip archive. The central
	// directory is indexed once when the provider is created.
	ArchiveProvider struct {
		mu     sync.RWMutex
		closer io.Closer
		files  map[string]*zip.File
		names  []string
		path   string
		closed bool
	}

	zipEntry struct {
		file *zip.File
		name string
	}
)

// OpenArchive opens the zip archive at path.
func OpenArchive(path string) (*ArchiveProvider, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	a := newArchive(&rc.Reader, rc)
	a.path = path
	return a, nil
}

// NewArchiveProvider indexes an archive read from r.
func NewArchiveProvider(r io.ReaderAt, size int64) (*ArchiveProvider, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return newArchive(zr, nil), nil
}

func newArchive(zr *zip.Reader, closer io.Closer) *ArchiveProvider {
	a := &ArchiveProvider{
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
		names:  make([]string, 0, len(zr.File)),
	}
	for _, f := range zr.File {
		name := strings.TrimLeft(f.Name, "/")
		if name == "" {
			continue
		}
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		a.names = append(a.names, name)
	}
	return a
}

// Path returns the archive file path, or the empty string for in-memory
// archives.
func (a *ArchiveProvider) Path() string {
	return a.path
}

// Entry returns the archive member at p. Directories without their own
// member are synthesized from deeper names.
func (a *ArchiveProvider) Entry(p string) (Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}

	p = Clean(p)
	if p == "" {
		return nil, nil
	}
	if f, ok := a.files[p]; ok {
		return &zipEntry{file: f, name: p}, nil
	}
	if strings.HasSuffix(p, "/") {
		return a.impliedDir(p), nil
	}
	if f, ok := a.files[p+"/"]; ok {
		return &zipEntry{file: f, name: p + "/"}, nil
	}
	return a.impliedDir(p + "/"), nil
}

func (a *ArchiveProvider) impliedDir(dir string) Entry {
	for _, name := range a.names {
		if strings.HasPrefix(name, dir) {
			return DirEntry(dir, time.Time{})
		}
	}
	return nil
}

// Entries yields every member name in archive order.
func (a *ArchiveProvider) Entries() (iter.Seq[string], error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}
	return slices.Values(slices.Clone(a.names)), nil
}

// ContainsDir reports whether any member lives under dir.
func (a *ArchiveProvider) ContainsDir(dir string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false, ErrClosed
	}
	prefix := DirPrefix(dir)
	if prefix == "" {
		return true, nil
	}
	for _, name := range a.names {
		if strings.HasPrefix(name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// EntryPaths lists member names under p.
func (a *ArchiveProvider) EntryPaths(p string, recurse bool) ([]string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, false, ErrClosed
	}
	names, ok := ListPaths(slices.Values(a.names), p, recurse)
	return names, ok, nil
}

// Close releases the underlying archive file. Closing twice is a no-op.
func (a *ArchiveProvider) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (z *zipEntry) Name() string { return z.name }

func (z *zipEntry) Size() int64 {
	if z.file.FileInfo().IsDir() {
		return 0
	}
	return zipSize(z.file.UncompressedSize64)
}

// zipSize converts a zip64 size, saturating at MaxInt64 so that oversized
// entries stay known-size and are rejected by ReadAll.
func zipSize(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(u)
}

func (z *zipEntry) ModTime() time.Time { return z.file.Modified }

func (z *zipEntry) Open() (io.ReadCloser, error) {
	return z.file.Open()
}
