// SPDX-License-Identifier: MPL-2.0

package content

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var errStopWalk = errors.New("stop walk")

type (
	// DirProvider serves entries from a directory. All access goes through an
	// afero filesystem rooted at the directory, so paths cannot escape it.
	DirProvider struct {
		fs  afero.Fs
		dir string
	}

	fileEntry struct {
		fs   afero.Fs
		name string
		info os.FileInfo
	}
)

// NewDirProvider returns a provider over dir on the operating system
// filesystem.
func NewDirProvider(dir string) (*DirProvider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory %q: %w", dir, err)
	}
	return NewDirProviderFs(afero.NewOsFs(), abs)
}

// NewDirProviderFs returns a provider over dir on the given filesystem.
func NewDirProviderFs(base afero.Fs, dir string) (*DirProvider, error) {
	info, err := base.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open directory %q: %w", dir, fs.ErrInvalid)
	}
	return &DirProvider{fs: afero.NewBasePathFs(base, dir), dir: dir}, nil
}

// Dir returns the directory the provider serves.
func (d *DirProvider) Dir() string {
	return d.dir
}

// Entry returns the file or directory at p. Directories are reported with a
// trailing slash; a path with a trailing slash never matches a regular file.
func (d *DirProvider) Entry(p string) (Entry, error) {
	p = Clean(p)
	wantDir := strings.HasSuffix(p, "/")
	p = strings.TrimRight(p, "/")
	if p == "" {
		return nil, nil
	}

	info, err := d.fs.Stat(p)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %q: %w", p, err)
	}
	if info.IsDir() {
		return &fileEntry{fs: d.fs, name: p + "/", info: info}, nil
	}
	if wantDir {
		return nil, nil
	}
	return &fileEntry{fs: d.fs, name: p, info: info}, nil
}

// Entries walks the directory lazily in lexical pre-order.
func (d *DirProvider) Entries() (iter.Seq[string], error) {
	return func(yield func(string) bool) {
		d.walk("", func(name string) bool { return yield(name) }) //nolint:errcheck // enumeration is best-effort
	}, nil
}

// ContainsDir reports whether dir exists and is a directory.
func (d *DirProvider) ContainsDir(dir string) (bool, error) {
	dir = strings.TrimRight(Clean(dir), "/")
	if dir == "" {
		return true, nil
	}
	info, err := d.fs.Stat(dir)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", dir, err)
	}
	return info.IsDir(), nil
}

// EntryPaths lists the children of p, or every descendant when recurse is
// set. ok is false when p is not a directory.
func (d *DirProvider) EntryPaths(p string, recurse bool) ([]string, bool, error) {
	prefix := DirPrefix(p)
	isDir, err := d.ContainsDir(prefix)
	if err != nil || !isDir {
		return nil, false, err
	}

	out := []string{}
	if recurse {
		err := d.walk(prefix, func(name string) bool {
			out = append(out, name)
			return true
		})
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}

	infos, err := afero.ReadDir(d.fs, dirOrDot(prefix))
	if err != nil {
		return nil, false, fmt.Errorf("read directory %q: %w", prefix, err)
	}
	for _, info := range infos {
		name := prefix + info.Name()
		if info.IsDir() {
			name += "/"
		}
		out = append(out, name)
	}
	return out, true, nil
}

// Close is a no-op; directory providers hold no open handles.
func (d *DirProvider) Close() error {
	return nil
}

func (d *DirProvider) walk(prefix string, visit func(name string) bool) error {
	root := dirOrDot(prefix)
	err := afero.Walk(d.fs, root, func(fsPath string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := strings.TrimPrefix(filepath.ToSlash(fsPath), "./")
		if name == "." || name == strings.TrimSuffix(prefix, "/") {
			return nil
		}
		if info.IsDir() {
			name += "/"
		}
		if !visit(name) {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return fmt.Errorf("walk %q: %w", root, err)
	}
	return nil
}

func dirOrDot(prefix string) string {
	p := strings.TrimSuffix(prefix, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) || errors.Is(err, syscallNotDir)
}

func (e *fileEntry) Name() string { return e.name }

func (e *fileEntry) Size() int64 {
	if e.info.IsDir() {
		return 0
	}
	return e.info.Size()
}

func (e *fileEntry) ModTime() time.Time { return e.info.ModTime() }

func (e *fileEntry) Open() (io.ReadCloser, error) {
	if e.info.IsDir() {
		return nil, fmt.Errorf("open %q: %w", e.name, ErrIsDirectory)
	}
	f, err := e.fs.Open(e.name)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", e.name, err)
	}
	return f, nil
}
