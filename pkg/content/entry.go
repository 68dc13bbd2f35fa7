// SPDX-License-Identifier: MPL-2.0

package content

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// MaxEntrySize is the largest entry, in bytes, that ReadAll will pre-allocate.
const MaxEntrySize = math.MaxInt32 - 8

var (
	// ErrEntryTooLarge is returned when an entry reports a size above MaxEntrySize.
	ErrEntryTooLarge = errors.New("entry too large")
	// ErrIsDirectory is returned when opening the payload of a directory entry.
	ErrIsDirectory = errors.New("entry is a directory")
	// ErrClosed is returned by providers that were closed by their owner.
	ErrClosed = errors.New("content provider closed")
)

type (
	// Entry is one immutable item of a Provider.
	Entry interface {
		// Name is the entry path relative to the provider root.
		Name() string
		// Size is the payload length in bytes, or -1 when unknown.
		Size() int64
		// ModTime is the last modification time.
		ModTime() time.Time
		// Open returns a reader over the payload.
		Open() (io.ReadCloser, error)
	}

	// EntryTooLargeError is returned by ReadAll for entries above MaxEntrySize.
	// It wraps ErrEntryTooLarge for errors.Is() compatibility.
	EntryTooLargeError struct {
		Name string
		Size int64
	}

	// ReadError reports an I/O failure while reading one entry. It does not
	// invalidate the provider the entry came from.
	ReadError struct {
		Name string
		Err  error
	}

	dirEntry struct {
		name    string
		modTime time.Time
	}

	renamedEntry struct {
		Entry
		name string
	}
)

// Error implements the error interface.
func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("entry %q too large: %d bytes (max %d)", e.Name, e.Size, MaxEntrySize)
}

// Unwrap returns ErrEntryTooLarge for errors.Is() compatibility.
func (e *EntryTooLargeError) Unwrap() error {
	return ErrEntryTooLarge
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read entry %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// ReadAll reads the whole payload of e.
//
// When the size is unknown the payload is buffered until EOF. When it is
// known, exactly that many bytes are pre-allocated; a read that returns no
// bytes before the buffer is full ends the stream and the result is truncated
// to what was read.
func ReadAll(e Entry) ([]byte, error) {
	size := e.Size()
	if size > MaxEntrySize {
		return nil, &EntryTooLargeError{Name: e.Name(), Size: size}
	}

	rc, err := e.Open()
	if err != nil {
		return nil, &ReadError{Name: e.Name(), Err: err}
	}
	defer rc.Close() //nolint:errcheck // read-only stream

	data, err := ReadSized(rc, size)
	if err != nil {
		return nil, &ReadError{Name: e.Name(), Err: err}
	}
	return data, nil
}

// ReadSized reads from r following the ReadAll rules. A negative size means
// unknown.
func ReadSized(r io.Reader, size int64) ([]byte, error) {
	if size < 0 {
		return io.ReadAll(r)
	}
	if size > MaxEntrySize {
		return nil, &EntryTooLargeError{Size: size}
	}

	buf := make([]byte, size)
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if m == 0 {
			break
		}
	}
	return buf[:n], nil
}

// DirEntry returns a synthetic directory entry. name gains a trailing slash
// when missing.
func DirEntry(name string, modTime time.Time) Entry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return &dirEntry{name: name, modTime: modTime}
}

func (d *dirEntry) Name() string       { return d.name }
func (d *dirEntry) Size() int64        { return 0 }
func (d *dirEntry) ModTime() time.Time { return d.modTime }

func (d *dirEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

// Rename returns e reported under a different name.
func Rename(e Entry, name string) Entry {
	if e == nil || e.Name() == name {
		return e
	}
	if r, ok := e.(*renamedEntry); ok {
		e = r.Entry
	}
	return &renamedEntry{Entry: e, name: name}
}

func (r *renamedEntry) Name() string { return r.name }
