// SPDX-License-Identifier: MPL-2.0

package content

import (
	"archive/zip"
	"bytes"
	"path"
	"testing"

	"github.com/spf13/afero"
)

// memDir builds a DirProvider over an in-memory tree rooted at /mod.
func memDir(t *testing.T, files map[string]string, dirs ...string) *DirProvider {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/mod", 0o755); err != nil {
		t.Fatal(err)
	}
	for _, d := range dirs {
		if err := fs.MkdirAll("/mod/"+d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, body := range files {
		if err := fs.MkdirAll(path.Dir("/mod/"+name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, "/mod/"+name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p, err := NewDirProviderFs(fs, "/mod")
	if err != nil {
		t.Fatalf("NewDirProviderFs() error = %v", err)
	}
	return p
}

// memArchive builds an ArchiveProvider from name/body pairs in order.
func memArchive(t *testing.T, members ...string) *ArchiveProvider {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i+1 < len(members); i += 2 {
		w, err := zw.Create(members[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(members[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	a, err := NewArchiveProvider(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewArchiveProvider() error = %v", err)
	}
	return a
}
