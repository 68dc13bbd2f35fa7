// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/content/overlay"
)

func devTree(t *testing.T, manifest string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "tb1")
	writeTree(t, root, map[string]string{
		"META-INF/MANIFEST.MF": manifest,
		"bin/tb2/X.class":      "x",
		"bin/Y.class":          "y",
		"lib/Z.class":          "z",
	})
	return root
}

func TestDirModuleWithOverlay(t *testing.T) {
	t.Parallel()

	root := devTree(t, "Module-SymbolicName: tb1\nModule-ClassPath: .\n")
	f := startFramework(t, WithOverlay(overlay.MapRoots{"tb1": {"bin"}}))
	m := mustInstall(t, f, root)

	if m.Current().Source() != SourceDir {
		t.Errorf("Source() = %s", m.Current().Source())
	}
	if name, _ := m.SymbolicName(); name != "tb1" {
		t.Errorf("SymbolicName() = %q", name)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"bin/tb2/X.class", true},
		{"tb2/X.class", true},
		{"Y.class", true},
		{"bin", false},
		{"lib/Z.class", true},
	}
	for _, tt := range tests {
		e, err := m.Entry(tt.path)
		if err != nil {
			t.Fatalf("Entry(%q) error = %v", tt.path, err)
		}
		if (e != nil) != tt.want {
			t.Errorf("Entry(%q) present = %v, want %v", tt.path, e != nil, tt.want)
		}
	}

	r, err := m.Resource("tb2/X.class")
	if err != nil || r == nil {
		t.Fatalf("Resource(tb2/X.class) = %v, %v", r, err)
	}
	data, err := content.ReadAll(r)
	if err != nil || string(data) != "x" {
		t.Errorf("resource data = %q, %v", data, err)
	}

	found, ok, err := m.Find("/", "*.class", true)
	if err != nil || !ok {
		t.Fatalf("Find() = %v, %v", ok, err)
	}
	slices.Sort(found)
	if want := []string{"Y.class", "lib/Z.class", "tb2/X.class"}; !slices.Equal(found, want) {
		t.Errorf("Find() = %v, want %v", found, want)
	}
}

func TestDirModuleOverlayExtraClassPath(t *testing.T) {
	t.Parallel()

	// "lib" is neither the module root nor an overlay root, so the overlay
	// roots become class path entries of their own.
	root := devTree(t, "Module-SymbolicName: tb1\nModule-ClassPath: lib\n")
	f := startFramework(t, WithOverlay(overlay.StaticRoots{"bin"}))
	m := mustInstall(t, f, root)

	for _, name := range []string{"Z.class", "tb2/X.class"} {
		if r, err := m.Resource(name); err != nil || r == nil {
			t.Errorf("Resource(%q) = %v, %v", name, r, err)
		}
	}
	if e, _ := m.Entry("bin/tb2/X.class"); e != nil {
		t.Error("root is off the class path, overlay paths should be hidden")
	}
}

func TestDevClassPath(t *testing.T) {
	t.Parallel()

	root := devTree(t, "Module-SymbolicName: tb1\n")
	f := startFramework(t, WithDevClassPath("bin"))
	m := mustInstall(t, f, root)

	if r, err := m.Resource("tb2/X.class"); err != nil || r == nil {
		t.Errorf("Resource() through dev class path = %v, %v", r, err)
	}
	if r, _ := m.Resource("nope.class"); r != nil {
		t.Errorf("Resource(nope.class) = %q", r.Name())
	}
}

func TestArchiveModuleWithNestedClassPath(t *testing.T) {
	t.Parallel()

	nested := zipBytes(t, map[string]string{"res/inner.txt": "inner"})
	outer := zipBytes(t, map[string]string{
		"META-INF/MANIFEST.MF": "Module-SymbolicName: zipped\nModule-ClassPath: ., lib/extra.jar, lib/missing.jar\n",
		"lib/extra.jar":        string(nested),
		"top.txt":              "top",
	})
	path := filepath.Join(t.TempDir(), "zipped.jar")
	if err := os.WriteFile(path, outer, 0o644); err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		bases []bool
	)
	spy := content.WrapperFactoryFunc(func(base content.Provider, _ content.Generation, isBase bool) (content.Provider, bool) {
		mu.Lock()
		bases = append(bases, isBase)
		mu.Unlock()
		return nil, false
	})

	f := startFramework(t, WithWrapperFactories(spy))
	m := mustInstall(t, f, path)
	if m.Current().Source() != SourceArchive {
		t.Errorf("Source() = %s", m.Current().Source())
	}

	for name, want := range map[string]string{"top.txt": "top", "res/inner.txt": "inner"} {
		r, err := m.Resource(name)
		if err != nil || r == nil {
			t.Fatalf("Resource(%q) = %v, %v", name, r, err)
		}
		if data, _ := content.ReadAll(r); string(data) != want {
			t.Errorf("Resource(%q) = %q", name, data)
		}
	}

	cp, err := m.Current().ClassPathProviders()
	if err != nil || len(cp) != 2 {
		t.Errorf("ClassPathProviders() = %d, %v", len(cp), err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(bases, []bool{true, false}) {
		t.Errorf("wrapper factory saw isBase = %v", bases)
	}
}

func TestConnectLoaderFirst(t *testing.T) {
	t.Parallel()

	c := namedContent("loader", nil).
		AddBytes("res.txt", []byte("from entries"), time.Time{}).
		SetLoader(connect.MapLoader{
			"res.txt": connect.NewBytesEntry("res.txt", []byte("from loader"), time.Time{}),
		})
	factory := connect.NewMapFactory("test")
	factory.Bind("loader", connect.NewMemoryModule(c))

	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, "loader")

	r, err := m.Resource("res.txt")
	if err != nil || r == nil {
		t.Fatalf("Resource() = %v, %v", r, err)
	}
	if data, _ := content.ReadAll(r); string(data) != "from loader" {
		t.Errorf("Resource() = %q, want loader content", data)
	}
	e, _ := m.Entry("res.txt")
	if data, _ := content.ReadAll(e); string(data) != "from entries" {
		t.Errorf("Entry() = %q", data)
	}
	if _, ok := m.Current().Content(); !ok {
		t.Error("Content() should expose negotiated content")
	}
}

func TestConnectManifestFallback(t *testing.T) {
	t.Parallel()

	c := connect.NewMemoryContent(nil).
		AddBytes("META-INF/MANIFEST.MF", []byte("Module-SymbolicName: from.manifest\nModule-Version: 2.1\n"), time.Time{})
	factory := connect.NewMapFactory("test")
	factory.Bind("plain", connect.NewMemoryModule(c))

	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, "plain")
	if name, _ := m.SymbolicName(); name != "from.manifest" {
		t.Errorf("SymbolicName() = %q", name)
	}
	h, err := m.Headers()
	if err != nil {
		t.Fatal(err)
	}
	if v, err := h.Version(); err != nil || v != "2.1.0" {
		t.Errorf("Version() = %q, %v", v, err)
	}
}

func TestNegotiatorDeclineFallsBackToFilesystem(t *testing.T) {
	t.Parallel()

	root := devTree(t, "Module-SymbolicName: on.disk\n")
	factory := connect.NewMapFactory("test")
	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, root)

	if m.Current().Source() != SourceDir {
		t.Errorf("Source() = %s", m.Current().Source())
	}
	if factory.ModuleCalls(root) != 1 {
		t.Errorf("negotiator consulted %d times", factory.ModuleCalls(root))
	}
	if _, ok := m.Current().Content(); ok {
		t.Error("Content() should be absent for directory modules")
	}
}

func TestUpdateDirModuleSeesNewFiles(t *testing.T) {
	t.Parallel()

	root := devTree(t, "Module-SymbolicName: tb1\n")
	f := startFramework(t)
	m := mustInstall(t, f, root)

	writeTree(t, root, map[string]string{"META-INF/MANIFEST.MF": "Module-SymbolicName: tb1.renamed\n"})
	if name, _ := m.SymbolicName(); name != "tb1" {
		t.Errorf("headers changed before update: %q", name)
	}
	if err := f.Update(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if name, _ := m.SymbolicName(); name != "tb1.renamed" {
		t.Errorf("SymbolicName() after update = %q", name)
	}
}

func TestResourceRacesRevisionClose(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "cp")
	writeTree(t, root, map[string]string{
		"META-INF/MANIFEST.MF": "Module-SymbolicName: cp\nModule-ClassPath: ., lib/extra.jar\n",
		"lib/extra.jar":        string(zipBytes(t, map[string]string{"res/inner.txt": "inner"})),
	})
	f := startFramework(t)
	m := mustInstall(t, f, root)

	for i := range 50 {
		rev, err := f.bind(m, int64(i+2), "", nil)
		if err != nil {
			t.Fatalf("bind() error = %v", err)
		}

		var (
			wg     sync.WaitGroup
			resErr error
		)
		wg.Go(func() { _, resErr = rev.Resource("res/inner.txt") })
		wg.Go(func() { _ = rev.close() })
		wg.Wait()

		if resErr != nil && !errors.Is(resErr, ErrRevisionClosed) && !errors.Is(resErr, content.ErrClosed) {
			t.Fatalf("Resource() error = %v", resErr)
		}
		for _, p := range rev.owned {
			if _, err := p.Entry("res/inner.txt"); !errors.Is(err, content.ErrClosed) {
				t.Fatalf("nested provider still open after close: Entry() error = %v", err)
			}
		}
		if _, err := rev.Resource("res/inner.txt"); !errors.Is(err, ErrRevisionClosed) {
			t.Errorf("Resource() after close error = %v, want ErrRevisionClosed", err)
		}
	}
}
