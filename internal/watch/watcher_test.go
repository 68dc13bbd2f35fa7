// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

type change struct {
	target  string
	changed []string
}

// startWatcher runs a watcher over targets and returns the channel its
// callbacks are delivered on. Run stops when the test ends.
func startWatcher(t *testing.T, cfg Config) <-chan change {
	t.Helper()

	ch := make(chan change, 16)
	cfg.Debounce = testDebounce
	if cfg.OnChange == nil {
		cfg.OnChange = func(_ context.Context, tgt Target, changed []string) error {
			ch <- change{target: tgt.Name, changed: changed}
			return nil
		}
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return ch
}

func await(t *testing.T, ch <-chan change) change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
		return change{}
	}
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		errs int
	}{
		{"valid", Config{Targets: []Target{{Name: "1", Dir: "/a"}}, Patterns: []string{"**/*.class"}}, 0},
		{"no targets", Config{}, 1},
		{"blank name and dir", Config{Targets: []Target{{Name: " ", Dir: ""}}}, 2},
		{"duplicate", Config{Targets: []Target{{Name: "1", Dir: "/a"}, {Name: "1", Dir: "/b"}}}, 1},
		{"bad patterns", Config{Targets: []Target{{Name: "1", Dir: "/a"}}, Patterns: []string{"[a"}, Ignore: []string{"{x"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.errs == 0 {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var ce *InvalidConfigError
			if !errors.As(err, &ce) || !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want InvalidConfigError", err)
			}
			if len(ce.FieldErrors) != tt.errs {
				t.Errorf("FieldErrors = %v, want %d", ce.FieldErrors, tt.errs)
			}
		})
	}
}

func TestNewMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Targets: []Target{{Name: "1", Dir: filepath.Join(t.TempDir(), "gone")}}})
	if err == nil {
		t.Fatal("New() over a missing directory succeeded")
	}
}

func TestWatcherDebouncesPerTarget(t *testing.T) {
	t.Parallel()

	a, b := t.TempDir(), t.TempDir()
	ch := startWatcher(t, Config{Targets: []Target{{Name: "a", Dir: a}, {Name: "b", Dir: b}}})

	write(t, filepath.Join(a, "one.class"))
	write(t, filepath.Join(a, "two.class"))
	write(t, filepath.Join(b, "three.class"))

	got := map[string][]string{}
	for range 2 {
		c := await(t, ch)
		got[c.target] = append(got[c.target], c.changed...)
	}
	if !slices.Contains(got["a"], "one.class") || !slices.Contains(got["a"], "two.class") {
		t.Errorf("target a changes = %v", got["a"])
	}
	if !slices.Equal(got["b"], []string{"three.class"}) {
		t.Errorf("target b changes = %v", got["b"])
	}
}

func TestWatcherFiltersPatternsAndIgnores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, filepath.Join(dir, ".git", "HEAD"))
	if err := os.Mkdir(filepath.Join(dir, "META-INF"), 0o755); err != nil {
		t.Fatal(err)
	}
	ch := startWatcher(t, Config{
		Targets:  []Target{{Name: "m", Dir: dir}},
		Patterns: []string{"**/*.class", "META-INF/MANIFEST.MF"},
		Ignore:   []string{"build/**"},
	})

	write(t, filepath.Join(dir, ".git", "HEAD"))
	write(t, filepath.Join(dir, "notes.txt"))
	write(t, filepath.Join(dir, "A.class.swp"))
	write(t, filepath.Join(dir, "META-INF", "MANIFEST.MF"))
	write(t, filepath.Join(dir, "A.class"))

	c := await(t, ch)
	for _, p := range c.changed {
		if p != "A.class" && p != "META-INF/MANIFEST.MF" {
			t.Errorf("unexpected change %q", p)
		}
	}
	if !slices.Contains(c.changed, "A.class") || !slices.Contains(c.changed, "META-INF/MANIFEST.MF") {
		t.Errorf("changes = %v, want A.class and the manifest", c.changed)
	}
}

func TestWatcherNestedTargets(t *testing.T) {
	t.Parallel()

	outer := t.TempDir()
	inner := filepath.Join(outer, "inner")
	if err := os.Mkdir(inner, 0o755); err != nil {
		t.Fatal(err)
	}
	ch := startWatcher(t, Config{Targets: []Target{{Name: "outer", Dir: outer}, {Name: "inner", Dir: inner}}})

	write(t, filepath.Join(inner, "X.class"))
	c := await(t, ch)
	if c.target != "inner" || !slices.Equal(c.changed, []string{"X.class"}) {
		t.Errorf("change = %+v, want inner X.class", c)
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ch := startWatcher(t, Config{Targets: []Target{{Name: "m", Dir: dir}}, Patterns: []string{"**/*.class"}})

	if err := os.Mkdir(filepath.Join(dir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)
	write(t, filepath.Join(dir, "pkg", "B.class"))

	c := await(t, ch)
	if !slices.Equal(c.changed, []string{"pkg/B.class"}) {
		t.Errorf("changes = %v, want [pkg/B.class]", c.changed)
	}
}

func TestWatcherDefersWhileBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls [][]string
	)
	ch := make(chan change, 4)
	startWatcher(t, Config{
		Targets: []Target{{Name: "m", Dir: dir}},
		OnChange: func(_ context.Context, tgt Target, changed []string) error {
			mu.Lock()
			calls = append(calls, changed)
			first := len(calls) == 1
			mu.Unlock()
			ch <- change{target: tgt.Name, changed: changed}
			if first {
				<-release
			}
			return nil
		},
	})

	write(t, filepath.Join(dir, "a"))
	await(t, ch)
	write(t, filepath.Join(dir, "b"))
	time.Sleep(4 * testDebounce)
	mu.Lock()
	n := len(calls)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("callback ran %d times while the first was blocked", n)
	}

	close(release)
	c := await(t, ch)
	if !slices.Contains(c.changed, "b") {
		t.Errorf("deferred changes = %v, want b", c.changed)
	}
}

func TestWatcherRunOnce(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Targets: []Target{{Name: "m", Dir: t.TempDir()}}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
	if err := w.Run(ctx); err == nil {
		t.Error("second Run() succeeded")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	got := DefaultIgnores()
	got[0] = "mutated"
	if DefaultIgnores()[0] == "mutated" {
		t.Error("DefaultIgnores() exposed the package slice")
	}
	for _, rel := range []string{".git/objects/aa", "src/.DS_Store", "A.java~", "x/y.swp"} {
		if !matchAny(defaultIgnores, rel) {
			t.Errorf("%q is not ignored by default", rel)
		}
	}
	if matchAny(defaultIgnores, "org/acme/A.class") {
		t.Error("class file ignored by default")
	}
}
