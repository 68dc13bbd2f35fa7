// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/invowk/modhost/pkg/connect"
)

// eventLog collects published events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func watchEvents(f *Framework) *eventLog {
	l := &eventLog{}
	f.Subscribe(l.record)
	return l
}

// namedContent returns connect content whose symbolic name is name.
func namedContent(name string, extra map[string]string) *connect.MemoryContent {
	h := map[string]string{"Module-SymbolicName": name}
	for k, v := range extra {
		h[k] = v
	}
	return connect.NewMemoryContent(h)
}

func bindNamed(f *connect.MapFactory, locs ...string) {
	for _, loc := range locs {
		f.Bind(loc, connect.NewMemoryModule(namedContent(loc, nil)))
	}
}

func startFramework(t *testing.T, opts ...Option) *Framework {
	t.Helper()

	f := New(opts...)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, body := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func mustInstall(t *testing.T, f *Framework, loc string) *Module {
	t.Helper()

	m, err := f.Install(context.Background(), Location(loc))
	if err != nil {
		t.Fatalf("Install(%q) error = %v", loc, err)
	}
	return m
}
