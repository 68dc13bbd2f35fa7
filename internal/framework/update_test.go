// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/invowk/modhost/pkg/connect"
)

func TestUpdateSwapsContentAfterRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	factory := connect.NewMapFactory("test")
	oldContent := namedContent("old.name", nil)
	module := connect.NewMemoryModule(oldContent)
	factory.Bind("b.1", module)

	f := startFramework(t, WithFactory(factory), WithStorageDir(t.TempDir()))
	events := watchEvents(f)
	m := mustInstall(t, f, "b.1")
	oldRev := m.Current()
	if !oldContent.IsOpen() {
		t.Fatal("installed content should be open")
	}

	newContent := namedContent("new.name", nil)
	module.SetContent(newContent)

	if _, err := f.Refresh(ctx, m); err != nil {
		t.Fatal(err)
	}
	if !oldContent.IsOpen() {
		t.Error("refresh must not close the bound content")
	}
	if name, _ := m.SymbolicName(); name != "old.name" {
		t.Errorf("SymbolicName() after refresh = %q", name)
	}
	if newContent.IsOpen() {
		t.Error("refresh must not bind new content")
	}

	if err := f.Update(ctx, m); err != nil {
		t.Fatal(err)
	}
	if name, _ := m.SymbolicName(); name != "new.name" {
		t.Errorf("SymbolicName() after update = %q", name)
	}
	if oldContent.IsOpen() || oldContent.CloseCount() != 1 {
		t.Errorf("old content open = %v, closed %d times", oldContent.IsOpen(), oldContent.CloseCount())
	}
	if !newContent.IsOpen() {
		t.Error("new content should be open")
	}
	if m.Current().Generation() != oldRev.Generation()+1 {
		t.Errorf("Generation() = %d", m.Current().Generation())
	}
	if m.State() != ModuleInstalled {
		t.Errorf("State() after update = %s", m.State())
	}
	if len(events.ofKind(EventUpdated)) != 1 {
		t.Errorf("updated events = %d", len(events.ofKind(EventUpdated)))
	}

	// The replaced revision stays addressable but is closed.
	if _, err := oldRev.Entry("anything"); !errors.Is(err, connect.ErrNotOpen) {
		t.Errorf("old revision Entry() = %v", err)
	}
}

func TestUpdateWithSameContentKeepsRevision(t *testing.T) {
	t.Parallel()

	factory := connect.NewMapFactory("test")
	c := namedContent("same", nil)
	factory.Bind("b.1", connect.NewMemoryModule(c))

	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, "b.1")
	rev := m.Current()

	if err := f.Update(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if m.Current() != rev {
		t.Error("update with unchanged content should keep the revision")
	}
	if !c.IsOpen() || c.OpenCount() != 1 || c.CloseCount() != 0 {
		t.Errorf("open = %v, opens = %d, closes = %d", c.IsOpen(), c.OpenCount(), c.CloseCount())
	}
}

func TestUpdateFailureKeepsCurrentRevision(t *testing.T) {
	t.Parallel()

	factory := connect.NewMapFactory("test")
	c := namedContent("steady", nil)
	factory.Bind("b.1", connect.NewMemoryModule(c))

	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, "b.1")
	rev := m.Current()

	boom := errors.New("binding map corrupted")
	factory.Fail("b.1", boom)
	err := f.Update(context.Background(), m)
	if !errors.Is(err, boom) || !errors.Is(err, connect.ErrNegotiation) {
		t.Fatalf("Update() error = %v", err)
	}
	var me *ModuleError
	if !errors.As(err, &me) || me.Op != "update" || me.Location != "b.1" {
		t.Errorf("error = %v", err)
	}
	if m.Current() != rev || !c.IsOpen() {
		t.Error("failed update must leave the current revision bound")
	}
}

func TestUpdateUninstalled(t *testing.T) {
	t.Parallel()

	factory := connect.NewMapFactory("test")
	bindNamed(factory, "b.1")
	f := startFramework(t, WithFactory(factory))
	m := mustInstall(t, f, "b.1")
	if err := f.Uninstall(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if err := f.Update(context.Background(), m); !errors.Is(err, ErrUninstalled) {
		t.Errorf("Update() = %v", err)
	}
}
