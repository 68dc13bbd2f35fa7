// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "storage")
	st := &store{NextID: 3, Modules: []storedEntry{
		{ID: 2, Location: "b.2", Source: SourceDir, Generation: 4},
		{ID: 1, Location: "b.1", Source: SourceConnect, Generation: 1},
	}}
	if err := st.save(dir); err != nil {
		t.Fatalf("save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, StoreFile+".tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file left behind")
	}

	got, err := loadStore(dir)
	if err != nil {
		t.Fatalf("loadStore() error = %v", err)
	}
	if got.NextID != 3 || len(got.Modules) != 2 {
		t.Fatalf("loadStore() = %+v", got)
	}
	if got.Modules[0].ID != 1 || got.Modules[1].Generation != 4 || got.Modules[1].Source != SourceDir {
		t.Errorf("modules = %+v", got.Modules)
	}
}

func TestStore_Missing(t *testing.T) {
	t.Parallel()

	st, err := loadStore(t.TempDir())
	if err != nil || st.NextID != 1 || len(st.Modules) != 0 {
		t.Errorf("loadStore() = %+v, %v", st, err)
	}
	if err := removeStore(t.TempDir()); err != nil {
		t.Errorf("removeStore() on missing file = %v", err)
	}
}

func TestStore_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"bad toml", "next_id = [", nil},
		{"blank location", "[[module]]\nid = 1\nlocation = \" \"\nsource = \"dir\"\n", ErrInvalidLocation},
		{"unknown source", "[[module]]\nid = 1\nlocation = \"x\"\nsource = \"ftp\"\n", ErrInvalidSourceKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, StoreFile), []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := loadStore(dir)
			if err == nil {
				t.Fatal("loadStore() should fail")
			}
			if !errors.Is(err, ErrStoreCorrupt) {
				t.Errorf("loadStore() error = %v, want ErrStoreCorrupt", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("loadStore() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_NextIDCoversEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	body := "next_id = 1\n[[module]]\nid = 7\nlocation = \"x\"\nsource = \"archive\"\ngeneration = 2\n"
	if err := os.WriteFile(filepath.Join(dir, StoreFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := loadStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if st.NextID != 8 {
		t.Errorf("NextID = %d, want 8", st.NextID)
	}
}

func TestLocationValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		loc     Location
		wantErr bool
	}{
		{"b.1", false},
		{"/opt/mods/a.jar", false},
		{"", true},
		{" \t", true},
	}
	for _, tt := range tests {
		err := tt.loc.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) = %v", tt.loc, err)
		}
		if err != nil {
			var ile *InvalidLocationError
			if !errors.As(err, &ile) || ile.Value != tt.loc {
				t.Errorf("Validate(%q) error = %v", tt.loc, err)
			}
		}
	}

	if err := SourceKind("ftp").Validate(); !errors.Is(err, ErrInvalidSourceKind) {
		t.Errorf("SourceKind(ftp).Validate() = %v", err)
	}
}
