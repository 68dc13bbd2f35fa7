// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	src := "Manifest-Version: 1.0\r\n" +
		"Module-SymbolicName: org.acme.tools;singleton:=true\n" +
		"Export-Package: org.acme.tools,org.acme.tools.i\n" +
		" mpl;version=\"1.0,2.0\"\n" +
		"\n" +
		"Module-Version: 1.2\n"

	h, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if name, ok := h.SymbolicName(); !ok || name != "org.acme.tools" {
		t.Errorf("SymbolicName() = %q, %v", name, ok)
	}
	if !h.Singleton() {
		t.Error("Singleton() = false")
	}
	if v, err := h.Version(); err != nil || v != "1.2.0" {
		t.Errorf("Version() = %q, %v", v, err)
	}
	want := []string{"org.acme.tools", `org.acme.tools.impl;version="1.0,2.0"`}
	if got := h.List(ExportPackage); !slices.Equal(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if got := h.Names(ExportPackage); !slices.Equal(got, []string{"org.acme.tools", "org.acme.tools.impl"}) {
		t.Errorf("Names() = %v", got)
	}
	if v, _ := h.Get("Manifest-Version"); v != "1.0" {
		t.Errorf("Manifest-Version = %q", v)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
	}{
		{"leading continuation", " orphan\n", 1},
		{"no colon", "Module-SymbolicName: a\nbroken line\n", 2},
		{"empty name", ": value\n", 1},
		{"continuation after blank", "A: b\n\n more\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(strings.NewReader(tt.src))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Parse() error = %v, want ErrMalformed", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) || me.Line != tt.line {
				t.Errorf("error = %v, want line %d", err, tt.line)
			}
		})
	}
}

func TestHeaders_Defaults(t *testing.T) {
	t.Parallel()

	h := Headers{}
	if _, ok := h.SymbolicName(); ok {
		t.Error("SymbolicName() present on empty headers")
	}
	if h.Singleton() {
		t.Error("Singleton() = true on empty headers")
	}
	if v, err := h.Version(); err != nil || v != DefaultVersion {
		t.Errorf("Version() = %q, %v", v, err)
	}
	if cp := h.ClassPath(); !slices.Equal(cp, []string{"."}) {
		t.Errorf("ClassPath() = %v", cp)
	}
	if h.List(ImportPackage) != nil {
		t.Error("List() of a missing header should be nil")
	}

	h[ClassPath] = "., lib/extra.jar ,bin"
	if cp := h.ClassPath(); !slices.Equal(cp, []string{".", "lib/extra.jar", "bin"}) {
		t.Errorf("ClassPath() = %v", cp)
	}
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "1.0.0", false},
		{"1.2.3", "1.2.3", false},
		{"v2.0.1", "2.0.1", false},
		{"1.0.0-rc.1", "1.0.0-rc.1", false},
		{"1.0.0.qualifier", "", true},
		{"banana", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v", tt.in, err)
			}
			if tt.wantErr {
				var ive *InvalidVersionError
				if !errors.As(err, &ive) || !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("error = %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHeaders_Singleton(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"a":                         false,
		"a;singleton:=true":         true,
		`a; singleton:="true"`:      true,
		"a;singleton:=false":        false,
		"a;fragment-attachment:=no": false,
	}
	for value, want := range tests {
		h := Headers{SymbolicName: value}
		if got := h.Singleton(); got != want {
			t.Errorf("Singleton(%q) = %v, want %v", value, got, want)
		}
	}
}
