// SPDX-License-Identifier: MPL-2.0

package content

import (
	"slices"
	"testing"
)

func TestFind(t *testing.T) {
	t.Parallel()

	p := memDir(t, map[string]string{
		"org/acme/A.class":      "a",
		"org/acme/A.java":       "a",
		"org/acme/impl/B.class": "b",
	})

	tests := []struct {
		name    string
		dir     string
		pattern string
		recurse bool
		want    []string
		wantOK  bool
	}{
		{"class files shallow", "org/acme", "*.class", false, []string{"org/acme/A.class"}, true},
		{"class files deep", "org", "*.class", true, []string{"org/acme/A.class", "org/acme/impl/B.class"}, true},
		{"empty pattern", "org/acme", "", false, []string{"org/acme/A.class", "org/acme/A.java", "org/acme/impl/"}, true},
		{"directories match by name", "org", "impl", true, []string{"org/acme/impl/"}, true},
		{"no match", "org/acme", "*.xml", false, []string{}, true},
		{"missing dir", "net", "*", false, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok, err := Find(p, tt.dir, tt.pattern, tt.recurse)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Find() ok = %v, want %v", ok, tt.wantOK)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Find() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFind_BadPattern(t *testing.T) {
	t.Parallel()

	p := memDir(t, nil)
	if _, _, err := Find(p, "/", "[", false); err == nil {
		t.Error("Find() with malformed pattern should fail")
	}
}
