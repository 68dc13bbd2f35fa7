// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"golang.org/x/mod/semver"
)

// Path is where a module keeps its manifest.
const Path = "META-INF/MANIFEST.MF"

// Header names understood by the runtime.
const (
	SymbolicName  = "Module-SymbolicName"
	Version       = "Module-Version"
	ClassPath     = "Module-ClassPath"
	ExportPackage = "Export-Package"
	ImportPackage = "Import-Package"
	RequireModule = "Require-Module"
)

// DefaultVersion is reported when a module declares no usable version.
const DefaultVersion = "0.0.0"

var (
	// ErrMalformed is returned for lines that are neither headers nor
	// continuations.
	ErrMalformed = errors.New("malformed manifest")

	// ErrInvalidVersion is returned by ParseVersion for non-semantic versions.
	ErrInvalidVersion = errors.New("invalid module version")
)

type (
	// Headers holds manifest headers by name.
	Headers map[string]string

	// MalformedError reports the offending line of a manifest.
	MalformedError struct {
		Line int
		Text string
	}

	// InvalidVersionError is returned when a version is not semantic.
	InvalidVersionError struct {
		Value string
	}
)

func (e *MalformedError) Error() string {
	return fmt.Sprintf("line %d: %q is not a header", e.Line, e.Text)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid module version %q", e.Value)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Parse reads headers from r. Blank lines are skipped; later duplicates win.
func Parse(r io.Reader) (Headers, error) {
	h := Headers{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var last string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			last = ""
			continue
		}
		if line[0] == ' ' {
			if last == "" {
				return nil, &MalformedError{Line: lineNo, Text: line}
			}
			h[last] += line[1:]
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &MalformedError{Line: lineNo, Text: line}
		}
		h[name] = strings.TrimSpace(value)
		last = name
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return h, nil
}

// Get returns the header value and whether it is present.
func (h Headers) Get(name string) (string, bool) {
	v, ok := h[name]
	return v, ok
}

// SymbolicName returns the module name without directives.
func (h Headers) SymbolicName() (string, bool) {
	v, ok := h[SymbolicName]
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(v, ";")
	name = strings.TrimSpace(name)
	return name, name != ""
}

// Singleton reports whether the symbolic name carries singleton:=true.
func (h Headers) Singleton() bool {
	v, ok := h[SymbolicName]
	if !ok {
		return false
	}
	parts := strings.Split(v, ";")
	for _, p := range parts[1:] {
		k, val, found := strings.Cut(p, ":=")
		if found && strings.TrimSpace(k) == "singleton" {
			return strings.Trim(strings.TrimSpace(val), `"`) == "true"
		}
	}
	return false
}

// Version returns the declared version, or DefaultVersion when the header is
// missing.
func (h Headers) Version() (string, error) {
	v, ok := h[Version]
	if !ok || strings.TrimSpace(v) == "" {
		return DefaultVersion, nil
	}
	return ParseVersion(v)
}

// ParseVersion normalizes a version such as "1.2" or "v1.2.3" to
// "major.minor.patch[-pre]".
func ParseVersion(s string) (string, error) {
	s = strings.TrimSpace(s)
	v := s
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", &InvalidVersionError{Value: s}
	}
	canon := semver.Canonical(v)
	return strings.TrimPrefix(canon, "v"), nil
}

// ClassPath returns the declared class path, defaulting to the module root.
func (h Headers) ClassPath() []string {
	cp := h.List(ClassPath)
	if len(cp) == 0 {
		return []string{"."}
	}
	return cp
}

// List splits a comma separated header into its clauses. Commas inside
// double quotes do not split.
func (h Headers) List(name string) []string {
	v, ok := h[name]
	if !ok {
		return nil
	}
	var (
		out     []string
		b       strings.Builder
		inQuote bool
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range v {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == ',' && !inQuote:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// Names returns the clause names of a list header, dropping directives and
// attributes.
func (h Headers) Names(name string) []string {
	clauses := h.List(name)
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		n, _, _ := strings.Cut(c, ";")
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a copy of h.
func (h Headers) Clone() Headers {
	return maps.Clone(h)
}
