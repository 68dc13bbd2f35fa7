// SPDX-License-Identifier: MPL-2.0

package nsindex

import "slices"

type (
	// List is an immutable sequence of elements grouped by namespace.
	// Elements that share a namespace must be contiguous in the input given to
	// New; the list does not sort.
	List[E any] struct {
		elems []E
		runs  []run
	}

	run struct {
		namespace string
		start     int
	}
)

// New builds a List over a copy of elems. namespace reports the namespace of
// an element. The caller is responsible for grouping elems; use Group when the
// input is not already grouped.
func New[E any](elems []E, namespace func(E) string) *List[E] {
	l := &List[E]{elems: slices.Clone(elems)}
	for i, e := range l.elems {
		ns := namespace(e)
		if i == 0 || l.runs[len(l.runs)-1].namespace != ns {
			l.runs = append(l.runs, run{namespace: ns, start: i})
		}
	}
	return l
}

// Group returns a copy of elems reordered so that equal namespaces are
// contiguous. Namespaces keep the order of their first appearance and
// elements keep their relative order within a namespace.
func Group[E any](elems []E, namespace func(E) string) []E {
	order := make([]string, 0)
	buckets := make(map[string][]E)
	for _, e := range elems {
		ns := namespace(e)
		if _, seen := buckets[ns]; !seen {
			order = append(order, ns)
		}
		buckets[ns] = append(buckets[ns], e)
	}

	out := make([]E, 0, len(elems))
	for _, ns := range order {
		out = append(out, buckets[ns]...)
	}
	return out
}

// Index returns the half-open range [start, end) covering the run of ns.
// ok is false when no element carries that namespace.
func (l *List[E]) Index(ns string) (start, end int, ok bool) {
	for i, r := range l.runs {
		if r.namespace != ns {
			continue
		}
		end = len(l.elems)
		if i+1 < len(l.runs) {
			end = l.runs[i+1].start
		}
		return r.start, end, true
	}
	return 0, 0, false
}

// Slice returns the elements of the ns run. A namespace without a run yields
// an empty, non-nil slice. The result shares the backing array and must not
// be modified; capacity is clipped so appends always reallocate.
func (l *List[E]) Slice(ns string) []E {
	start, end, ok := l.Index(ns)
	if !ok {
		return []E{}
	}
	return l.elems[start:end:end]
}

// All returns every element in order. The result must not be modified.
func (l *List[E]) All() []E {
	return slices.Clip(l.elems)
}

// Copy returns an independent, mutable copy of every element.
func (l *List[E]) Copy() []E {
	return slices.Clone(l.elems)
}

// CopyNamespace returns an independent, mutable copy of the ns run.
func (l *List[E]) CopyNamespace(ns string) []E {
	return slices.Clone(l.Slice(ns))
}

// Namespaces returns the namespaces present in the list in run order.
func (l *List[E]) Namespaces() []string {
	out := make([]string, len(l.runs))
	for i, r := range l.runs {
		out[i] = r.namespace
	}
	return out
}

// Len returns the number of elements.
func (l *List[E]) Len() int {
	return len(l.elems)
}

// IsEmpty reports whether the list holds no elements.
func (l *List[E]) IsEmpty() bool {
	return len(l.elems) == 0
}
