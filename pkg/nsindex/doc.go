// SPDX-License-Identifier: MPL-2.0

// Package nsindex provides an immutable list of elements partitioned into
// contiguous runs by a string namespace.
//
// The list records the start offset of every run at construction time so a
// namespace lookup only scans the (usually short) run table instead of the
// whole element list. Capability and requirement sets of a module revision
// are stored this way.
package nsindex
