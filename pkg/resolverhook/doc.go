// SPDX-License-Identifier: MPL-2.0

// Package resolverhook delegates resolver decisions to pluggable hooks.
//
// A resolution attempt owns one Aggregator built from a point-in-time
// snapshot of the hook registry. The aggregator drives the four phases
// (begin, the three filters, end) over that snapshot and contains every hook
// failure: a hook that returns an error or panics is reported to the error
// sink and its call leaves the candidates untouched.
//
// An Aggregator is not safe for concurrent use. Each resolution attempt must
// build its own instance.
package resolverhook
