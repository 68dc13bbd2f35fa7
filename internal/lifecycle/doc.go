// SPDX-License-Identifier: MPL-2.0

// Package lifecycle provides the state machine shared by long-lived runtimes.
//
// Transitions are compare-and-swap operations on an atomic state, so State()
// is a lock-free read and concurrent Start/Stop calls have exactly one
// winner. Unlike a single-use server, a runtime can be started again after it
// has stopped; only Close is final.
package lifecycle
