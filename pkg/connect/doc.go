// SPDX-License-Identifier: MPL-2.0

// Package connect defines the negotiation protocol through which a pluggable
// factory supplies the complete content of a module (headers, entries and a
// resource loader) instead of the host reading it from disk.
//
// A Factory is initialized once per host instance and then asked for the
// Module bound to a location. A Module hands out Content, whose Open and
// Close calls strictly alternate; every accessor fails with ErrNotOpen while
// the content is closed. The package also ships in-memory implementations of
// each interface and a content.Provider adapter used by the host.
package connect
