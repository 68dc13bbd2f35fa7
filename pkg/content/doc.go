// SPDX-License-Identifier: MPL-2.0

// Package content defines the Provider abstraction through which a module's
// bytes are read, together with its directory, archive and sub-directory
// implementations and the wrapper chain that decorates a base provider.
//
// Paths are slash-separated and relative, with no leading separator.
// Directory entries carry a trailing slash. "/" and "." both denote the root.
//
// EntryPaths has a three-state result: ok == false means the provider has no
// information about the query, which is distinct from a present but empty
// listing. Wrappers must preserve that distinction.
package content
