// SPDX-License-Identifier: MPL-2.0

// Package overlay implements the development overlay wrapper.
//
// An overlay lets staged output directories inside a directory-backed module
// (for example "bin" holding freshly compiled classes) shadow the module's
// packaged layout. Paths that fall on an overlay root are served only from
// that root; everything else comes from the wrapped provider.
package overlay
