// SPDX-License-Identifier: MPL-2.0

// Package manifest reads module manifest headers.
//
// A manifest is a list of "Name: value" lines. A line that starts with a
// single space continues the previous value. Header names are matched
// exactly.
package manifest
