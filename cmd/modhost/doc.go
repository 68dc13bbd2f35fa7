// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modhost command-line interface.
//
// Every command builds a framework from the loaded configuration, starts it
// (restoring the persisted module table), does its work and closes it again,
// persisting any change.
package cmd
