// SPDX-License-Identifier: MPL-2.0

// Package main is the entry point for the modhost CLI.
package main

import cmd "github.com/invowk/modhost/cmd/modhost"

func main() {
	cmd.Execute()
}
