// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package content

import "syscall"

// syscallNotDir is returned when a path component is a regular file.
const syscallNotDir = syscall.ENOTDIR
