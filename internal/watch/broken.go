// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"slices"
	"syscall"
)

// ErrWatcherBroken is wrapped by Run when fsnotify reports an error the
// watcher cannot recover from.
var ErrWatcherBroken = errors.New("watch: watcher is broken")

// brokenBy reports whether err is one of the platform's resource exhaustion
// or invalid handle errnos.
func brokenBy(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return slices.Contains(brokenErrnos, errno)
}
