// SPDX-License-Identifier: MPL-2.0

package resolverhook

import (
	"errors"
	"fmt"
)

// ErrHookFailed is the sentinel wrapped by every HookError.
var ErrHookFailed = errors.New("resolver hook failed")

type (
	// HookError attributes a failed hook call to the hook's registrant.
	HookError struct {
		Owner  string
		Method string
		Err    error
	}

	// ErrorSink receives contained hook failures.
	ErrorSink interface {
		HookFailed(err *HookError)
	}

	// ErrorSinkFunc adapts a function to ErrorSink.
	ErrorSinkFunc func(err *HookError)
)

func (e *HookError) Error() string {
	return fmt.Sprintf("resolver hook %s (owner %q): %v", e.Method, e.Owner, e.Err)
}

func (e *HookError) Unwrap() []error {
	return []error{ErrHookFailed, e.Err}
}

func (f ErrorSinkFunc) HookFailed(err *HookError) {
	f(err)
}
