// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"fmt"

	"github.com/invowk/modhost/pkg/content"
)

// NegotiatorName returns the diagnostic name of f.
func NegotiatorName(f Factory) string {
	if n, ok := f.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}

// Negotiate asks f for the content bound to location. A declined location
// returns ok == false. Errors and panics raised by the factory, the module
// or the content become a *NegotiationError.
func Negotiate(f Factory, location string) (c Content, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, ok = nil, false
			err = &NegotiationError{Location: location, Negotiator: NegotiatorName(f), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	m, ok, err := f.Module(location)
	if err != nil {
		return nil, false, &NegotiationError{Location: location, Negotiator: NegotiatorName(f), Err: err}
	}
	if !ok || m == nil {
		return nil, false, nil
	}
	c, err = m.Content()
	if err != nil {
		return nil, false, &NegotiationError{Location: location, Negotiator: NegotiatorName(f), Err: err}
	}
	if c == nil {
		return nil, false, &NegotiationError{Location: location, Negotiator: NegotiatorName(f), Err: fmt.Errorf("module returned no content")}
	}
	return c, true, nil
}

// ReadBytes reads the payload of e. Unknown lengths are buffered until EOF;
// known lengths are pre-allocated and a short read ends the stream.
func ReadBytes(e Entry) ([]byte, error) {
	return content.ReadAll(AsContentEntry(e))
}
