// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MapFactory is a Factory over a concurrent location to module map.
// Readers never observe a partially written binding. It counts calls so
// hosts and tests can verify the negotiation protocol.
type MapFactory struct {
	name string

	mu       sync.RWMutex
	modules  map[string]Module
	failures map[string]error
	calls    map[string]int

	initialized atomic.Bool
	storageDir  string
	settings    Settings

	newActivator   func() Activator
	initCalls      atomic.Int32
	activatorCalls atomic.Int32
}

// NewMapFactory returns an empty factory reported under name.
func NewMapFactory(name string) *MapFactory {
	return &MapFactory{
		name:     name,
		modules:  make(map[string]Module),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Name returns the factory name.
func (f *MapFactory) Name() string {
	return f.name
}

// Bind associates location with m, replacing any previous binding.
func (f *MapFactory) Bind(location string, m Module) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modules[location] = m
	delete(f.failures, location)
}

// Unbind removes the binding of location.
func (f *MapFactory) Unbind(location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.modules, location)
	delete(f.failures, location)
}

// Fail makes every following Module call for location return err.
func (f *MapFactory) Fail(location string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[location] = err
}

// SetActivator installs the constructor used by NewActivator.
func (f *MapFactory) SetActivator(fn func() Activator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newActivator = fn
}

// Initialize records storageDir and settings. A second call fails with
// ErrAlreadyInitialized.
func (f *MapFactory) Initialize(storageDir string, settings Settings) error {
	f.initCalls.Add(1)
	if !f.initialized.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", f.name, ErrAlreadyInitialized)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storageDir = storageDir
	f.settings = settings
	return nil
}

// Module returns the module bound to location.
func (f *MapFactory) Module(location string) (Module, bool, error) {
	f.mu.Lock()
	f.calls[location]++
	err := f.failures[location]
	m, ok := f.modules[location]
	f.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	return m, ok, nil
}

// NewActivator builds an activator when one was configured.
func (f *MapFactory) NewActivator() (Activator, bool) {
	f.activatorCalls.Add(1)
	f.mu.RLock()
	fn := f.newActivator
	f.mu.RUnlock()
	if fn == nil {
		return nil, false
	}
	a := fn()
	return a, a != nil
}

// Locations returns the number of bound locations.
func (f *MapFactory) Locations() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.modules)
}

// Settings returns what Initialize received.
func (f *MapFactory) Settings() (Settings, string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.settings, f.storageDir, f.initialized.Load()
}

// InitializeCalls returns how many times Initialize was called.
func (f *MapFactory) InitializeCalls() int { return int(f.initCalls.Load()) }

// ActivatorCalls returns how many times NewActivator was called.
func (f *MapFactory) ActivatorCalls() int { return int(f.activatorCalls.Load()) }

// ModuleCalls returns how many times Module was called for location.
func (f *MapFactory) ModuleCalls(location string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[location]
}
