// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"maps"
	"slices"
	"sync"
)

const (
	// EventInstalled is published after a module is installed.
	EventInstalled EventKind = iota
	// EventUpdated is published after a module switched to a new revision.
	EventUpdated
	// EventResolved is published for every module a resolution attempt resolved.
	EventResolved
	// EventUninstalled is published after a module is uninstalled.
	EventUninstalled
	// EventStarted is published when the framework becomes active.
	EventStarted
	// EventStopped is published when the framework stops.
	EventStopped
	// EventError carries a contained failure, such as a failing resolver hook
	// or a module dropped during restart.
	EventError
)

type (
	// EventKind classifies framework events.
	EventKind int

	// Event is delivered to subscribers synchronously, in publish order.
	Event struct {
		Kind   EventKind
		Module *Module
		// Owner names who the event is attributed to, such as a hook registrant.
		Owner string
		Err   error
	}

	// Subscription cancels a Subscribe call.
	Subscription struct {
		bus *eventBus
		id  int
	}

	eventBus struct {
		mu     sync.RWMutex
		nextID int
		subs   map[int]func(Event)
	}
)

// String returns a human-readable representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventInstalled:
		return "installed"
	case EventUpdated:
		return "updated"
	case EventResolved:
		return "resolved"
	case EventUninstalled:
		return "uninstalled"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]func(Event))}
}

func (b *eventBus) subscribe(fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[b.nextID] = fn
	return &Subscription{bus: b, id: b.nextID}
}

func (b *eventBus) publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, id := range slices.Sorted(maps.Keys(b.subs)) {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Cancel stops delivery to the subscriber.
func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}
