// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/content/overlay"
	"github.com/invowk/modhost/pkg/resolverhook"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// reconstructLimit bounds how many modules are rebound in parallel on Init.
const reconstructLimit = 8

// Framework is the module runtime. It is safe for concurrent use.
type Framework struct {
	*lifecycle.Base

	storageDir     string
	clean          bool
	factory        connect.Factory
	settings       connect.Settings
	wrappers       []content.WrapperFactory
	overlayRoots   overlay.Roots
	devClassPath   []string
	hooks          resolverhook.Registry
	systemPackages []string
	logger         *log.Logger
	traceHooks     bool

	initOnce sync.Once
	initErr  error
	id       string

	mu         sync.RWMutex
	modules    map[ModuleID]*Module
	byLocation map[Location]*Module
	nextID     ModuleID
	activator  connect.Activator

	storeMu  sync.Mutex
	installs singleflight.Group
	events   *eventBus
}

// New returns a framework in the created state.
func New(opts ...Option) *Framework {
	f := &Framework{
		Base:       lifecycle.NewBase(),
		logger:     log.New(io.Discard),
		modules:    make(map[ModuleID]*Module),
		byLocation: make(map[Location]*Module),
		nextID:     1,
		events:     newEventBus(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.applyOverlay()
	return f
}

// ID returns the instance id assigned by the first Init.
func (f *Framework) ID() string {
	return f.id
}

// StorageDir returns the directory holding the module table.
func (f *Framework) StorageDir() string {
	return f.storageDir
}

// Logger returns the logger the framework reports to.
func (f *Framework) Logger() *log.Logger {
	return f.logger
}

// Subscribe registers fn for every event published from now on.
func (f *Framework) Subscribe(fn func(Event)) *Subscription {
	return f.events.subscribe(fn)
}

// Init loads the persisted module table and rebinds every module. The
// negotiator is initialized on the first call only. Modules whose content can
// no longer be bound are dropped and reported as error events.
func (f *Framework) Init(ctx context.Context) error {
	if _, err := f.TransitionToInitialized(); err != nil {
		if f.State() == lifecycle.StateClosed {
			return ErrClosed
		}
		return err
	}

	f.initOnce.Do(func() {
		f.id = uuid.NewString()
		f.initErr = f.initialize()
	})
	if f.initErr != nil {
		f.TransitionToFailed(f.initErr)
		return f.initErr
	}

	if err := f.reconstruct(ctx); err != nil {
		f.TransitionToFailed(err)
		return err
	}
	return nil
}

func (f *Framework) initialize() error {
	if f.clean && f.storageDir != "" {
		if err := removeStore(f.storageDir); err != nil {
			return err
		}
	}
	if f.factory == nil {
		return nil
	}
	err := f.factory.Initialize(f.storageDir, f.settings)
	if errors.Is(err, connect.ErrAlreadyInitialized) {
		f.logger.Debug("negotiator already initialized", "negotiator", connect.NegotiatorName(f.factory))
		return nil
	}
	if err != nil {
		return fmt.Errorf("initializing negotiator %s: %w", connect.NegotiatorName(f.factory), err)
	}
	return nil
}

type rebound struct {
	entry storedEntry
	rev   *Revision
	mod   *Module
	err   error
}

func (f *Framework) reconstruct(ctx context.Context) error {
	if f.storageDir == "" {
		return nil
	}
	st, err := loadStore(f.storageDir)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// A restart rebinds content the previous run still holds open. From here
	// on every module is either rebound or dropped, so the restore runs to
	// completion.
	f.mu.RLock()
	for _, m := range f.modules {
		if r := m.current.Load(); r != nil {
			if err := r.close(); err != nil {
				f.logger.Warn("closing revision before restore", "id", m.id, "revision", r.ID(), "err", err)
			}
		}
	}
	f.mu.RUnlock()

	results := make([]rebound, len(st.Modules))
	var g errgroup.Group
	g.SetLimit(reconstructLimit)
	for i, e := range st.Modules {
		f.mu.RLock()
		m := f.modules[e.ID]
		f.mu.RUnlock()
		if m == nil {
			m = newModule(f, e.ID, e.Location)
		}
		results[i] = rebound{entry: e, mod: m}

		g.Go(func() error {
			rev, err := f.bind(m, e.Generation, e.Source, nil)
			results[i].rev, results[i].err = rev, err
			return nil
		})
	}
	_ = g.Wait() // bind failures are kept per module in results

	var dropped []rebound
	f.mu.Lock()
	if st.NextID > f.nextID {
		f.nextID = st.NextID
	}
	keep := make(map[ModuleID]bool, len(results))
	for _, r := range results {
		m := r.mod
		if r.err != nil {
			dropped = append(dropped, r)
			continue
		}
		keep[m.id] = true
		if old := m.current.Swap(r.rev); old != nil {
			_ = old.close()
		}
		m.state.Store(int32(ModuleInstalled))
		f.modules[m.id] = m
		f.byLocation[m.location] = m
	}
	for id, m := range f.modules {
		if keep[id] {
			continue
		}
		delete(f.modules, id)
		delete(f.byLocation, m.location)
		m.state.Store(int32(ModuleUninstalled))
		if old := m.current.Swap(nil); old != nil {
			_ = old.close()
		}
	}
	f.mu.Unlock()

	for _, r := range dropped {
		err := &ModuleError{ID: r.entry.ID, Location: r.entry.Location, Op: "restore", Err: r.err}
		f.logger.Warn("dropping module", "id", r.entry.ID, "location", r.entry.Location, "err", r.err)
		f.events.publish(Event{Kind: EventError, Module: r.mod, Err: err})
	}
	if len(dropped) > 0 {
		return f.persist()
	}
	return nil
}

// Start initializes the framework if needed and starts the negotiator's
// activator. A new activator is requested on every start.
func (f *Framework) Start(ctx context.Context) error {
	switch f.State() {
	case lifecycle.StateCreated, lifecycle.StateResolved:
		if err := f.Init(ctx); err != nil {
			return err
		}
	case lifecycle.StateClosed:
		return ErrClosed
	}

	if err := f.TransitionToStarting(ctx); err != nil {
		return err
	}

	if f.factory != nil {
		if a, ok := f.factory.NewActivator(); ok {
			if err := a.Start(ctx); err != nil {
				err = fmt.Errorf("starting activator: %w", err)
				f.TransitionToFailed(err)
				return err
			}
			f.mu.Lock()
			f.activator = a
			f.mu.Unlock()
		}
	}

	f.TransitionToActive()
	f.logger.Info("framework started", "id", f.id, "modules", len(f.Modules()))
	f.events.publish(Event{Kind: EventStarted})
	return nil
}

// Stop stops the activator and persists the module table. Stopping a
// framework that is not running does nothing.
func (f *Framework) Stop(ctx context.Context) error {
	if !f.TransitionToStopping() {
		return nil
	}

	f.mu.Lock()
	a := f.activator
	f.activator = nil
	f.mu.Unlock()

	var errs []error
	if a != nil {
		if err := a.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping activator: %w", err))
		}
	}
	errs = append(errs, f.persist())

	f.TransitionToResolved()
	f.logger.Info("framework stopped", "id", f.id)
	f.events.publish(Event{Kind: EventStopped})
	return errors.Join(errs...)
}

// Close stops the framework and releases every module's content. The
// framework cannot be used afterwards.
func (f *Framework) Close() error {
	err := f.Stop(context.Background())
	if !f.TransitionToClosed() {
		return err
	}

	f.mu.Lock()
	mods := slices.Collect(maps.Values(f.modules))
	f.mu.Unlock()

	errs := []error{err}
	for _, m := range mods {
		if r := m.current.Load(); r != nil {
			errs = append(errs, r.close())
		}
	}
	return errors.Join(errs...)
}

// Module returns the module with id.
func (f *Framework) Module(id ModuleID) (*Module, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.modules[id]
	return m, ok
}

// ModuleAt returns the module installed from loc.
func (f *Framework) ModuleAt(loc Location) (*Module, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.byLocation[loc]
	return m, ok
}

// Modules returns every installed module ordered by id.
func (f *Framework) Modules() []*Module {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Module, 0, len(f.modules))
	for _, id := range slices.Sorted(maps.Keys(f.modules)) {
		out = append(out, f.modules[id])
	}
	return out
}

func (f *Framework) checkUsable() error {
	switch f.State() {
	case lifecycle.StateCreated:
		return ErrNotInitialized
	case lifecycle.StateClosed:
		return ErrClosed
	default:
		return nil
	}
}

func (f *Framework) persist() error {
	if f.storageDir == "" {
		return nil
	}

	f.storeMu.Lock()
	defer f.storeMu.Unlock()

	f.mu.RLock()
	st := &store{NextID: f.nextID}
	for _, id := range slices.Sorted(maps.Keys(f.modules)) {
		m := f.modules[id]
		r := m.current.Load()
		if r == nil {
			continue
		}
		st.Modules = append(st.Modules, storedEntry{
			ID:         m.id,
			Location:   m.location,
			Source:     r.source,
			Generation: r.generation,
		})
	}
	f.mu.RUnlock()

	return st.save(f.storageDir)
}
