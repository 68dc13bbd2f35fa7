// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"slices"

	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content"
	"github.com/invowk/modhost/pkg/content/overlay"
	"github.com/invowk/modhost/pkg/resolverhook"

	"github.com/charmbracelet/log"
)

// Option configures a Framework.
type Option func(*Framework)

// WithStorageDir sets where the module table is persisted. Without it the
// framework keeps nothing across instances.
func WithStorageDir(dir string) Option {
	return func(f *Framework) {
		f.storageDir = dir
	}
}

// WithClean discards the persisted module table on first Init.
func WithClean(clean bool) Option {
	return func(f *Framework) {
		f.clean = clean
	}
}

// WithFactory sets the connect negotiator consulted before the filesystem.
func WithFactory(factory connect.Factory) Option {
	return func(f *Framework) {
		f.factory = factory
	}
}

// WithSettings sets the configuration handed to the negotiator. The map is
// copied.
func WithSettings(settings map[string]string) Option {
	return func(f *Framework) {
		f.settings = connect.NewSettings(settings)
	}
}

// WithWrapperFactories appends wrapper factories to the content chain.
func WithWrapperFactories(factories ...content.WrapperFactory) Option {
	return func(f *Framework) {
		f.wrappers = append(f.wrappers, factories...)
	}
}

// WithOverlay enables development overlays. The overlay factory runs before
// every other wrapper factory.
func WithOverlay(roots overlay.Roots) Option {
	return func(f *Framework) {
		f.overlayRoots = roots
	}
}

// WithDevClassPath appends entries to every module's class path.
func WithDevClassPath(entries ...string) Option {
	return func(f *Framework) {
		f.devClassPath = append(f.devClassPath, entries...)
	}
}

// WithHookRegistry sets where resolver hooks are looked up.
func WithHookRegistry(r resolverhook.Registry) Option {
	return func(f *Framework) {
		f.hooks = r
	}
}

// WithSystemPackages lists packages that are always available.
func WithSystemPackages(pkgs ...string) Option {
	return func(f *Framework) {
		f.systemPackages = append(f.systemPackages, pkgs...)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(f *Framework) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithHookTracing logs every resolver hook call at debug level.
func WithHookTracing(enabled bool) Option {
	return func(f *Framework) {
		f.traceHooks = enabled
	}
}

func (f *Framework) applyOverlay() {
	if f.overlayRoots == nil {
		return
	}
	of := &overlay.Factory{Roots: f.overlayRoots, Logger: f.logger}
	f.wrappers = slices.Insert(f.wrappers, 0, content.WrapperFactory(of))
}
