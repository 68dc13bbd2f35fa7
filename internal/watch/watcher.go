// SPDX-License-Identifier: MPL-2.0

// Package watch monitors directory-backed modules and fires a debounced
// callback per module when its files change.
//
// Events within the debounce window are coalesced per target, so a burst of
// writes to one module yields one callback carrying every changed path while
// other targets keep their own windows.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are always excluded: VCS metadata, editor swap files and OS
// metadata that change at high frequency.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/*.tmp",
}

// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid watch config")

type (
	// Target is a directory watched under a caller-chosen name.
	Target struct {
		Name string
		Dir  string
	}

	// Config holds the parameters for a Watcher.
	Config struct {
		// Targets are the directories to watch. Nested targets are allowed;
		// an event belongs to the deepest target containing it.
		Targets []Target

		// Patterns select, relative to each target, which files trigger
		// callbacks. Empty watches every non-ignored file.
		Patterns []string

		// Ignore is merged with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period per target. Zero or negative values
		// fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the target and its deduplicated, sorted changed
		// paths (relative to the target, slash separated).
		OnChange func(ctx context.Context, target Target, changed []string) error

		// Logger defaults to a discarding logger.
		Logger *log.Logger
	}

	// InvalidConfigError lists every problem found by Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Watcher monitors targets. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		targets  []*target
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool
	}

	target struct {
		Target
		abs string

		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		running atomic.Bool
	}
)

// Validate reports blank or duplicate targets and malformed patterns.
func (c Config) Validate() error {
	var errs []error
	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("no targets"))
	}
	names := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		switch {
		case strings.TrimSpace(t.Name) == "":
			errs = append(errs, fmt.Errorf("targets[%d]: blank name", i))
		case names[t.Name]:
			errs = append(errs, fmt.Errorf("targets[%d]: duplicate name %q", i, t.Name))
		}
		names[t.Name] = true
		if strings.TrimSpace(t.Dir) == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: blank directory", i))
		}
	}
	errs = append(errs, validatePatterns(c.Patterns, "watch")...)
	errs = append(errs, validatePatterns(c.Ignore, "ignore")...)
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid watch config: " + strings.Join(msgs, "; ")
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// New validates cfg and registers every non-ignored directory below each
// target with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}

	for _, t := range cfg.Targets {
		abs, err := filepath.Abs(t.Dir)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", t.Dir, err)
		}
		w.targets = append(w.targets, &target{Target: t, abs: abs, pending: make(map[string]struct{})})
	}
	// deepest first so nested targets win
	slices.SortStableFunc(w.targets, func(a, b *target) int { return len(b.abs) - len(a.abs) })

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, t := range w.targets {
		if err := w.addDirectories(t); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				w.logger.Warn("close after init failure", "err", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when fsnotify fails fatally.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	defer func() {
		for _, t := range w.targets {
			t.mu.Lock()
			if t.timer != nil {
				t.timer.Stop()
			}
			t.mu.Unlock()
		}
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			t, rel, ok := w.owner(evt.Name)
			if !ok || w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(t, evt.Name)
			}
			if !w.matchesPatterns(rel) {
				continue
			}

			t.mu.Lock()
			t.pending[rel] = struct{}{}
			if t.timer == nil {
				t.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, t) })
			} else {
				t.timer.Reset(w.debounce)
			}
			t.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if brokenBy(err) {
				return fmt.Errorf("%w: %w", ErrWatcherBroken, err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// fire drains t's pending set. A callback still running for t defers the
// drain by another debounce period instead of running concurrently.
func (w *Watcher) fire(ctx context.Context, t *target) {
	if ctx.Err() != nil {
		return
	}
	if !t.running.CompareAndSwap(false, true) {
		w.logger.Debug("callback still running, deferring", "target", t.Name)
		t.mu.Lock()
		t.timer.Reset(w.debounce)
		t.mu.Unlock()
		return
	}
	defer t.running.Store(false)

	t.mu.Lock()
	if len(t.pending) == 0 {
		t.mu.Unlock()
		return
	}
	changed := slices.Sorted(maps.Keys(t.pending))
	clear(t.pending)
	t.mu.Unlock()

	w.logger.Debug("change detected", "target", t.Name, "files", len(changed))
	if w.cfg.OnChange == nil {
		return
	}
	if err := w.cfg.OnChange(ctx, t.Target, changed); err != nil {
		w.logger.Error("change callback failed", "target", t.Name, "err", err)
	}
}

// owner returns the deepest target containing path and path relative to it.
func (w *Watcher) owner(path string) (*target, string, bool) {
	for _, t := range w.targets {
		rel, err := filepath.Rel(t.abs, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return t, filepath.ToSlash(rel), true
	}
	return nil, "", false
}

func (w *Watcher) addDirectories(t *target) error {
	walkErr := filepath.WalkDir(t.abs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == t.abs {
				return err
			}
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil //nolint:nilerr // inaccessible subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := relSlash(t.abs, path); ok && rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", t.Name, walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(t *target, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if rel, ok := relSlash(t.abs, path); !ok || w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func relSlash(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) []error {
	var errs []error
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid %s pattern %q", label, pat))
		}
	}
	return errs
}
