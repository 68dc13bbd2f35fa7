// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/invowk/modhost/internal/framework"
)

// ModuleTargets returns a target per directory-backed module, named by the
// module id. Archive and connect modules have no directory to watch.
func ModuleTargets(mods []*framework.Module) []Target {
	targets := make([]Target, 0, len(mods))
	for _, m := range mods {
		rev := m.Current()
		if rev == nil || rev.Source() != framework.SourceDir {
			continue
		}
		targets = append(targets, Target{Name: m.ID().String(), Dir: m.Location().String()})
	}
	return targets
}

// Reloader rebinds a module's content when its directory changes and resolves
// it again, so newly added classes and manifest edits become visible.
type Reloader struct {
	Framework *framework.Framework
	// Reloaded, when set, is called after each successful update.
	Reloaded func(m *framework.Module, report *framework.ResolveReport)
}

// OnChange is a Config.OnChange callback for targets built by ModuleTargets.
func (r *Reloader) OnChange(ctx context.Context, t Target, _ []string) error {
	id, err := strconv.ParseInt(t.Name, 10, 64)
	if err != nil {
		return fmt.Errorf("watch: target %q is not a module id: %w", t.Name, err)
	}
	m, ok := r.Framework.Module(framework.ModuleID(id))
	if !ok {
		return fmt.Errorf("watch: module %d: %w", id, framework.ErrModuleNotFound)
	}
	if err := r.Framework.Update(ctx, m); err != nil {
		return err
	}
	report, err := r.Framework.Resolve(ctx, m)
	if err != nil {
		return err
	}
	if r.Reloaded != nil {
		r.Reloaded(m, report)
	}
	return nil
}
