// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/invowk/modhost/internal/config"
	"github.com/invowk/modhost/internal/framework"
	"github.com/invowk/modhost/internal/issue"
	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/resolverhook"

	"github.com/charmbracelet/fang"
)

// errUnresolved is returned by resolve when some module stays unresolved.
var errUnresolved = errors.New("some modules could not be resolved")

// issueFor maps an error onto the catalog entry explaining it.
func issueFor(err error) (*issue.Issue, bool) {
	var (
		id      issue.Id
		negErr  *connect.NegotiationError
		cfgLoad *issue.ActionableError
	)
	switch {
	case errors.Is(err, errUnresolved):
		id = issue.UnresolvedModulesId
	case errors.As(err, &negErr):
		id = issue.NegotiationFailedId
	case errors.Is(err, framework.ErrNoContent):
		id = issue.ContentUnavailableId
	case errors.Is(err, framework.ErrInvalidLocation):
		id = issue.InvalidLocationId
	case errors.Is(err, framework.ErrModuleNotFound):
		id = issue.ModuleNotFoundId
	case errors.Is(err, framework.ErrUninstalled), errors.Is(err, framework.ErrRevisionClosed):
		id = issue.ModuleUninstalledId
	case errors.Is(err, framework.ErrClosed):
		id = issue.FrameworkClosedId
	case errors.Is(err, framework.ErrStoreCorrupt):
		id = issue.StoreCorruptId
	case errors.Is(err, resolverhook.ErrHookFailed):
		id = issue.HookFailedId
	case errors.Is(err, config.ErrInvalidConfig), errors.As(err, &cfgLoad) && cfgLoad.Operation == "load configuration":
		id = issue.ConfigLoadFailedId
	default:
		return nil, false
	}
	return issue.Get(id), true
}

// renderError writes err for the user. Actionable errors print their
// suggestions; verbose mode adds the cause chain and the catalog guide.
func renderError(w io.Writer, styles fang.Styles, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	} else if verbose {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	} else {
		fang.DefaultErrorHandler(w, styles, err)
	}

	if !verbose {
		return
	}
	if iss, ok := issueFor(err); ok {
		if rendered, renderErr := iss.Render("notty"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}
