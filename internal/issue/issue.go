// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	InvalidLocationId
	ContentUnavailableId
	NegotiationFailedId
	ModuleNotFoundId
	ModuleUninstalledId
	FrameworkClosedId
	StoreCorruptId
	UnresolvedModulesId
	HookFailedId
)

// DocsBase is the root of the guides in the repository's docs directory.
const DocsBase = "https://github.com/invowk/modhost/blob/main/docs/"

type (
	// MarkdownMsg is Markdown rendered to the terminal.
	MarkdownMsg string

	// HttpLink is an absolute URL.
	HttpLink string

	// Issue is a catalog entry: a Markdown explanation plus links.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the message with glamour using stylePath ("" picks the
// terminal default). Links are appended under a "See also" heading.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "\n- <" + string(link) + ">"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded!

modhost reads ` + "`config.cue`" + ` from its configuration directory, then from the
current directory. The file is validated against the built-in schema.

## Things you can try:
- Print the effective configuration:
~~~
$ modhost config show
~~~
- Print where modhost looks for the file:
~~~
$ modhost config path
~~~
- Start over from the defaults:
~~~
$ modhost config init
~~~`,
		docLinks: []HttpLink{DocsBase + "configuration.md"},
	}

	invalidLocationIssue = &Issue{
		id: InvalidLocationId,
		mdMsg: `
# Invalid module location!

A location identifies a module. It must be a non-blank string, usually a
directory or a zip archive on disk.

## Things you can try:
- Pass an absolute path to ` + "`modhost install`" + `
- Quote locations that contain spaces`,
		docLinks: []HttpLink{DocsBase + "modules.md"},
	}

	contentUnavailableIssue = &Issue{
		id: ContentUnavailableId,
		mdMsg: `
# No content for this location!

Neither a connect negotiator nor the filesystem could supply content for the
location. Modules installed from connect content stay connect-backed, so they
are dropped when the negotiator stops answering for them.

## Things you can try:
- Check that the directory or archive still exists
- If the module was installed through connect, check the negotiator settings in ` + "`connect`" + `
- Reinstall the module:
~~~
$ modhost install <location>
~~~`,
		docLinks: []HttpLink{DocsBase + "content.md"},
	}

	negotiationFailedIssue = &Issue{
		id: NegotiationFailedId,
		mdMsg: `
# Connect negotiation failed!

A content negotiator returned an error or panicked while answering for a
location. Other locations are unaffected.

## Things you can try:
- Run again with ` + "`--verbose`" + ` to see the negotiator's error chain
- Check the ` + "`connect`" + ` settings passed to the negotiator`,
		docLinks: []HttpLink{DocsBase + "connect.md"},
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

No installed module has the requested id or location.

## Things you can try:
- List installed modules:
~~~
$ modhost list
~~~`,
		docLinks: []HttpLink{DocsBase + "modules.md"},
	}

	moduleUninstalledIssue = &Issue{
		id: ModuleUninstalledId,
		mdMsg: `
# Module was uninstalled!

The module was removed while the operation was running. Its content is closed
and can no longer be read.`,
		docLinks: []HttpLink{DocsBase + "modules.md"},
	}

	frameworkClosedIssue = &Issue{
		id: FrameworkClosedId,
		mdMsg: `
# Framework is closed!

A closed framework cannot be restarted. Create a new one with the same storage
directory to pick up the persisted modules.`,
		docLinks: []HttpLink{DocsBase + "lifecycle.md"},
	}

	storeCorruptIssue = &Issue{
		id: StoreCorruptId,
		mdMsg: `
# Module store is unreadable!

The ` + "`modules.toml`" + ` file in the storage directory could not be parsed.

## Things you can try:
- Inspect the file and fix the offending entry
- Discard the stored modules and start clean:
~~~
$ modhost --clean list
~~~`,
		docLinks: []HttpLink{DocsBase + "storage.md"},
	}

	unresolvedModulesIssue = &Issue{
		id: UnresolvedModulesId,
		mdMsg: `
# Some modules could not be resolved!

A module resolves once every ` + "`Require-Module`" + ` and ` + "`Import-Package`" + `
entry of its manifest is provided by another resolvable module or by the
configured system packages.

## Things you can try:
- Install the module that exports the missing package
- Add platform packages to ` + "`system_packages`" + ` in the configuration`,
		docLinks: []HttpLink{DocsBase + "resolution.md"},
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# A resolver hook failed!

The failing hook was isolated: its changes were discarded and resolution
continued as if it had not been registered for that step.

## Things you can try:
- Enable hook tracing with ` + "`log.trace_hooks: true`" + `
- Unregister or fix the hook owner named in the message`,
		docLinks: []HttpLink{DocsBase + "hooks.md"},
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		invalidLocationIssue.Id():    invalidLocationIssue,
		contentUnavailableIssue.Id(): contentUnavailableIssue,
		negotiationFailedIssue.Id():  negotiationFailedIssue,
		moduleNotFoundIssue.Id():     moduleNotFoundIssue,
		moduleUninstalledIssue.Id():  moduleUninstalledIssue,
		frameworkClosedIssue.Id():    frameworkClosedIssue,
		storeCorruptIssue.Id():       storeCorruptIssue,
		unresolvedModulesIssue.Id():  unresolvedModulesIssue,
		hookFailedIssue.Id():         hookFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
