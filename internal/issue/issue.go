// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	RootManifestNotFoundId Id = iota + 1
	ModuleConfigParseErrorId
	ModuleResolutionFailedId
	DuplicateRevisionsId
	UnknownPlatformId
	ConfigLoadFailedId
	TargetWriteFailedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the Markdown body of a catalog entry.
	MarkdownMsg string

	// HttpLink is a documentation link appended to a rendered entry.
	HttpLink string

	// Issue is one catalog entry.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// Id returns the catalog id.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the entry's documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the entry for the terminal with the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- " + string(link) + "\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	rootManifestNotFoundIssue = &Issue{
		id: RootManifestNotFoundId,
		mdMsg: `
# No root package manifest found

Filtering to project dependencies starts from the root project's ` + "`package.json`" + `,
and none was found at the project root.

## Things you can try
- Run the command from your app directory, or pass it explicitly:
~~~
$ modlink resolve --project-root ./apps/mobile --platform ios
~~~
- Link everything that was found instead of filtering:
~~~
$ modlink resolve --no-only-project-deps --platform ios
~~~`,
	}

	moduleConfigParseErrorIssue = &Issue{
		id: ModuleConfigParseErrorId,
		mdMsg: `
# A module manifest could not be parsed

A package contains ` + "`expo-module.config.json`" + ` (or the legacy ` + "`unimodule.json`" + `)
but its contents are not valid. The package was skipped or a lower-priority
manifest was used instead.

## Things you can try
- Validate the JSON syntax of the reported file.
- Check field types: ` + "`platforms`" + ` is a list of strings, ` + "`apple.debugOnly`" + ` is a boolean.`,
	}

	moduleResolutionFailedIssue = &Issue{
		id: ModuleResolutionFailedId,
		mdMsg: `
# A declared dependency could not be located

A package lists a dependency that is not installed anywhere reachable from it.
That branch of the dependency graph was skipped.

## Things you can try
- Reinstall dependencies with your package manager.
- Silence these warnings with ` + "`--silent`" + ` when the dependency is optional.`,
	}

	duplicateRevisionsIssue = &Issue{
		id: DuplicateRevisionsId,
		mdMsg: `
# Multiple revisions of the same module

The same module name was found at more than one real path. Only the first one
found is linked; the others are ignored and may cause runtime mismatches.

## Things you can try
- Deduplicate your lockfile (for example ` + "`npm dedupe`" + `).
- Pin the module with a resolution/override in the root package manifest.`,
	}

	unknownPlatformIssue = &Issue{
		id: UnknownPlatformId,
		mdMsg: `
# Unknown platform

Use one of: ` + "`android`, `ios`, `macos`, `tvos`, `apple`, `devtools`" + `.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

modlink could not load its configuration file and fell back to defaults.

## Things you can try
- Check the syntax of ` + "`config.cue`" + ` in your config directory.
- Show the effective configuration:
~~~
$ modlink config show
~~~`,
	}

	targetWriteFailedIssue = &Issue{
		id: TargetWriteFailedId,
		mdMsg: `
# Failed to write the generated file

The directory given with ` + "`--target`" + ` must exist and be writable.`,
	}

	issues = map[Id]*Issue{
		rootManifestNotFoundIssue.Id():   rootManifestNotFoundIssue,
		moduleConfigParseErrorIssue.Id(): moduleConfigParseErrorIssue,
		moduleResolutionFailedIssue.Id(): moduleResolutionFailedIssue,
		duplicateRevisionsIssue.Id():     duplicateRevisionsIssue,
		unknownPlatformIssue.Id():        unknownPlatformIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		targetWriteFailedIssue.Id():      targetWriteFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	all := maps.Clone(issues)
	out := make([]*Issue, 0, len(all))
	for _, is := range all {
		out = append(out, is)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
