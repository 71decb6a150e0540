// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/platform"

	"github.com/spf13/cobra"
)

// newSearchCommand creates the `modlink search` command.
func newSearchCommand(app *App) *cobra.Command {
	var lf linkFlags
	cmd := &cobra.Command{
		Use:   "search [search-path...]",
		Short: "List native modules found in the search paths",
		Long: `List the native modules found in the search paths, with every duplicate
copy of a package that was found at another location.

Without search paths, the node_modules directory next to every package.json
from the current directory upward is searched.

Examples:
  modlink search                       Search from the current directory
  modlink search ../shared/node_modules Search a specific directory
  modlink search --json                Print the results as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serviceError(runSearch(cmd, app, args, &lf))
		},
	}
	addLinkFlags(cmd, &lf, platform.Apple)
	return cmd
}

func runSearch(cmd *cobra.Command, app *App, args []string, lf *linkFlags) error {
	opts, err := app.linkOptions(cmd, args, lf)
	if err != nil {
		return err
	}
	result, err := app.findModules(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if lf.json {
		return writeJSON(cmd.OutOrStdout(), result.Modules)
	}
	renderSearchResults(cmd.OutOrStdout(), result.Modules)
	return nil
}

// renderSearchResults prints one entry per module, sorted by name.
func renderSearchResults(w io.Writer, results registry.SearchResults) {
	names := registry.Names(results)
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Native modules (%d)", len(names))))
	if len(names) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none found)"))
		return
	}
	fmt.Fprintln(w)

	for _, name := range names {
		rev := results[name]
		label := CmdStyle.Render(name)
		if rev.IsLocal {
			label += " " + SubtitleStyle.Render("(local)")
		}
		fmt.Fprintf(w, "  %s %s %s\n", bulletIcon, label, versionStyle.Render(rev.Version))
		fmt.Fprintf(w, "    %s\n", pathStyle.Render(string(rev.Path)))
		for _, dup := range rev.Duplicates {
			fmt.Fprintf(w, "    %s duplicate %s %s\n", warningIcon, versionStyle.Render(dup.Version), pathStyle.Render(string(dup.Path)))
		}
	}
}
