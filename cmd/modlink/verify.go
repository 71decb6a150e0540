// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/modlink/modlink/internal/depgraph"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/cobra"
)

type (
	// verifyReport is the JSON output of verify.
	verifyReport struct {
		registry.Report
		Graph *graphReport `json:"graph,omitempty"`
	}

	// graphReport summarizes the dependency walk for --graph.
	graphReport struct {
		Root      string     `json:"root"`
		Cycles    [][]string `json:"cycles"`
		LinkOrder []string   `json:"linkOrder,omitempty"`
	}
)

// newVerifyCommand creates the `modlink verify` command.
func newVerifyCommand(app *App) *cobra.Command {
	var (
		lf    linkFlags
		graph bool
	)
	cmd := &cobra.Command{
		Use:   "verify [search-path...]",
		Short: "Report packages installed more than once",
		Long: `Report every native module found at more than one location, with the
version and path of each copy. Exits with status 1 when duplicates exist.

With --graph, also report dependency cycles among the project's packages and,
when there are none, the order in which they would be linked.

Examples:
  modlink verify              Check the current project
  modlink verify --graph      Include the dependency graph report
  modlink verify --json       Print the report as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serviceError(runVerify(cmd, app, args, &lf, graph))
		},
	}
	addLinkFlags(cmd, &lf, platform.Apple)
	cmd.Flags().BoolVar(&graph, "graph", false, "report dependency cycles and link order")
	return cmd
}

func runVerify(cmd *cobra.Command, app *App, args []string, lf *linkFlags, withGraph bool) error {
	opts, err := app.linkOptions(cmd, args, lf)
	if err != nil {
		return err
	}
	result, err := app.findModules(cmd.Context(), opts)
	if err != nil {
		return err
	}

	report := verifyReport{Report: registry.Verify(result.Modules)}
	if withGraph {
		report.Graph = buildGraphReport(result.Graph)
	}

	if lf.json {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		renderVerifyReport(cmd.OutOrStdout(), report, withGraph)
	}

	if report.HasConflicts() {
		return exitSilently(cmd, types.ExitFailure)
	}
	return nil
}

// buildGraphReport returns nil when the dependency walk was skipped.
func buildGraphReport(walk *depgraph.Result) *graphReport {
	if walk == nil {
		return nil
	}
	g := walk.Graph()
	report := &graphReport{Root: walk.RootName, Cycles: g.Cycles()}
	if report.Cycles == nil {
		report.Cycles = [][]string{}
	}
	// LinkOrder fails only on cycles, which are already reported.
	if order, err := g.LinkOrder(); err == nil {
		report.LinkOrder = order
	}
	return report
}

func renderVerifyReport(w io.Writer, report verifyReport, withGraph bool) {
	fmt.Fprintln(w, TitleStyle.Render("Duplicate packages"))
	fmt.Fprintln(w)

	if !report.HasConflicts() {
		fmt.Fprintf(w, "%s No duplicate packages found\n", successIcon)
	}
	for _, conflict := range report.Conflicts {
		fmt.Fprintf(w, "%s %s\n", errorIcon, CmdStyle.Render(conflict.Name))
		fmt.Fprintf(w, "    primary   %s %s\n", versionStyle.Render(conflict.Primary.Version), pathStyle.Render(string(conflict.Primary.Path)))
		for _, dup := range conflict.Duplicates {
			fmt.Fprintf(w, "    duplicate %s %s\n", versionStyle.Render(dup.Version), pathStyle.Render(string(dup.Path)))
		}
	}
	if report.HasConflicts() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %d package(s) installed more than once\n", warningIcon, report.ConflictCount())
		fmt.Fprintln(w, SubtitleStyle.Render("  Deduplicate them with your package manager so only one copy is linked."))
	}

	if !withGraph {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Dependency graph"))
	fmt.Fprintln(w)
	if report.Graph == nil {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(not built: filtering to project dependencies was skipped)"))
		return
	}
	if len(report.Graph.Cycles) == 0 {
		fmt.Fprintf(w, "%s No dependency cycles\n", successIcon)
	}
	for _, cycle := range report.Graph.Cycles {
		fmt.Fprintf(w, "%s cycle: %s\n", warningIcon, strings.Join(cycle, ", "))
	}
	if len(report.Graph.LinkOrder) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("Link order:"))
		for i, name := range report.Graph.LinkOrder {
			fmt.Fprintf(w, "  %d. %s\n", i+1, name)
		}
	}
}
