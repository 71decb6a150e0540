// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/modlink/modlink/internal/resolve"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/platform"

	"github.com/spf13/cobra"
)

// resolveOutput is the JSON output of resolve.
type resolveOutput struct {
	Modules []descriptor.ModuleDescriptor `json:"modules"`
	resolve.Extras
}

// newResolveCommand creates the `modlink resolve` command.
func newResolveCommand(app *App) *cobra.Command {
	var lf linkFlags
	cmd := &cobra.Command{
		Use:   "resolve [search-path...]",
		Short: "Resolve native modules for a platform",
		Long: `Resolve the discovered native modules for one platform and print what each
contributes to the native build: Gradle projects and plugins on Android, pods
and Swift modules on Apple platforms.

Examples:
  modlink resolve -p android          Resolve for Android
  modlink resolve -p ios --json       Print the iOS descriptors as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serviceError(runResolve(cmd, app, args, &lf))
		},
	}
	addLinkFlags(cmd, &lf, platform.Apple)
	return cmd
}

func runResolve(cmd *cobra.Command, app *App, args []string, lf *linkFlags) error {
	opts, err := app.linkOptions(cmd, args, lf)
	if err != nil {
		return err
	}
	modules, result, err := app.resolveModules(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := resolveOutput{Modules: modules, Extras: resolve.ResolveExtras(result.Modules)}
	if lf.json {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	renderResolved(cmd.OutOrStdout(), opts.Platform, out)
	return nil
}

func renderResolved(w io.Writer, p platform.Platform, out resolveOutput) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Modules for %s (%d)", p, len(out.Modules))))
	if len(out.Modules) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
		return
	}
	fmt.Fprintln(w)

	for _, m := range out.Modules {
		fmt.Fprintf(w, "  %s %s\n", bulletIcon, CmdStyle.Render(m.PackageName()))
		for _, line := range describe(m) {
			fmt.Fprintf(w, "    %s\n", VerboseStyle.Render(line))
		}
	}
	if len(out.CoreFeatures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("Core features:"), strings.Join(out.CoreFeatures, ", "))
	}
}

// describe returns one summary line per contribution of m.
func describe(m descriptor.ModuleDescriptor) []string {
	var lines []string
	switch m.Platform {
	case descriptor.PlatformAndroid:
		for _, project := range m.Android.Projects {
			line := "project " + project.Name + " " + project.SourceDir
			if project.Publication != nil {
				line += " (prebuilt " + project.Publication.GroupID + ":" + project.Publication.ArtifactID + ")"
			}
			lines = append(lines, line)
		}
		for _, plugin := range m.Android.Plugins {
			lines = append(lines, "gradle plugin "+plugin.ID)
		}
		for _, pkg := range m.Android.Packages {
			lines = append(lines, "package "+pkg)
		}
	case descriptor.PlatformApple:
		for _, pod := range m.Apple.Pods {
			line := "pod " + pod.PodName + " " + pod.PodspecDir
			if pod.Prebuilt != "" {
				line += " (prebuilt)"
			}
			lines = append(lines, line)
		}
		if len(m.Apple.Modules) > 0 {
			lines = append(lines, "modules "+strings.Join(m.Apple.Modules, ", "))
		}
		if m.Apple.DebugOnly {
			lines = append(lines, "debug only")
		}
	case descriptor.PlatformDevTools:
		lines = append(lines, "webpage "+m.DevTools.WebpageRoot)
	}
	return lines
}
