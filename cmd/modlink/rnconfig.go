// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/modlink/modlink/internal/rnconfig"

	"github.com/spf13/cobra"
)

// newReactNativeConfigCommand creates the `modlink react-native-config` command.
func newReactNativeConfigCommand(app *App) *cobra.Command {
	var lf linkFlags
	cmd := &cobra.Command{
		Use:   "react-native-config",
		Short: "Print the React Native CLI config for plain native libraries",
		Long: `Print the dependency config the React Native CLI links for the project's
direct dependencies that ship Android or iOS code without being native
modules themselves: a Gradle project with a ReactPackage class, or a podspec.

Without --platform, both Android and iOS are reported.

Examples:
  modlink react-native-config --json
  modlink react-native-config -p android --exclude react-native-svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serviceError(runReactNativeConfig(cmd, app, &lf))
		},
	}
	addLinkFlags(cmd, &lf, "")
	return cmd
}

func runReactNativeConfig(cmd *cobra.Command, app *App, lf *linkFlags) error {
	opts, err := app.linkOptions(cmd, nil, lf)
	if err != nil {
		return err
	}
	cfg, err := rnconfig.Create(cmd.Context(), rnconfig.Options{
		ProjectRoot: opts.ProjectRoot,
		Platform:    opts.Platform,
		Exclude:     opts.Exclude,
	})
	if err != nil {
		return err
	}

	if lf.json {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}
	renderReactNativeConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func renderReactNativeConfig(w io.Writer, cfg *rnconfig.Config) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("React Native dependencies (%d)", len(cfg.Dependencies))))
	fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("react-native:"), pathStyle.Render(cfg.ReactNativePath))
	fmt.Fprintln(w)

	names := make([]string, 0, len(cfg.Dependencies))
	for name := range cfg.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		dep := cfg.Dependencies[name]
		fmt.Fprintf(w, "  %s %s\n", bulletIcon, CmdStyle.Render(name))
		if android := dep.Platforms.Android; android != nil {
			fmt.Fprintf(w, "    android %s %s\n", VerboseStyle.Render(android.PackageInstance), pathStyle.Render(android.SourceDir))
		}
		if ios := dep.Platforms.IOS; ios != nil {
			fmt.Fprintf(w, "    ios     %s\n", pathStyle.Render(ios.PodspecPath))
		}
	}
}
