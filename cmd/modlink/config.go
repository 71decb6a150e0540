// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/modlink/modlink/internal/config"
	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `modlink config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modlink configuration",
		Long: `Manage modlink configuration.

Configuration is stored in:
  - Linux: ~/.config/modlink/config.cue
  - macOS: ~/Library/Application Support/modlink/config.cue
  - Windows: %APPDATA%\modlink\config.cue

A config.cue in the working directory is used when the configuration
directory has none. Options in the project's package.json and command line
flags take precedence over the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, source, err := config.LoadWithSource(cmd.Context(), config.LoadOptions{
				ConfigFilePath: types.FilesystemPath(app.configFile()),
				BaseDir:        app.workingDir(),
			})
			if err != nil {
				return app.serviceError(err)
			}
			showConfig(cmd.OutOrStdout(), app.effectiveConfig(), source)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig("")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", successIcon, pathStyle.Render(path))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", cfgDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.effectiveConfig()))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, source string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	showList := func(key string, values []string) {
		if len(values) == 0 {
			fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), SubtitleStyle.Render("(none)"))
			return
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(strings.Join(values, ", ")))
	}
	showList("search_paths", cfg.SearchPaths)
	showList("ignore_paths", cfg.IgnorePaths)
	showList("exclude", cfg.Exclude)
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("native_modules_dir"), valueStyle.Render(cfg.NativeModulesDir))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("only_project_deps"), valueStyle.Render(fmt.Sprintf("%v", cfg.OnlyProjectDeps)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("concurrency"), valueStyle.Render(fmt.Sprintf("%d", cfg.Concurrency)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("memo_max_entries"), valueStyle.Render(fmt.Sprintf("%d", cfg.MemoMaxEntries)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
}
