// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modlink/modlink/internal/generate"
	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/internal/options"
	"github.com/modlink/modlink/internal/watch"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/cobra"
)

const (
	flagTarget      = "target"
	flagNamespace   = "namespace"
	flagEntitlement = "entitlement"
	flagPackages    = "packages"
	flagWatch       = "watch"

	// Watch depths below each directory: scoped package, its platform
	// directory and the build files there.
	searchPathWatchDepth    = 3
	nativeModulesWatchDepth = 2
)

// ErrInvalidEntitlement is returned for an --entitlement value without "=".
var ErrInvalidEntitlement = errors.New("entitlement must be key=value")

// generateFlags are the flags shared by the generator commands.
type generateFlags struct {
	linkFlags
	target   string
	packages []string
	watch    bool
}

// newGeneratePackageListCommand creates the `modlink generate-package-list` command.
func newGeneratePackageListCommand(app *App) *cobra.Command {
	var (
		gf        generateFlags
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "generate-package-list [search-path...]",
		Short: "Generate the Android package list",
		Long: `Generate the Java class that registers the resolved modules and their
legacy React packages with an Android app.

Without --target, the source is printed to standard output. An existing
target with the same content is left untouched. With --watch, the source is
regenerated whenever a package is installed or removed or a manifest changes.

Examples:
  modlink generate-package-list -t android/app/src/main/java/expo/modules/ExpoModulesPackageList.java
  modlink generate-package-list --namespace com.example.app --packages expo-camera
  modlink generate-package-list -t <file> --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.serviceError(runGenerate(cmd, app, args, &gf, platform.FamilyAndroid, func(buf *bytes.Buffer, opts *options.Options) error {
				modules, _, err := app.resolveModules(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return generate.WritePackageList(buf, modules, generate.PackageListOptions{
					Namespace: namespace,
					Packages:  gf.packages,
				})
			}))
		},
	}
	addGenerateFlags(cmd, &gf, platform.Android)
	cmd.Flags().StringVar(&namespace, flagNamespace, generate.DefaultNamespace, "Java package of the generated class")
	return cmd
}

// newGenerateModulesProviderCommand creates the `modlink generate-modules-provider` command.
func newGenerateModulesProviderCommand(app *App) *cobra.Command {
	var (
		gf           generateFlags
		entitlements []string
	)
	cmd := &cobra.Command{
		Use:   "generate-modules-provider [search-path...]",
		Short: "Generate the Apple modules provider",
		Long: `Generate the Swift class that lists the resolved modules, app delegate
subscribers and React delegate handlers for an iOS, macOS or tvOS app.

Modules marked debug-only are compiled into debug builds only. Each
--entitlement key=value is embedded as an app code sign entitlement;
repeating a key collects its values into a list.

Examples:
  modlink generate-modules-provider -t ios/Pods/Target/ExpoModulesProvider.swift
  modlink generate-modules-provider --entitlement com.apple.developer.team-identifier=ABCDE12345`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseEntitlements(entitlements)
			if err != nil {
				return err
			}
			return app.serviceError(runGenerate(cmd, app, args, &gf, platform.FamilyApple, func(buf *bytes.Buffer, opts *options.Options) error {
				modules, _, err := app.resolveModules(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return generate.WriteModulesProvider(buf, modules, generate.ModulesProviderOptions{
					Entitlements: parsed,
					Packages:     gf.packages,
				})
			}))
		},
	}
	addGenerateFlags(cmd, &gf, platform.IOS)
	cmd.Flags().StringArrayVar(&entitlements, flagEntitlement, nil, "app code sign entitlement as key=value (repeatable)")
	return cmd
}

func addGenerateFlags(cmd *cobra.Command, gf *generateFlags, defaultPlatform platform.Platform) {
	addPlatformFlags(cmd, &gf.linkFlags, defaultPlatform)
	cmd.Flags().StringVarP(&gf.target, flagTarget, "t", "", "file to write (default: standard output)")
	cmd.Flags().StringSliceVar(&gf.packages, flagPackages, nil, "only include these package names")
	cmd.Flags().BoolVarP(&gf.watch, flagWatch, "w", false, "regenerate whenever a package or module manifest changes")
}

// renderFunc renders generated source for the resolved options.
type renderFunc func(*bytes.Buffer, *options.Options) error

// runGenerate resolves options for a generator of the given family, renders
// the source with render and writes it to --target or standard output. With
// --watch it then regenerates on every relevant change until interrupted.
func runGenerate(cmd *cobra.Command, app *App, args []string, gf *generateFlags, family platform.Family, render renderFunc) error {
	opts, err := app.linkOptions(cmd, args, &gf.linkFlags)
	if err != nil {
		return err
	}
	if opts.Platform.Family() != family {
		return fmt.Errorf("%s generates %s sources, got platform %q", cmd.Name(), family, opts.Platform)
	}
	if err := emit(cmd, app, gf, opts, render); err != nil {
		return err
	}
	if !gf.watch {
		return nil
	}
	return watchAndRegenerate(cmd, app, args, gf, opts, render)
}

func emit(cmd *cobra.Command, app *App, gf *generateFlags, opts *options.Options, render renderFunc) error {
	var buf bytes.Buffer
	if err := render(&buf, opts); err != nil {
		return err
	}

	if gf.target == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	target := fspath.AbsFrom(app.workingDir(), types.FilesystemPath(gf.target))
	written, err := generate.WriteFile(target, buf.Bytes())
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("write generated source").
			WithResource(gf.target).
			WithIssue(issue.TargetWriteFailedId).
			WithSuggestion("Check that the target directory is writable").
			Wrap(err).
			BuildError()
	}
	if written {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s Generated %s\n", successIcon, pathStyle.Render(gf.target))
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s is up to date\n", successIcon, pathStyle.Render(gf.target))
	}
	return nil
}

// watchAndRegenerate watches the project root, the native modules directory
// and the search paths of opts. Options are resolved again on every change,
// so edits to the project's autolinking settings apply too.
func watchAndRegenerate(cmd *cobra.Command, app *App, args []string, gf *generateFlags, opts *options.Options, render renderFunc) error {
	roots := []watch.Root{
		{Dir: opts.ProjectRoot},
		{Dir: opts.NativeModulesDir, Depth: nativeModulesWatchDepth},
	}
	for _, searchPath := range opts.SearchPaths {
		roots = append(roots, watch.Root{Dir: searchPath, Depth: searchPathWatchDepth})
	}

	w, err := watch.New(watch.Config{
		Roots: roots,
		OnChange: func(_ context.Context, changed []string) error {
			slog.Debug("regenerating", "changed", changed)
			opts, err := app.linkOptions(cmd, args, &gf.linkFlags)
			if err != nil {
				return err
			}
			return emit(cmd, app, gf, opts, render)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Watching %d directories for changes, press Ctrl+C to stop\n",
		bulletIcon, len(w.WatchedDirs()))
	return w.Run(cmd.Context())
}

// parseEntitlements groups key=value pairs by key, keeping value order.
func parseEntitlements(pairs []string) (map[string][]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	entitlements := make(map[string][]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntitlement, pair)
		}
		entitlements[key] = append(entitlements[key], value)
	}
	return entitlements, nil
}
