// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/modlink/modlink/internal/discovery"
	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/internal/options"
	"github.com/modlink/modlink/internal/resolve"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/platform"

	"github.com/spf13/cobra"
)

const (
	flagPlatform = "platform"
	flagJSON     = "json"
)

// linkFlags are the flags shared by every linking command.
type linkFlags struct {
	platform string
	json     bool
}

// addLinkFlags registers the shared linking flags on cmd, including --json.
func addLinkFlags(cmd *cobra.Command, lf *linkFlags, defaultPlatform platform.Platform) {
	addPlatformFlags(cmd, lf, defaultPlatform)
	cmd.Flags().BoolVarP(&lf.json, flagJSON, "j", false, "print a single JSON object instead of a report")
}

// addPlatformFlags registers --platform and the option flags on cmd.
func addPlatformFlags(cmd *cobra.Command, lf *linkFlags, defaultPlatform platform.Platform) {
	cmd.Flags().StringVarP(&lf.platform, flagPlatform, "p", string(defaultPlatform),
		"target platform ("+strings.Join(platform.Names(), ", ")+")")
	options.AddFlags(cmd.Flags())
}

// linkOptions parses --platform and merges the linking options for cmd. An
// empty --platform leaves Options.Platform empty.
func (a *App) linkOptions(cmd *cobra.Command, args []string, lf *linkFlags) (*options.Options, error) {
	p, err := parsePlatform(lf.platform)
	if err != nil {
		return nil, err
	}

	return options.Resolve(cmd.Context(), options.Inputs{
		Cwd:      a.workingDir(),
		Platform: p,
		Args:     args,
		Config:   a.effectiveConfig(),
		Flags:    cmd.Flags(),
	})
}

func parsePlatform(name string) (platform.Platform, error) {
	if name == "" {
		return "", nil
	}
	p, err := platform.Parse(name)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("select target platform").
			WithResource(name).
			WithIssue(issue.UnknownPlatformId).
			WithSuggestion("Pass one of: " + strings.Join(platform.Names(), ", ")).
			Wrap(err).
			BuildError()
	}
	return p, nil
}

// findModules runs discovery for opts.
func (a *App) findModules(ctx context.Context, opts *options.Options) (*discovery.Result, error) {
	return discovery.FindModules(ctx, opts.Discovery())
}

// resolveModules runs discovery and resolves the result for opts.Platform.
func (a *App) resolveModules(ctx context.Context, opts *options.Options) ([]descriptor.ModuleDescriptor, *discovery.Result, error) {
	result, err := a.findModules(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	modules, err := resolve.ResolveModules(ctx, result.Modules, opts.Resolve())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve modules for %s: %w", opts.Platform, err)
	}
	return modules, result, nil
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
