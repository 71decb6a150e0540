// SPDX-License-Identifier: MPL-2.0

// Package resolve turns discovered modules into platform descriptors.
//
// Each platform family has a Plugin. ResolveModules hands every module that
// supports the requested platform to the plugin in parallel, drops the
// modules the plugin finds nothing to link for, and sorts the rest by
// package name.
package resolve

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modlink/modlink/internal/limiter"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"
)

type (
	// Options configures resolution.
	Options struct {
		// Platform is the target platform.
		Platform platform.Platform
		// ProjectRoot is the app directory.
		ProjectRoot types.FilesystemPath
		// Flags are free-form switches read by plugins, such as "precompiled".
		Flags map[string]any
	}

	// Plugin resolves one module for one platform family. A nil descriptor
	// means the module supports the platform but contributes nothing.
	Plugin interface {
		Resolve(ctx context.Context, name string, rev *registry.PackageRevision, opts Options) (*descriptor.ModuleDescriptor, error)
	}

	// PluginFunc adapts a function to Plugin.
	PluginFunc func(ctx context.Context, name string, rev *registry.PackageRevision, opts Options) (*descriptor.ModuleDescriptor, error)

	// UnsupportedPlatformError is returned for platforms without a plugin.
	UnsupportedPlatformError struct {
		Platform platform.Platform
	}

	// Extras holds data aggregated across all resolved modules.
	Extras struct {
		CoreFeatures []string `json:"coreFeatures"`
	}

	job struct {
		name string
		rev  *registry.PackageRevision
	}
)

var plugins = map[platform.Family]Plugin{
	platform.FamilyAndroid:  PluginFunc(resolveAndroid),
	platform.FamilyApple:    PluginFunc(resolveApple),
	platform.FamilyDevTools: PluginFunc(resolveDevTools),
}

// Resolve calls f.
func (f PluginFunc) Resolve(ctx context.Context, name string, rev *registry.PackageRevision, opts Options) (*descriptor.ModuleDescriptor, error) {
	return f(ctx, name, rev, opts)
}

// Error implements the error interface.
func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no resolver for platform %q", e.Platform)
}

// PluginFor returns the built-in plugin for p.
func PluginFor(p platform.Platform) (Plugin, error) {
	plugin, ok := plugins[p.Family()]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: p}
	}
	return plugin, nil
}

// ResolveModules resolves every module in results that supports
// opts.Platform. Modules that do not support it are skipped silently. A
// plugin error aborts the whole resolution.
func ResolveModules(ctx context.Context, results registry.SearchResults, opts Options) ([]descriptor.ModuleDescriptor, error) {
	plugin, err := PluginFor(opts.Platform)
	if err != nil {
		return nil, err
	}
	return ResolveWith(ctx, plugin, results, opts)
}

// ResolveWith is ResolveModules with an explicit plugin.
func ResolveWith(ctx context.Context, plugin Plugin, results registry.SearchResults, opts Options) ([]descriptor.ModuleDescriptor, error) {
	var jobs []job
	for _, name := range registry.Names(results) {
		rev := results[name]
		if !rev.Config.SupportsPlatform(opts.Platform) {
			continue
		}
		jobs = append(jobs, job{name: name, rev: rev})
	}

	resolved, err := limiter.TaskAll(ctx, jobs, func(ctx context.Context, j job) (*descriptor.ModuleDescriptor, error) {
		return plugin.Resolve(ctx, j.name, j.rev, opts)
	})
	if err != nil {
		return nil, err
	}

	descriptors := make([]descriptor.ModuleDescriptor, 0, len(resolved))
	for _, d := range resolved {
		if d != nil {
			descriptors = append(descriptors, *d)
		}
	}
	slices.SortStableFunc(descriptors, func(a, b descriptor.ModuleDescriptor) int {
		return strings.Compare(a.PackageName(), b.PackageName())
	})
	return descriptors, nil
}

// ResolveExtras returns the sorted union of the core features required by the
// modules in results.
func ResolveExtras(results registry.SearchResults) Extras {
	set := map[string]struct{}{}
	for _, rev := range results {
		for _, feature := range rev.Config.CoreFeatures() {
			set[feature] = struct{}{}
		}
	}
	features := make([]string, 0, len(set))
	for feature := range set {
		features = append(features, feature)
	}
	slices.Sort(features)
	return Extras{CoreFeatures: features}
}

// flag reads a boolean flag; "true" strings count.
func (o Options) flag(name string) bool {
	switch v := o.Flags[name].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// stringFlag reads a string flag, falling back to def.
func (o Options) stringFlag(name, def string) string {
	if v, ok := o.Flags[name].(string); ok && v != "" {
		return v
	}
	return def
}
