// SPDX-License-Identifier: MPL-2.0

// Package options merges the linking options of one command invocation.
//
// Layers, lowest priority first:
//
//  1. built-in defaults
//  2. the user config file (config.cue)
//  3. "expo.autolinking" in the project's package.json
//  4. "expo.autolinking.<platform>" in the project's package.json
//  5. command line flags the user actually set, then positional search paths
//
// Layers 1 and 2 arrive already merged as a *config.Config. The precompiled
// module flags fall back to EXPO_USE_PRECOMPILED_MODULES and
// EXPO_PRECOMPILED_FLAVOR when package.json does not set them.
package options

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/modlink/modlink/internal/config"
	"github.com/modlink/modlink/internal/discovery"
	"github.com/modlink/modlink/internal/resolve"
	"github.com/modlink/modlink/internal/searchpath"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names registered by AddFlags.
const (
	FlagExclude           = "exclude"
	FlagIgnorePaths       = "ignore-paths"
	FlagOnlyProjectDeps   = "only-project-deps"
	FlagNoOnlyProjectDeps = "no-only-project-deps"
	FlagProjectRoot       = "project-root"
	FlagSilent            = "silent"
)

// Viper keys. They match the config file keys.
const (
	keySearchPaths       = "search_paths"
	keyIgnorePaths       = "ignore_paths"
	keyExclude           = "exclude"
	keyNativeModulesDir  = "native_modules_dir"
	keyOnlyProjectDeps   = "only_project_deps"
	keyConcurrency       = "concurrency"
	keyMemoMaxEntries    = "memo_max_entries"
	keyPrecompiled       = "precompiled"
	keyPrecompiledFlavor = "precompiled_flavor"
)

// Environment variables read when package.json leaves the matching flag
// unset.
const (
	EnvPrecompiledModules = "EXPO_USE_PRECOMPILED_MODULES"
	EnvPrecompiledFlavor  = "EXPO_PRECOMPILED_FLAVOR"
)

// flagsKey holds free-form plugin switches in package.json. They bypass viper,
// which folds key case.
const flagsKey = "flags"

// packageKeys maps package.json autolinking keys to viper keys.
var packageKeys = map[string]string{
	"searchPaths":      keySearchPaths,
	"ignorePaths":      keyIgnorePaths,
	"exclude":          keyExclude,
	"nativeModulesDir": keyNativeModulesDir,
	"onlyProjectDeps":  keyOnlyProjectDeps,
}

type (
	// Inputs are the raw sources Resolve merges.
	Inputs struct {
		// Cwd is the working directory. Positional search paths and
		// --project-root are relative to it.
		Cwd types.FilesystemPath
		// Platform selects the package.json platform block and the
		// resolver.
		Platform platform.Platform
		// Args are positional search paths.
		Args []string
		// Config is the user configuration, defaults included.
		Config *config.Config
		// Flags holds the flags registered by AddFlags. Nil means none.
		Flags *pflag.FlagSet
	}

	// Options are the merged linking options.
	Options struct {
		SearchPaths      []types.FilesystemPath
		IgnorePaths      []string
		Exclude          []string
		NativeModulesDir types.FilesystemPath
		ProjectRoot      types.FilesystemPath
		OnlyProjectDeps  bool
		Platform         platform.Platform
		Flags            map[string]any
		Silent           bool
		Concurrency      int
		MemoMaxEntries   int
	}
)

// AddFlags registers the linking flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceP(FlagExclude, "e", nil, "package names to leave out")
	fs.StringSlice(FlagIgnorePaths, nil, "package directory patterns to skip while scanning")
	fs.Bool(FlagOnlyProjectDeps, true, "link only packages reachable from the project's dependencies")
	fs.Bool(FlagNoOnlyProjectDeps, false, "link every package found in the search paths")
	fs.String(FlagProjectRoot, "", "directory of the app's package.json (default: nearest package.json)")
	fs.Bool(FlagSilent, false, "suppress warnings")
}

// Resolve merges the layers described in the package documentation. A
// missing or unreadable project package.json leaves layers 3 and 4 empty.
func Resolve(ctx context.Context, in Inputs) (*Options, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if in.Cwd == "" {
		cwd, err := fspath.Abs(".")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		in.Cwd = cwd
	}
	projectRoot := projectRoot(in)

	v := viper.New()
	v.SetDefault(keySearchPaths, cfg.SearchPaths)
	v.SetDefault(keyIgnorePaths, cfg.IgnorePaths)
	v.SetDefault(keyExclude, cfg.Exclude)
	v.SetDefault(keyNativeModulesDir, cfg.NativeModulesDir)
	v.SetDefault(keyOnlyProjectDeps, cfg.OnlyProjectDeps)
	v.SetDefault(keyConcurrency, cfg.Concurrency)
	v.SetDefault(keyMemoMaxEntries, cfg.MemoMaxEntries)

	flags := map[string]any{}
	if pkg, err := modconfig.LoadPackageIn(ctx, projectRoot); err == nil {
		autolinking := pkg.AutolinkingOptions(string(in.Platform), platform.Names())
		if err := v.MergeConfigMap(packageLayer(autolinking)); err != nil {
			return nil, fmt.Errorf("failed to merge package.json options: %w", err)
		}
		if m, ok := autolinking[flagsKey].(map[string]any); ok {
			flags = m
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err := bindFlags(v, in.Flags); err != nil {
		return nil, err
	}
	flags, err := envFlags(v, flags)
	if err != nil {
		return nil, err
	}
	if len(in.Args) > 0 {
		v.Set(keySearchPaths, in.Args)
	}

	opts := &Options{
		IgnorePaths:      v.GetStringSlice(keyIgnorePaths),
		Exclude:          v.GetStringSlice(keyExclude),
		NativeModulesDir: fspath.AbsFrom(projectRoot, types.FilesystemPath(v.GetString(keyNativeModulesDir))),
		ProjectRoot:      projectRoot,
		OnlyProjectDeps:  v.GetBool(keyOnlyProjectDeps),
		Platform:         in.Platform,
		Flags:            flags,
		Concurrency:      v.GetInt(keyConcurrency),
		MemoMaxEntries:   v.GetInt(keyMemoMaxEntries),
	}
	if in.Flags != nil {
		opts.Silent, _ = in.Flags.GetBool(FlagSilent)
	}

	// Positional paths are relative to the working directory, configured
	// ones to the project root.
	searchPaths := v.GetStringSlice(keySearchPaths)
	base := projectRoot
	if len(in.Args) > 0 {
		base = in.Cwd
	}
	if len(searchPaths) > 0 {
		opts.SearchPaths = searchpath.Resolve(base, searchPaths)
	} else {
		opts.SearchPaths = searchpath.Resolve(projectRoot, nil)
	}

	return opts, nil
}

// Discovery returns the options for discovery.FindModules.
func (o *Options) Discovery() discovery.Options {
	return discovery.Options{
		SearchPaths:      o.SearchPaths,
		IgnorePaths:      o.IgnorePaths,
		Exclude:          o.Exclude,
		NativeModulesDir: o.NativeModulesDir,
		ProjectRoot:      o.ProjectRoot,
		OnlyProjectDeps:  o.OnlyProjectDeps,
		Silent:           o.Silent,
		Concurrency:      o.Concurrency,
		MemoMaxEntries:   o.MemoMaxEntries,
	}
}

// Resolve returns the options for resolve.ResolveModules.
func (o *Options) Resolve() resolve.Options {
	return resolve.Options{
		Platform:    o.Platform,
		ProjectRoot: o.ProjectRoot,
		Flags:       o.Flags,
	}
}

// projectRoot returns --project-root made absolute, or the directory of the
// nearest package.json above Cwd, or Cwd itself.
func projectRoot(in Inputs) types.FilesystemPath {
	if in.Flags != nil {
		if root, _ := in.Flags.GetString(FlagProjectRoot); strings.TrimSpace(root) != "" {
			return fspath.AbsFrom(in.Cwd, types.FilesystemPath(root))
		}
	}
	if manifest, ok := searchpath.FindUp(in.Cwd, modconfig.PackageManifest); ok {
		return fspath.Dir(manifest)
	}
	return in.Cwd
}

// packageLayer renames package.json keys to viper keys and drops the rest.
func packageLayer(autolinking map[string]any) map[string]any {
	layer := make(map[string]any, len(autolinking))
	for key, value := range autolinking {
		if viperKey, ok := packageKeys[key]; ok {
			layer[viperKey] = value
		}
	}
	return layer
}

// envFlags returns flags with the precompiled-module switches filled from the
// environment where package.json did not set them. flags is never modified.
func envFlags(v *viper.Viper, flags map[string]any) (map[string]any, error) {
	out := maps.Clone(flags)
	if out == nil {
		out = make(map[string]any)
	}
	for key, bind := range map[string]struct{ flag, env string }{
		keyPrecompiled:       {resolve.FlagPrecompiled, EnvPrecompiledModules},
		keyPrecompiledFlavor: {resolve.FlagPrecompiledFlavor, EnvPrecompiledFlavor},
	} {
		if err := v.BindEnv(key, bind.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", bind.env, err)
		}
		if _, set := out[bind.flag]; set || !v.IsSet(key) {
			continue
		}
		out[bind.flag] = v.GetString(key)
	}
	return out, nil
}

// bindFlags binds the flags the user set. Unset flags never override lower
// layers, including their defaults.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for key, name := range map[string]string{
		keyExclude:         FlagExclude,
		keyIgnorePaths:     FlagIgnorePaths,
		keyOnlyProjectDeps: FlagOnlyProjectDeps,
	} {
		flag := fs.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	if off, _ := fs.GetBool(FlagNoOnlyProjectDeps); fs.Changed(FlagNoOnlyProjectDeps) && off {
		v.Set(keyOnlyProjectDeps, false)
	}
	return nil
}
