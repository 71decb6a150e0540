// SPDX-License-Identifier: MPL-2.0

// Package rnconfig builds the dependency configuration the React Native CLI
// expects for packages that are not native modules of their own but still
// ship Android or iOS code.
package rnconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/internal/limiter"
	"github.com/modlink/modlink/internal/memo"
	"github.com/modlink/modlink/internal/resolve"
	"github.com/modlink/modlink/internal/searchpath"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"

	"github.com/bmatcuk/doublestar/v4"
)

// ReactNativePackage is the package whose location is reported as
// reactNativePath. It is never listed as a dependency.
const ReactNativePackage = "react-native"

type (
	// Options configures Create.
	Options struct {
		// ProjectRoot is the app directory holding package.json.
		ProjectRoot types.FilesystemPath
		// Platform limits the platforms reported. Empty reports Android and
		// iOS.
		Platform platform.Platform
		// Exclude lists dependency names to leave out.
		Exclude []string
	}

	// Config is the React Native CLI config.
	Config struct {
		Root            string                `json:"root"`
		ReactNativePath string                `json:"reactNativePath"`
		Dependencies    map[string]Dependency `json:"dependencies"`
		Project         Project               `json:"project"`
	}

	// Dependency is one linked package.
	Dependency struct {
		Root      string    `json:"root"`
		Name      string    `json:"name"`
		Platforms Platforms `json:"platforms"`
	}

	// Platforms holds the per-platform part of a dependency. A nil entry is
	// encoded as null, meaning the dependency has nothing for that platform.
	Platforms struct {
		Android *AndroidDependency `json:"android"`
		IOS     *IOSDependency     `json:"ios"`
	}

	// AndroidDependency describes the Gradle project of a dependency.
	AndroidDependency struct {
		SourceDir         string   `json:"sourceDir"`
		PackageImportPath string   `json:"packageImportPath"`
		PackageInstance   string   `json:"packageInstance"`
		BuildTypes        []string `json:"buildTypes"`
	}

	// IOSDependency describes the podspec of a dependency.
	IOSDependency struct {
		PodspecPath    string   `json:"podspecPath"`
		Version        string   `json:"version"`
		Configurations []string `json:"configurations"`
		ScriptPhases   []any    `json:"scriptPhases"`
	}

	// Project describes the app's own native projects.
	Project struct {
		Android *ProjectPlatform `json:"android,omitempty"`
		IOS     *ProjectPlatform `json:"ios,omitempty"`
	}

	// ProjectPlatform is the native project directory of one platform.
	ProjectPlatform struct {
		SourceDir string `json:"sourceDir"`
	}
)

// Create builds the config for the direct production dependencies of the
// project at opts.ProjectRoot. Dependencies that carry a module manifest are
// skipped, as are dependencies with no Android or iOS code. A dependency
// that is declared but not installed is skipped too.
func Create(ctx context.Context, opts Options) (*Config, error) {
	var cfg *Config
	err := memo.WithMemoizer(ctx, func(ctx context.Context) error {
		var err error
		cfg, err = create(ctx, opts)
		return err
	})
	return cfg, err
}

func create(ctx context.Context, opts Options) (*Config, error) {
	root := opts.ProjectRoot
	manifest := fspath.JoinStr(root, searchpath.PackageManifest)
	if !fspath.IsFile(manifest) {
		return nil, issue.NewErrorContext().
			WithOperation("create React Native config").
			WithResource(string(manifest)).
			WithIssue(issue.RootManifestNotFoundId).
			WithSuggestion("Run the command from the app directory or pass --project-root").
			Wrap(fmt.Errorf("no %s in %s", searchpath.PackageManifest, root)).
			BuildError()
	}
	pkg, err := modconfig.LoadPackage(ctx, manifest)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:         string(root),
		Dependencies: map[string]Dependency{},
		Project:      projectConfig(root, opts.Platform),
	}
	if rn, ok := searchpath.ResolvePackage(ReactNativePackage, root); ok {
		cfg.ReactNativePath = string(fspath.Dir(rn))
	}

	var names []string
	for _, name := range pkg.DependencyNames() {
		if name != ReactNativePackage && !slices.Contains(opts.Exclude, name) {
			names = append(names, name)
		}
	}

	deps, err := limiter.TaskAll(ctx, names, func(ctx context.Context, name string) (*Dependency, error) {
		return dependencyConfig(ctx, name, root, opts.Platform)
	})
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		if dep != nil {
			cfg.Dependencies[dep.Name] = *dep
		}
	}
	return cfg, nil
}

func dependencyConfig(ctx context.Context, name string, root types.FilesystemPath, p platform.Platform) (*Dependency, error) {
	manifest, ok := searchpath.ResolvePackage(name, root)
	if !ok {
		return nil, nil
	}
	dir := fspath.Dir(manifest)

	discovered, err := modconfig.Discover(ctx, dir)
	if err != nil {
		return nil, err
	}
	if discovered.Found() {
		return nil, nil
	}

	dep := &Dependency{Root: string(dir), Name: name}
	if wants(p, platform.FamilyAndroid) {
		dep.Platforms.Android = androidConfig(dir)
	}
	if wants(p, platform.FamilyApple) {
		pkg, err := modconfig.LoadPackage(ctx, manifest)
		if err != nil {
			return nil, err
		}
		dep.Platforms.IOS = iosConfig(dir, name, pkg.Version)
	}

	if dep.Platforms.Android == nil && dep.Platforms.IOS == nil {
		return nil, nil
	}
	return dep, nil
}

// androidConfig returns nil unless dir/android is a Gradle project exposing
// a React package class.
func androidConfig(dir types.FilesystemPath) *AndroidDependency {
	sourceDir := fspath.JoinStr(dir, "android")
	if !fspath.IsFile(fspath.JoinStr(sourceDir, "build.gradle")) && !fspath.IsFile(fspath.JoinStr(sourceDir, "build.gradle.kts")) {
		return nil
	}
	classes := resolve.FindClasses(sourceDir, resolve.ReactPackageClass)
	if len(classes) == 0 {
		return nil
	}

	class := classes[0]
	simpleName := class[strings.LastIndex(class, ".")+1:]
	return &AndroidDependency{
		SourceDir:         string(sourceDir),
		PackageImportPath: "import " + class + ";",
		PackageInstance:   "new " + simpleName + "()",
		BuildTypes:        []string{},
	}
}

// iosConfig returns the podspec at the package root, preferring the one
// named after the package.
func iosConfig(dir types.FilesystemPath, name, version string) *IOSDependency {
	matches, err := doublestar.Glob(os.DirFS(string(dir)), "*.podspec", doublestar.WithFilesOnly())
	if err != nil || len(matches) == 0 {
		return nil
	}
	slices.Sort(matches)

	podspec := matches[0]
	if preferred := types.PackageName(name).Unscoped() + ".podspec"; slices.Contains(matches, preferred) {
		podspec = preferred
	}
	return &IOSDependency{
		PodspecPath:    filepath.Join(string(dir), podspec),
		Version:        version,
		Configurations: []string{},
		ScriptPhases:   []any{},
	}
}

func projectConfig(root types.FilesystemPath, p platform.Platform) Project {
	var project Project
	if android := fspath.JoinStr(root, "android"); wants(p, platform.FamilyAndroid) && fspath.IsDir(android) {
		project.Android = &ProjectPlatform{SourceDir: string(android)}
	}
	if ios := fspath.JoinStr(root, "ios"); wants(p, platform.FamilyApple) && fspath.IsDir(ios) {
		project.IOS = &ProjectPlatform{SourceDir: string(ios)}
	}
	return project
}

func wants(p platform.Platform, family platform.Family) bool {
	return p == "" || p.Family() == family
}
