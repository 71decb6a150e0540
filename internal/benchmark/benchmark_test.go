// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/modlink/modlink/internal/config"
	"github.com/modlink/modlink/internal/discovery"
	"github.com/modlink/modlink/internal/generate"
	"github.com/modlink/modlink/internal/resolve"
	"github.com/modlink/modlink/internal/testutil/workspacetest"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"
)

const (
	// packageCount approximates the installed tree of a mid-sized app.
	packageCount = 400
	// nativeEvery makes every nth package a native module.
	nativeEvery = 8

	sampleModuleConfig = `{
  "platforms": ["apple", "android", "web"],
  "apple": {
    "modules": ["CameraModule", "CameraViewModule"],
    "appDelegateSubscribers": ["CameraAppDelegate"],
    "reactDelegateHandlers": ["CameraReactDelegateHandler"],
    "podspecPath": "ios/ExpoCamera.podspec"
  },
  "android": {
    "modules": ["expo.modules.camera.CameraModule", "expo.modules.camera.CameraViewModule"],
    "gradlePlugins": [{"id": "expo-camera-plugin", "group": "expo.modules", "sourceDir": "android/plugin"}]
  },
  "coreFeatures": ["swiftui"]
}`

	sampleConfig = `search_paths: ["../shared/node_modules"]
exclude: ["expo-dev-menu"]
only_project_deps: true
concurrency: 16
memo_max_entries: 4096
ui: {
	color_scheme: "dark"
	verbose: false
}
`

	gradle  = "apply plugin: 'com.android.library'\n"
	podspec = "Pod::Spec.new do |s|\nend\n"
)

// largeWorkspace installs packageCount packages, every nativeEvery-th one a
// native module for both platforms, all listed as root dependencies.
func largeWorkspace(b *testing.B) *workspacetest.Workspace {
	b.Helper()
	ws := workspacetest.New(b)

	names := make([]string, 0, packageCount)
	for i := range packageCount {
		name := fmt.Sprintf("pkg-%03d", i)
		names = append(names, name)
		dir := "node_modules/" + name
		if i%nativeEvery != 0 {
			ws.AddPackage(dir, name, workspacetest.WithFile("index.js", "module.exports = {}\n"))
			continue
		}
		ws.AddPackage(dir, name,
			workspacetest.WithModuleConfig(fmt.Sprintf(
				`{"platforms":["apple","android"],"apple":{"modules":["M%[1]dModule"]},"android":{"modules":["expo.modules.m%[1]d.M%[1]dModule"]}}`, i)),
			workspacetest.WithFile("ios/Pkg"+fmt.Sprint(i)+".podspec", podspec),
			workspacetest.WithFile("android/build.gradle", gradle))
	}
	ws.WriteRoot("app", workspacetest.WithDependencies(names...))
	return ws
}

func discoveryOptions(ws *workspacetest.Workspace, onlyProjectDeps bool) discovery.Options {
	return discovery.Options{
		SearchPaths:     []types.FilesystemPath{types.FilesystemPath(ws.Path("node_modules")), types.FilesystemPath(ws.Path("vendor"))},
		ProjectRoot:     types.FilesystemPath(ws.Root),
		OnlyProjectDeps: onlyProjectDeps,
		Silent:          true,
	}
}

func BenchmarkModuleConfigParsing(b *testing.B) {
	data := []byte(sampleModuleConfig)
	path := types.FilesystemPath("/bench/node_modules/expo-camera/expo-module.config.json")

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := modconfig.ParseModuleConfigBytes(data, path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConfigLoading(b *testing.B) {
	ws := workspacetest.New(b)
	path := types.FilesystemPath(ws.WriteFile("config.cue", sampleConfig))
	provider := config.NewProvider()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, err := provider.Load(ctx, config.LoadOptions{ConfigFilePath: path}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiscovery(b *testing.B) {
	ws := largeWorkspace(b)
	ctx := context.Background()

	for _, onlyProjectDeps := range []bool{false, true} {
		b.Run(fmt.Sprintf("only_project_deps=%v", onlyProjectDeps), func(b *testing.B) {
			opts := discoveryOptions(ws, onlyProjectDeps)
			b.ResetTimer()
			for b.Loop() {
				result, err := discovery.FindModules(ctx, opts)
				if err != nil {
					b.Fatal(err)
				}
				if want := packageCount / nativeEvery; len(result.Modules) != want {
					b.Fatalf("found %d modules, want %d", len(result.Modules), want)
				}
			}
		})
	}
}

func BenchmarkResolve(b *testing.B) {
	ws := largeWorkspace(b)
	ctx := context.Background()
	result, err := discovery.FindModules(ctx, discoveryOptions(ws, false))
	if err != nil {
		b.Fatal(err)
	}

	for _, p := range []platform.Platform{platform.Android, platform.IOS} {
		b.Run(string(p), func(b *testing.B) {
			opts := resolve.Options{Platform: p, ProjectRoot: types.FilesystemPath(ws.Root)}
			b.ResetTimer()
			for b.Loop() {
				if _, err := resolve.ResolveModules(ctx, result.Modules, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkFullPipeline measures a complete generate run: discovery,
// resolution and rendering of both generated sources.
func BenchmarkFullPipeline(b *testing.B) {
	ws := largeWorkspace(b)
	ctx := context.Background()
	opts := discoveryOptions(ws, true)

	b.ResetTimer()
	for b.Loop() {
		result, err := discovery.FindModules(ctx, opts)
		if err != nil {
			b.Fatal(err)
		}

		android, err := resolve.ResolveModules(ctx, result.Modules, resolve.Options{Platform: platform.Android, ProjectRoot: opts.ProjectRoot})
		if err != nil {
			b.Fatal(err)
		}
		if err := generate.WritePackageList(io.Discard, android, generate.PackageListOptions{}); err != nil {
			b.Fatal(err)
		}

		apple, err := resolve.ResolveModules(ctx, result.Modules, resolve.Options{Platform: platform.IOS, ProjectRoot: opts.ProjectRoot})
		if err != nil {
			b.Fatal(err)
		}
		if err := generate.WriteModulesProvider(io.Discard, apple, generate.ModulesProviderOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}
