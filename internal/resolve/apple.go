// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/descriptor"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// FlagPrecompiled links pods against prebuilt XCFrameworks when present.
	FlagPrecompiled = "precompiled"
	// FlagPrecompiledFlavor selects the XCFramework build flavor.
	FlagPrecompiledFlavor = "precompiledFlavor"

	defaultFlavor   = "debug"
	xcframeworksDir = ".xcframeworks"
	podspecExt      = ".podspec"
)

var (
	nonIdentifierChar = regexp.MustCompile(`[^a-zA-Z0-9_]`)

	// podspecGlob matches podspecs at the package root and one level below.
	podspecGlob = "{*,*/*}" + podspecExt
)

// resolveApple lists the package's pods, from the declared podspec paths or
// by globbing for podspecs at the package root and one level below. It
// returns nil when the package has no podspec.
func resolveApple(_ context.Context, name string, rev *registry.PackageRevision, opts Options) (*descriptor.ModuleDescriptor, error) {
	cfg := rev.Config

	podspecs := cfg.ApplePodspecPaths()
	if len(podspecs) == 0 {
		podspecs = findPodspecs(string(rev.Path))
	}
	if len(podspecs) == 0 {
		return nil, nil
	}

	flavor := opts.stringFlag(FlagPrecompiledFlavor, defaultFlavor)
	pods := make([]descriptor.Pod, 0, len(podspecs))
	for _, rel := range podspecs {
		podspec := fspath.JoinStr(rev.Path, rel)
		pod := descriptor.Pod{
			PodName:    strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
			PodspecDir: string(fspath.Dir(podspec)),
		}
		if opts.flag(FlagPrecompiled) {
			xcframework := fspath.JoinStr(types.FilesystemPath(pod.PodspecDir), xcframeworksDir, flavor, pod.PodName+".xcframework")
			if fspath.IsDir(xcframework) {
				pod.Prebuilt = string(xcframework)
			}
		}
		pods = append(pods, pod)
	}

	d := descriptor.NewApple(&descriptor.Apple{
		PackageName:            name,
		Pods:                   pods,
		SwiftModuleNames:       swiftModuleNames(pods, cfg.AppleSwiftModuleNames()),
		Modules:                nonNil(cfg.AppleModules()),
		AppDelegateSubscribers: nonNil(cfg.AppleAppDelegateSubscribers()),
		ReactDelegateHandlers:  nonNil(cfg.AppleReactDelegateHandlers()),
		DebugOnly:              cfg.AppleDebugOnly(),
		CoreFeatures:           cfg.CoreFeatures(),
	})
	return &d, nil
}

// findPodspecs returns podspec paths relative to dir, sorted. Podspecs under
// node_modules are skipped.
func findPodspecs(dir string) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), podspecGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil
	}
	found := make([]string, 0, len(matches))
	for _, match := range matches {
		if strings.HasPrefix(match, "node_modules/") {
			continue
		}
		found = append(found, filepath.FromSlash(match))
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// swiftModuleNames uses the declared names when given, otherwise derives one
// per pod by replacing characters Swift identifiers cannot hold with "_".
func swiftModuleNames(pods []descriptor.Pod, declared []string) []string {
	if len(declared) > 0 {
		return declared
	}
	names := make([]string, len(pods))
	for i, pod := range pods {
		names[i] = nonIdentifierChar.ReplaceAllString(pod.PodName, "_")
	}
	return names
}
