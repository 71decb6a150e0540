// SPDX-License-Identifier: MPL-2.0

package modconfig

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/modlink/modlink/pkg/cueutil"
	"github.com/modlink/modlink/pkg/platform"
	"github.com/modlink/modlink/pkg/types"
)

const (
	// PrimaryManifest is the current module manifest filename.
	PrimaryManifest = "expo-module.config.json"
	// LegacyManifest is the module manifest filename of older packages.
	LegacyManifest = "unimodule.json"
	// PackageManifest is the dependency manifest filename.
	PackageManifest = "package.json"

	// DefaultAndroidPath is the Android project directory used when the
	// manifest does not name one.
	DefaultAndroidPath = "android"
)

var (
	//go:embed modconfig_schema.cue
	schema []byte

	// ManifestFilenames lists the module manifest candidates, highest priority
	// first. Discovery uses the first one that exists and parses.
	ManifestFilenames = []string{PrimaryManifest, LegacyManifest}

	nonWordRun = regexp.MustCompile(`\W+`)
)

type (
	// AndroidPublication describes a prebuilt Maven artifact.
	AndroidPublication struct {
		GroupID    string `json:"groupId"`
		ArtifactID string `json:"artifactId"`
		Version    string `json:"version"`
		Repository string `json:"repository"`
	}

	// AarProject is a Gradle project wrapping a prebuilt .aar file.
	AarProject struct {
		Name        string `json:"name"`
		AarFilePath string `json:"aarFilePath"`
	}

	// AndroidProject is one Gradle project contributed by a package.
	AndroidProject struct {
		Name                           string              `json:"name"`
		Path                           string              `json:"path"`
		Modules                        []string            `json:"modules,omitempty"`
		Publication                    *AndroidPublication `json:"publication,omitempty"`
		GradleAarProjects              []AarProject        `json:"gradleAarProjects,omitempty"`
		ShouldUsePublicationScriptPath string              `json:"shouldUsePublicationScriptPath,omitempty"`
	}

	// GradlePlugin is a Gradle plugin contributed by a package.
	GradlePlugin struct {
		ID        string `json:"id"`
		Group     string `json:"group"`
		SourceDir string `json:"sourceDir"`
	}

	// AndroidConfig is the "android" block of a module manifest.
	AndroidConfig struct {
		Name              string              `json:"name,omitempty"`
		Path              string              `json:"path,omitempty"`
		Modules           []string            `json:"modules,omitempty"`
		Publication       *AndroidPublication `json:"publication,omitempty"`
		GradleAarProjects []AarProject        `json:"gradleAarProjects,omitempty"`
		Projects          []AndroidProject    `json:"projects,omitempty"`
		GradlePlugins     []GradlePlugin      `json:"gradlePlugins,omitempty"`
	}

	// AppleConfig is the "apple" block of a module manifest, or the
	// deprecated "ios" block with the same shape.
	AppleConfig struct {
		Modules                []string `json:"modules,omitempty"`
		AppDelegateSubscribers []string `json:"appDelegateSubscribers,omitempty"`
		ReactDelegateHandlers  []string `json:"reactDelegateHandlers,omitempty"`
		// PodspecPath and SwiftModuleName are a string or a list of strings.
		PodspecPath     any   `json:"podspecPath,omitempty"`
		SwiftModuleName any   `json:"swiftModuleName,omitempty"`
		DebugOnly       *bool `json:"debugOnly,omitempty"`
	}

	// DevToolsConfig is the "devtools" block of a module manifest.
	DevToolsConfig struct {
		WebpageRoot string `json:"webpageRoot"`
	}

	// ModuleConfig is a parsed module manifest.
	ModuleConfig struct {
		Platforms []string        `json:"platforms,omitempty"`
		Apple     *AppleConfig    `json:"apple,omitempty"`
		IOS       *AppleConfig    `json:"ios,omitempty"`
		Android   *AndroidConfig  `json:"android,omitempty"`
		Features  []string        `json:"coreFeatures,omitempty"`
		DevTools  *DevToolsConfig `json:"devtools,omitempty"`

		// FilePath is the manifest this config was read from.
		FilePath types.FilesystemPath `json:"-"`
	}
)

// ParseModuleConfig reads and parses the module manifest at path.
func ParseModuleConfig(path types.FilesystemPath) (*ModuleConfig, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read module manifest at %s: %w", path, err)
	}
	return ParseModuleConfigBytes(data, path)
}

// ParseModuleConfigBytes parses module manifest JSON.
func ParseModuleConfigBytes(data []byte, path types.FilesystemPath) (*ModuleConfig, error) {
	result, err := cueutil.ParseAndDecode[ModuleConfig](
		schema,
		data,
		"#ModuleConfig",
		cueutil.WithFilename(string(path)),
		cueutil.WithFormat(cueutil.FormatJSON),
	)
	if err != nil {
		return nil, err
	}

	cfg := result.Value
	cfg.FilePath = path
	return cfg, nil
}

// SupportsPlatform reports whether the manifest lists p, with "apple" standing
// in for every Apple target.
func (c *ModuleConfig) SupportsPlatform(p platform.Platform) bool {
	if c == nil {
		return false
	}
	return p.MatchedBy(c.Platforms)
}

// AppleConfig returns the "apple" block, falling back to the deprecated "ios"
// block. It returns nil when neither is present.
func (c *ModuleConfig) AppleConfig() *AppleConfig {
	if c == nil {
		return nil
	}
	if c.Apple != nil {
		return c.Apple
	}
	return c.IOS
}

// AppleModules returns the Swift module classes to register.
func (c *ModuleConfig) AppleModules() []string {
	if a := c.AppleConfig(); a != nil {
		return a.Modules
	}
	return nil
}

// AppleAppDelegateSubscribers returns the app delegate subscriber classes.
func (c *ModuleConfig) AppleAppDelegateSubscribers() []string {
	if a := c.AppleConfig(); a != nil {
		return a.AppDelegateSubscribers
	}
	return nil
}

// AppleReactDelegateHandlers returns the React delegate handler classes.
func (c *ModuleConfig) AppleReactDelegateHandlers() []string {
	if a := c.AppleConfig(); a != nil {
		return a.ReactDelegateHandlers
	}
	return nil
}

// ApplePodspecPaths returns the podspec paths declared by the manifest,
// relative to the package root. Empty means "search for podspecs".
func (c *ModuleConfig) ApplePodspecPaths() []string {
	if a := c.AppleConfig(); a != nil {
		return stringOrList(a.PodspecPath)
	}
	return nil
}

// AppleSwiftModuleNames returns the declared Swift module names, parallel to
// ApplePodspecPaths.
func (c *ModuleConfig) AppleSwiftModuleNames() []string {
	if a := c.AppleConfig(); a != nil {
		return stringOrList(a.SwiftModuleName)
	}
	return nil
}

// AppleDebugOnly reports whether the pods are linked in debug builds only.
func (c *ModuleConfig) AppleDebugOnly() bool {
	if a := c.AppleConfig(); a != nil && a.DebugOnly != nil {
		return *a.DebugOnly
	}
	return false
}

// AndroidProjects returns the Gradle projects of the package. Without an
// explicit "projects" list the package contributes one project named after
// the package (see AndroidProjectName) at "android.path" or "android/".
func (c *ModuleConfig) AndroidProjects(packageName types.PackageName) []AndroidProject {
	if c == nil {
		return nil
	}
	android := c.Android
	if android == nil {
		android = &AndroidConfig{}
	}
	if len(android.Projects) > 0 {
		return android.Projects
	}

	name := android.Name
	if name == "" {
		name = AndroidProjectName(packageName)
	}
	path := android.Path
	if path == "" {
		path = DefaultAndroidPath
	}
	return []AndroidProject{{
		Name:              name,
		Path:              path,
		Modules:           android.Modules,
		Publication:       android.Publication,
		GradleAarProjects: android.GradleAarProjects,
	}}
}

// AndroidGradlePlugins returns the Gradle plugins contributed by the package.
func (c *ModuleConfig) AndroidGradlePlugins() []GradlePlugin {
	if c == nil || c.Android == nil {
		return nil
	}
	return c.Android.GradlePlugins
}

// CoreFeatures returns the core features the package requires.
func (c *ModuleConfig) CoreFeatures() []string {
	if c == nil {
		return nil
	}
	return c.Features
}

// DevToolsWebpageRoot returns the devtools web root relative to the package,
// or "" when the package has no devtools plugin.
func (c *ModuleConfig) DevToolsWebpageRoot() string {
	if c == nil || c.DevTools == nil {
		return ""
	}
	return c.DevTools.WebpageRoot
}

// AndroidProjectName converts a package name to a Gradle project name: the
// leading "@" is dropped and every run of non-word characters becomes "-".
func AndroidProjectName(name types.PackageName) string {
	s := string(name)
	if len(s) > 0 && s[0] == '@' {
		s = s[1:]
	}
	return nonWordRun.ReplaceAllString(s, "-")
}

func stringOrList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
