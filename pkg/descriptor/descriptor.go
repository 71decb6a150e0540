// SPDX-License-Identifier: MPL-2.0

// Package descriptor defines the resolved, platform-specific summary of what a
// module contributes to a native build.
//
// ModuleDescriptor is a closed tagged union: Platform selects exactly one of
// the Android, Apple or DevTools variants. Code generators switch on Platform
// and read the matching variant.
package descriptor

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// PlatformAndroid tags an Android descriptor.
	PlatformAndroid Platform = "android"
	// PlatformApple tags an Apple descriptor.
	PlatformApple Platform = "apple"
	// PlatformDevTools tags a devtools descriptor.
	PlatformDevTools Platform = "devtools"
)

// ErrInvalidDescriptor is returned when the discriminator does not match the
// populated variant.
var ErrInvalidDescriptor = errors.New("invalid module descriptor")

type (
	// Platform is the descriptor discriminator.
	Platform string

	// ModuleDescriptor is one module's contribution to one platform.
	ModuleDescriptor struct {
		Platform Platform
		Android  *Android
		Apple    *Apple
		DevTools *DevTools
	}

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
		ProjectDir  string `json:"projectDir"`
	}

	// AndroidProject is one Gradle project to include.
	AndroidProject struct {
		Name                           string              `json:"name"`
		SourceDir                      string              `json:"sourceDir"`
		Modules                        []string            `json:"modules"`
		Publication                    *AndroidPublication `json:"publication,omitempty"`
		AarProjects                    []AarProject        `json:"aarProjects,omitempty"`
		ShouldUsePublicationScriptPath string              `json:"shouldUsePublicationScriptPath,omitempty"`
	}

	// GradlePlugin is a Gradle plugin to apply.
	GradlePlugin struct {
		ID        string `json:"id"`
		Group     string `json:"group"`
		SourceDir string `json:"sourceDir"`
	}

	// Android is the Android variant.
	Android struct {
		PackageName string           `json:"packageName"`
		Projects    []AndroidProject `json:"projects"`
		Plugins     []GradlePlugin   `json:"plugins,omitempty"`
		// Packages are fully qualified legacy package classes found in the
		// project sources.
		Packages     []string `json:"packages,omitempty"`
		CoreFeatures []string `json:"coreFeatures,omitempty"`
	}

	// Pod is one CocoaPods pod.
	Pod struct {
		PodName    string `json:"podName"`
		PodspecDir string `json:"podspecDir"`
		// Prebuilt is the XCFramework linked instead of building from source.
		Prebuilt string `json:"prebuilt,omitempty"`
	}

	// Apple is the variant shared by iOS, macOS and tvOS.
	Apple struct {
		PackageName            string   `json:"packageName"`
		Pods                   []Pod    `json:"pods"`
		SwiftModuleNames       []string `json:"swiftModuleNames"`
		Modules                []string `json:"modules"`
		AppDelegateSubscribers []string `json:"appDelegateSubscribers"`
		ReactDelegateHandlers  []string `json:"reactDelegateHandlers"`
		DebugOnly              bool     `json:"debugOnly"`
		CoreFeatures           []string `json:"coreFeatures,omitempty"`
	}

	// DevTools is the developer-tools web plugin variant.
	DevTools struct {
		PackageName string `json:"packageName"`
		PackageRoot string `json:"packageRoot"`
		WebpageRoot string `json:"webpageRoot"`
	}
)

// NewAndroid wraps an Android variant.
func NewAndroid(a *Android) ModuleDescriptor {
	return ModuleDescriptor{Platform: PlatformAndroid, Android: a}
}

// NewApple wraps an Apple variant.
func NewApple(a *Apple) ModuleDescriptor {
	return ModuleDescriptor{Platform: PlatformApple, Apple: a}
}

// NewDevTools wraps a devtools variant.
func NewDevTools(d *DevTools) ModuleDescriptor {
	return ModuleDescriptor{Platform: PlatformDevTools, DevTools: d}
}

// PackageName returns the package name of the populated variant.
func (d ModuleDescriptor) PackageName() string {
	switch d.Platform {
	case PlatformAndroid:
		if d.Android != nil {
			return d.Android.PackageName
		}
	case PlatformApple:
		if d.Apple != nil {
			return d.Apple.PackageName
		}
	case PlatformDevTools:
		if d.DevTools != nil {
			return d.DevTools.PackageName
		}
	}
	return ""
}

// Validate checks that exactly the variant named by Platform is populated.
func (d ModuleDescriptor) Validate() error {
	populated := 0
	for _, set := range []bool{d.Android != nil, d.Apple != nil, d.DevTools != nil} {
		if set {
			populated++
		}
	}

	var matches bool
	switch d.Platform {
	case PlatformAndroid:
		matches = d.Android != nil
	case PlatformApple:
		matches = d.Apple != nil
	case PlatformDevTools:
		matches = d.DevTools != nil
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidDescriptor, d.Platform)
	}
	if !matches || populated != 1 {
		return fmt.Errorf("%w: platform %q needs exactly its own variant", ErrInvalidDescriptor, d.Platform)
	}
	return nil
}

// MarshalJSON encodes the populated variant on its own, matching the shape
// build scripts consume.
func (d ModuleDescriptor) MarshalJSON() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	switch d.Platform {
	case PlatformAndroid:
		return json.Marshal(d.Android)
	case PlatformApple:
		return json.Marshal(d.Apple)
	default:
		return json.Marshal(d.DevTools)
	}
}
