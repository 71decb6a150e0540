// SPDX-License-Identifier: MPL-2.0

// Package platform names the targets modlink can resolve modules for and the
// host operating systems it runs on.
//
// Target platforms come in families: "ios", "macos" and "tvos" are Apple
// platforms, and a module manifest may list "apple" to opt into all of them.
package platform

import (
	"fmt"
	"slices"
	"strings"
)

// Host OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

const (
	// Android is the Android target.
	Android Platform = "android"
	// IOS is the iOS target.
	IOS Platform = "ios"
	// MacOS is the macOS target.
	MacOS Platform = "macos"
	// TvOS is the tvOS target.
	TvOS Platform = "tvos"
	// Apple is the umbrella for every Apple target.
	Apple Platform = "apple"
	// DevTools is the developer-tools web plugin target.
	DevTools Platform = "devtools"
	// Web is accepted in manifests but has no native descriptor.
	Web Platform = "web"
)

type (
	// Platform is a resolution target as written on the command line or in a
	// module manifest's "platforms" list.
	Platform string

	// Family groups platforms that share one descriptor variant.
	Family string

	// UnknownPlatformError is returned by Parse for names modlink does not know.
	UnknownPlatformError struct {
		Value string
	}
)

const (
	// FamilyAndroid covers Android.
	FamilyAndroid Family = "android"
	// FamilyApple covers ios, macos, tvos and apple.
	FamilyApple Family = "apple"
	// FamilyDevTools covers devtools.
	FamilyDevTools Family = "devtools"
	// FamilyNone is returned for platforms without a native descriptor.
	FamilyNone Family = ""
)

var known = []Platform{Android, IOS, MacOS, TvOS, Apple, DevTools, Web}

// Error implements the error interface.
func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q (expected one of %s)", e.Value, strings.Join(Names(), ", "))
}

// Names returns every known platform name in a stable order.
func Names() []string {
	names := make([]string, len(known))
	for i, p := range known {
		names[i] = string(p)
	}
	return names
}

// Parse converts a user-supplied name into a Platform.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(known, p) {
		return "", &UnknownPlatformError{Value: s}
	}
	return p, nil
}

// String returns the platform name.
func (p Platform) String() string { return string(p) }

// Family returns the descriptor family for p.
func (p Platform) Family() Family {
	switch p {
	case Android:
		return FamilyAndroid
	case IOS, MacOS, TvOS, Apple:
		return FamilyApple
	case DevTools:
		return FamilyDevTools
	default:
		return FamilyNone
	}
}

// IsApple reports whether p is one of the Apple targets.
func (p Platform) IsApple() bool { return p.Family() == FamilyApple }

// MatchedBy reports whether a manifest that declares the given platforms
// supports p. A declared "apple" matches every Apple target, and a declared
// "ios" also matches the "apple" umbrella.
func (p Platform) MatchedBy(declared []string) bool {
	for _, d := range declared {
		dp := Platform(strings.ToLower(d))
		if dp == p {
			return true
		}
		if p.IsApple() && (dp == Apple || (p == Apple && dp.IsApple())) {
			return true
		}
	}
	return false
}
