// SPDX-License-Identifier: MPL-2.0

package modconfig

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/modlink/modlink/internal/memo"
	"github.com/modlink/modlink/pkg/cueutil"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"
)

var loadPackage = memo.Memoize(func(_ context.Context, path string) (*Package, error) {
	return ParsePackage(types.FilesystemPath(path))
})

type (
	// Package is a parsed package.json.
	Package struct {
		Name                 types.PackageName `json:"name"`
		Version              string            `json:"version"`
		Dependencies         map[string]string `json:"dependencies,omitempty"`
		DevDependencies      map[string]string `json:"devDependencies,omitempty"`
		PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
		OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
		Expo                 *PackageExpo      `json:"expo,omitempty"`

		// FilePath is the package.json this package was read from.
		FilePath types.FilesystemPath `json:"-"`
	}

	// PackageExpo is the "expo" block of package.json.
	PackageExpo struct {
		Autolinking map[string]any `json:"autolinking,omitempty"`
	}
)

// LoadPackage parses the package.json at path, memoized by absolute path
// inside a memo session.
func LoadPackage(ctx context.Context, path types.FilesystemPath) (*Package, error) {
	abs, err := fspath.Abs(path)
	if err != nil {
		abs = fspath.Clean(path)
	}
	return loadPackage(ctx, string(abs))
}

// LoadPackageIn parses the package.json inside dir.
func LoadPackageIn(ctx context.Context, dir types.FilesystemPath) (*Package, error) {
	return LoadPackage(ctx, fspath.JoinStr(dir, PackageManifest))
}

// ParsePackage reads and parses the package.json at path.
func ParsePackage(path types.FilesystemPath) (*Package, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read package manifest at %s: %w", path, err)
	}
	return ParsePackageBytes(data, path)
}

// ParsePackageBytes parses package.json content.
func ParsePackageBytes(data []byte, path types.FilesystemPath) (*Package, error) {
	result, err := cueutil.ParseAndDecode[Package](
		schema,
		data,
		"#Package",
		cueutil.WithFilename(string(path)),
		cueutil.WithFormat(cueutil.FormatJSON),
	)
	if err != nil {
		return nil, err
	}

	pkg := result.Value
	pkg.FilePath = path
	return pkg, nil
}

// Dir returns the package root directory.
func (p *Package) Dir() types.FilesystemPath { return fspath.Dir(p.FilePath) }

// DependencyNames returns the production dependency names, sorted.
// Development dependencies are not included.
func (p *Package) DependencyNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AutolinkingOptions returns the "expo.autolinking" options with the
// platform-specific block ("expo.autolinking.<platform>") merged over the
// shared keys. Platform blocks of other platforms are dropped.
func (p *Package) AutolinkingOptions(platformName string, platformNames []string) map[string]any {
	merged := make(map[string]any)
	if p == nil || p.Expo == nil {
		return merged
	}
	for key, value := range p.Expo.Autolinking {
		if slices.Contains(platformNames, key) {
			continue
		}
		merged[key] = value
	}
	if override, ok := p.Expo.Autolinking[platformName].(map[string]any); ok {
		for key, value := range override {
			merged[key] = value
		}
	}
	return merged
}
