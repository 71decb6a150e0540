// SPDX-License-Identifier: MPL-2.0

package workspacetest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const (
	packageManifest = "package.json"
	moduleManifest  = "expo-module.config.json"
	legacyManifest  = "unimodule.json"
)

type (
	// Workspace is a directory tree rooted in a test's temp dir.
	Workspace struct {
		t    testing.TB
		Root string
	}

	// PackageOption configures a package written by AddPackage or WriteRoot.
	PackageOption func(*packageFixture)

	packageFixture struct {
		manifest     map[string]any
		moduleConfig string
		legacyConfig string
		files        map[string]string
	}
)

// New creates an empty workspace. Root is symlink-resolved so it compares
// equal to the real paths discovery reports.
func New(t testing.TB) *Workspace {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("failed to resolve temp dir: %v", err)
	}
	return &Workspace{t: t, Root: root}
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// WriteRoot writes the root project's package.json.
func (w *Workspace) WriteRoot(name string, opts ...PackageOption) string {
	w.t.Helper()
	return w.AddPackage(".", name, opts...)
}

// AddPackage writes a package named name into dir (relative to the root) and
// returns its absolute directory.
//
// Usage:
//
//	ws := workspacetest.New(t)
//	ws.WriteRoot("app", workspacetest.WithDependencies("a"))
//	ws.AddPackage("node_modules/a", "a", workspacetest.WithPlatforms("ios", "android"))
func (w *Workspace) AddPackage(dir, name string, opts ...PackageOption) string {
	w.t.Helper()

	fx := &packageFixture{
		manifest: map[string]any{"name": name, "version": "1.0.0"},
		files:    map[string]string{},
	}
	for _, opt := range opts {
		opt(fx)
	}

	abs := w.Path(filepath.FromSlash(dir))
	data, err := json.MarshalIndent(fx.manifest, "", "  ")
	if err != nil {
		w.t.Fatalf("failed to encode package.json for %s: %v", name, err)
	}
	w.WriteFile(filepath.Join(dir, packageManifest), string(data))

	if fx.moduleConfig != "" {
		w.WriteFile(filepath.Join(dir, moduleManifest), fx.moduleConfig)
	}
	if fx.legacyConfig != "" {
		w.WriteFile(filepath.Join(dir, legacyManifest), fx.legacyConfig)
	}
	for rel, content := range fx.files {
		w.WriteFile(filepath.Join(dir, rel), content)
	}
	return abs
}

// WriteFile writes content to rel (relative to the root), creating parents.
func (w *Workspace) WriteFile(rel, content string) string {
	w.t.Helper()
	path := w.Path(filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		w.t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		w.t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Mkdir creates rel (relative to the root) and its parents.
func (w *Workspace) Mkdir(rel string) string {
	w.t.Helper()
	path := w.Path(filepath.FromSlash(rel))
	if err := os.MkdirAll(path, 0o755); err != nil {
		w.t.Fatalf("failed to create directory %s: %v", path, err)
	}
	return path
}

// Symlink creates link pointing at target, both relative to the root.
// The test is skipped where symlinks cannot be created.
func (w *Workspace) Symlink(target, link string) {
	w.t.Helper()
	linkPath := w.Path(filepath.FromSlash(link))
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		w.t.Fatalf("failed to create directory for %s: %v", linkPath, err)
	}
	if err := os.Symlink(w.Path(filepath.FromSlash(target)), linkPath); err != nil {
		w.t.Skipf("symlinks unavailable: %v", err)
	}
}

// WithVersion sets the package version.
func WithVersion(version string) PackageOption {
	return func(s *packageFixture) { s.manifest["version"] = version }
}

// WithDependencies adds production dependencies.
func WithDependencies(names ...string) PackageOption {
	return func(s *packageFixture) { addDeps(s, "dependencies", names) }
}

// WithDevDependencies adds development dependencies.
func WithDevDependencies(names ...string) PackageOption {
	return func(s *packageFixture) { addDeps(s, "devDependencies", names) }
}

// WithAutolinking sets the package.json "expo.autolinking" block.
func WithAutolinking(options map[string]any) PackageOption {
	return func(s *packageFixture) {
		s.manifest["expo"] = map[string]any{"autolinking": options}
	}
}

// WithPlatforms writes an expo-module.config.json listing only platforms.
func WithPlatforms(platforms ...string) PackageOption {
	return func(s *packageFixture) {
		data, _ := json.Marshal(map[string]any{"platforms": platforms})
		s.moduleConfig = string(data)
	}
}

// WithModuleConfig writes raw JSON as expo-module.config.json.
func WithModuleConfig(raw string) PackageOption {
	return func(s *packageFixture) { s.moduleConfig = raw }
}

// WithLegacyModuleConfig writes raw JSON as unimodule.json.
func WithLegacyModuleConfig(raw string) PackageOption {
	return func(s *packageFixture) { s.legacyConfig = raw }
}

// WithFile adds a file relative to the package directory.
func WithFile(rel, content string) PackageOption {
	return func(s *packageFixture) { s.files[rel] = content }
}

func addDeps(s *packageFixture, field string, names []string) {
	deps, ok := s.manifest[field].(map[string]string)
	if !ok {
		deps = map[string]string{}
		s.manifest[field] = deps
	}
	for _, name := range names {
		deps[name] = "*"
	}
}
