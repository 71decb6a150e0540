// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/internal/testutil/workspacetest"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/types"
)

func nodeModules(ws *workspacetest.Workspace, elem ...string) types.FilesystemPath {
	return types.FilesystemPath(ws.Path(append(elem, "node_modules")...))
}

func find(t *testing.T, opts Options) *Result {
	t.Helper()
	opts.Silent = true
	result, err := FindModules(context.Background(), opts)
	if err != nil {
		t.Fatalf("FindModules() error: %v", err)
	}
	return result
}

func containsDiagnostic(diags []Diagnostic, code DiagnosticCode) bool {
	return slices.ContainsFunc(diags, func(d Diagnostic) bool { return d.Code == code })
}

func TestFindModules_SingleSearchPath(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app")
	ws.AddPackage("node_modules/a", "a", workspacetest.WithVersion("1.2.0"), workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/@acme/b", "@acme/b", workspacetest.WithPlatforms("android"))
	ws.AddPackage("node_modules/plain", "plain")
	ws.Mkdir("node_modules/.bin")

	result := find(t, Options{
		SearchPaths:     []types.FilesystemPath{nodeModules(ws)},
		ProjectRoot:     types.FilesystemPath(ws.Root),
		OnlyProjectDeps: true,
	})

	// A single search path links everything, declared or not.
	if names := registry.Names(result.Modules); !slices.Equal(names, []string{"@acme/b", "a"}) {
		t.Errorf("modules = %v, want [@acme/b a]", names)
	}
	if result.Graph != nil {
		t.Error("filtering should be skipped with one search path")
	}
	a := result.Modules["a"]
	if a.Version != "1.2.0" || !slices.Equal(a.Config.Platforms, []string{"ios"}) {
		t.Errorf("a = %+v", a)
	}
}

func TestFindModules_PathsAreRealAndHoldManifest(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("store/a", "a", workspacetest.WithPlatforms("ios"))
	ws.Symlink("store/a", "node_modules/a")

	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws)}})

	a, ok := result.Modules["a"]
	if !ok {
		t.Fatal("module a not found")
	}
	if want := types.FilesystemPath(ws.Path("store", "a")); a.Path != want {
		t.Errorf("Path = %s, want %s", a.Path, want)
	}
	if _, err := os.Stat(filepath.Join(string(a.Path), modconfig.PrimaryManifest)); err != nil {
		t.Errorf("manifest not found under reported path: %v", err)
	}
}

func TestFindModules_SymlinkedCopiesAreOneRevision(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("store/a", "a", workspacetest.WithPlatforms("ios"))
	ws.Symlink("store/a", "app/node_modules/a")
	ws.Symlink("store/a", "node_modules/a")

	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws, "app"), nodeModules(ws)}})

	if got := len(result.Modules["a"].Duplicates); got != 0 {
		t.Errorf("Duplicates = %d, want 0 for two links to one directory", got)
	}
}

func TestFindModules_DuplicatesAcrossSearchPaths(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("app/node_modules/a", "a", workspacetest.WithVersion("2.0.0"), workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithVersion("1.0.0"), workspacetest.WithPlatforms("ios"))

	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws, "app"), nodeModules(ws)}})

	a := result.Modules["a"]
	if a.Version != "2.0.0" {
		t.Errorf("primary version = %s, want the first search path's 2.0.0", a.Version)
	}
	if len(a.Duplicates) != 1 || a.Duplicates[0].Version != "1.0.0" {
		t.Errorf("Duplicates = %+v", a.Duplicates)
	}
	if report := registry.Verify(result.Modules); report.ConflictCount() != 1 {
		t.Errorf("ConflictCount() = %d, want 1", report.ConflictCount())
	}
}

func TestFindModules_ExcludeAndIgnore(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	for _, name := range []string{"a", "b", "c"} {
		ws.AddPackage("node_modules/"+name, name, workspacetest.WithPlatforms("android"))
	}
	ws.AddPackage("node_modules/@internal/d", "@internal/d", workspacetest.WithPlatforms("android"))

	result := find(t, Options{
		SearchPaths: []types.FilesystemPath{nodeModules(ws)},
		Exclude:     []string{"b"},
		IgnorePaths: []string{"c", "**/d"},
	})
	if names := registry.Names(result.Modules); !slices.Equal(names, []string{"a"}) {
		t.Errorf("modules = %v, want [a]", names)
	}
}

func TestFindModules_ParseFailureIsDiagnostic(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("node_modules/broken", "broken", workspacetest.WithModuleConfig(`{"platforms": 1}`))
	ws.AddPackage("node_modules/ok", "ok", workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/fallback", "fallback",
		workspacetest.WithModuleConfig(`{oops`),
		workspacetest.WithLegacyModuleConfig(`{"platforms": ["android"]}`))

	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws)}})

	if names := registry.Names(result.Modules); !slices.Equal(names, []string{"fallback", "ok"}) {
		t.Errorf("modules = %v, want [fallback ok]", names)
	}
	var parseFailures int
	for _, d := range result.Diagnostics {
		if d.Code == CodeModuleConfigParseFailed {
			parseFailures++
			if !errors.Is(d.Cause, modconfig.ErrConfigParse) {
				t.Errorf("diagnostic cause %v should wrap ErrConfigParse", d.Cause)
			}
		}
	}
	if parseFailures != 2 {
		t.Errorf("parse failure diagnostics = %d, want 2", parseFailures)
	}
}

func TestFindModules_MissingPackageJSON(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteFile("node_modules/orphan/expo-module.config.json", `{"platforms": ["ios"]}`)

	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws)}})
	if len(result.Modules) != 0 {
		t.Errorf("modules = %v, want none", registry.Names(result.Modules))
	}
	if !containsDiagnostic(result.Diagnostics, CodePackageManifestUnreadable) {
		t.Errorf("Diagnostics = %v, want %s", result.Diagnostics, CodePackageManifestUnreadable)
	}
}

func TestFindModules_MissingSearchPathIsQuiet(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	result := find(t, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws, "nowhere")}})
	if len(result.Modules) != 0 || len(result.Diagnostics) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestFindModules_LocalModules(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/unused", "unused", workspacetest.WithPlatforms("ios"))
	// Local modules may omit package.json and take their directory name.
	ws.WriteFile("modules/my-module/expo-module.config.json", `{"platforms": ["ios"]}`)
	ws.Mkdir("app/node_modules")

	result := find(t, Options{
		SearchPaths:      []types.FilesystemPath{nodeModules(ws, "app"), nodeModules(ws)},
		NativeModulesDir: types.FilesystemPath(ws.Path("modules")),
		ProjectRoot:      types.FilesystemPath(ws.Root),
		OnlyProjectDeps:  true,
	})

	if names := registry.Names(result.Modules); !slices.Equal(names, []string{"a", "my-module"}) {
		t.Errorf("modules = %v, want [a my-module]", names)
	}
	if !result.Modules["my-module"].IsLocal {
		t.Error("my-module should be marked local")
	}
}

func TestFindModules_FiltersWithMultipleSearchPaths(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("monorepo")
	ws.AddPackage("apps/mobile", "mobile", workspacetest.WithDependencies("a"))
	ws.AddPackage("apps/mobile/node_modules/a", "a", workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/c", "c", workspacetest.WithPlatforms("ios"))

	opts := Options{
		SearchPaths:     []types.FilesystemPath{nodeModules(ws, "apps", "mobile"), nodeModules(ws)},
		ProjectRoot:     types.FilesystemPath(ws.Path("apps", "mobile")),
		OnlyProjectDeps: true,
	}
	result := find(t, opts)
	if names := registry.Names(result.Modules); !slices.Equal(names, []string{"a"}) {
		t.Errorf("filtered modules = %v, want [a]", names)
	}
	if result.Graph == nil {
		t.Error("Graph should be set when filtering ran")
	}

	opts.OnlyProjectDeps = false
	unfiltered := find(t, opts)
	if names := registry.Names(unfiltered.Modules); !slices.Equal(names, []string{"a", "c"}) {
		t.Errorf("unfiltered modules = %v, want [a c]", names)
	}
}

func TestFindModules_MissingRootManifestIsFatal(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("a/node_modules/x", "x", workspacetest.WithPlatforms("ios"))
	ws.Mkdir("b/node_modules")

	_, err := FindModules(context.Background(), Options{
		SearchPaths:     []types.FilesystemPath{nodeModules(ws, "a"), nodeModules(ws, "b")},
		ProjectRoot:     types.FilesystemPath(ws.Path("nowhere")),
		OnlyProjectDeps: true,
		Silent:          true,
	})
	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		t.Fatalf("FindModules() error = %v, want *issue.ActionableError", err)
	}
	if actionable.IssueID != issue.RootManifestNotFoundId {
		t.Errorf("IssueID = %d, want %d", actionable.IssueID, issue.RootManifestNotFoundId)
	}
}

func TestFindModules_Idempotent(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("node_modules/a", "a", workspacetest.WithPlatforms("ios"))
	ws.AddPackage("node_modules/b", "b", workspacetest.WithPlatforms("android"))
	ws.AddPackage("app/node_modules/b", "b", workspacetest.WithVersion("2.0.0"), workspacetest.WithPlatforms("android"))

	opts := Options{SearchPaths: []types.FilesystemPath{nodeModules(ws), nodeModules(ws, "app")}}
	first := find(t, opts)
	second := find(t, opts)

	if !reflect.DeepEqual(first.Modules, second.Modules) {
		t.Errorf("results differ between runs:\n%v\n%v", first.Modules, second.Modules)
	}
}

func TestFindModules_CanceledContext(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.AddPackage("node_modules/a", "a", workspacetest.WithPlatforms("ios"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FindModules(ctx, Options{SearchPaths: []types.FilesystemPath{nodeModules(ws)}, Silent: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FindModules() error = %v, want context.Canceled", err)
	}
}

func TestIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel      string
		patterns []string
		want     bool
	}{
		{rel: "a", patterns: nil, want: false},
		{rel: "a", patterns: []string{"a"}, want: true},
		{rel: "@scope/a", patterns: []string{"@scope/*"}, want: true},
		{rel: "@scope/a", patterns: []string{"a"}, want: false},
		{rel: "@scope/a", patterns: []string{"**/a"}, want: true},
		{rel: "expo-dev-menu", patterns: []string{"expo-dev-*"}, want: true},
		{rel: "b", patterns: []string{"./b/"}, want: true},
		{rel: "a", patterns: []string{"{a,b}"}, want: true},
		{rel: "c", patterns: []string{"{a,b}"}, want: false},
		{rel: "@acme/a", patterns: []string{"**"}, want: true},
		{rel: "@acme/a", patterns: []string{"@acme/{a,b}"}, want: true},
		{rel: "a", patterns: []string{"[invalid"}, want: false},
	}
	for _, tt := range tests {
		if got := ignored(tt.rel, tt.patterns); got != tt.want {
			t.Errorf("ignored(%q, %v) = %v, want %v", tt.rel, tt.patterns, got, tt.want)
		}
	}
}
