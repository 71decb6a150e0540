// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/modlink/modlink/internal/dag"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/internal/testutil/workspacetest"
	"github.com/modlink/modlink/pkg/types"
)

// rawResults registers a revision for each name at <root>/node_modules/<name>.
func rawResults(ws *workspacetest.Workspace, names ...string) registry.SearchResults {
	results := registry.SearchResults{}
	for _, name := range names {
		registry.AddRevision(results, name, &registry.PackageRevision{
			Path:    types.FilesystemPath(ws.Path("node_modules", name)),
			Version: "1.0.0",
		})
	}
	return results
}

func rootManifest(ws *workspacetest.Workspace) types.FilesystemPath {
	return types.FilesystemPath(ws.Path("package.json"))
}

func TestFilter_DropsUnreferencedPackages(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a", "b"))
	ws.AddPackage("node_modules/a", "a")
	ws.AddPackage("node_modules/b", "b")
	ws.AddPackage("node_modules/c", "c")

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "a", "b", "c"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if names := registry.Names(got.Results); !slices.Equal(names, []string{"a", "b"}) {
		t.Errorf("filtered names = %v, want [a b]", names)
	}
	if got.RootName != "app" {
		t.Errorf("RootName = %q, want app", got.RootName)
	}
}

func TestFilter_FollowsTransitiveDependencies(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("wrapper"))
	// wrapper is not a native module itself but pulls one in.
	ws.AddPackage("node_modules/wrapper", "wrapper", workspacetest.WithDependencies("native"))
	ws.AddPackage("node_modules/wrapper/node_modules/native", "native")

	results := registry.SearchResults{}
	registry.AddRevision(results, "native", &registry.PackageRevision{
		Path: types.FilesystemPath(ws.Path("node_modules", "wrapper", "node_modules", "native")),
	})

	got, err := FilterToProjectDependencies(context.Background(), results, rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if _, ok := got.Results["native"]; !ok {
		t.Errorf("transitive native module missing: %v", registry.Names(got.Results))
	}
}

func TestFilter_IgnoresDevDependencies(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a"), workspacetest.WithDevDependencies("tooling"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithDevDependencies("test-helper"))
	ws.AddPackage("node_modules/tooling", "tooling")
	ws.AddPackage("node_modules/test-helper", "test-helper")

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "a", "tooling", "test-helper"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if names := registry.Names(got.Results); !slices.Equal(names, []string{"a"}) {
		t.Errorf("filtered names = %v, want [a]", names)
	}
}

func TestFilter_CyclesTerminate(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithDependencies("b"))
	ws.AddPackage("node_modules/b", "b", workspacetest.WithDependencies("c"))
	ws.AddPackage("node_modules/c", "c", workspacetest.WithDependencies("a", "b"))

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "a", "b", "c"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if names := registry.Names(got.Results); !slices.Equal(names, []string{"a", "b", "c"}) {
		t.Errorf("filtered names = %v, want [a b c]", names)
	}

	cycles := got.Graph().Cycles()
	if len(cycles) != 1 || !slices.Equal(cycles[0], []string{"a", "b", "c"}) {
		t.Errorf("Cycles() = %v, want [[a b c]]", cycles)
	}
}

func TestFilter_CycleThroughRoot(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithDependencies("app"))

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "a"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if len(got.Problems) != 0 {
		t.Errorf("Problems = %v, want none", got.Problems)
	}
	if names := registry.Names(got.Results); !slices.Equal(names, []string{"a"}) {
		t.Errorf("filtered names = %v, want [a]", names)
	}
	if !slices.Contains(got.Edges, dag.Edge{Dependent: "a", Dependency: "app"}) {
		t.Errorf("Edges = %v, want a -> app recorded", got.Edges)
	}
}

func TestFilter_VisitsSharedDependencyOnce(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("a", "b"))
	ws.AddPackage("node_modules/a", "a", workspacetest.WithDependencies("core"))
	ws.AddPackage("node_modules/b", "b", workspacetest.WithDependencies("core"))
	ws.AddPackage("node_modules/core", "core")

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "core"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}

	// Both edges into core are recorded even though core is walked once.
	var into int
	for _, e := range got.Edges {
		if e.Dependency == "core" {
			into++
		}
	}
	if into != 2 {
		t.Errorf("edges into core = %d, want 2", into)
	}
	if _, ok := got.Results["core"]; !ok {
		t.Error("core should be kept")
	}
}

func TestFilter_UnresolvedDependencyIsSkipped(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("missing", "a"))
	ws.AddPackage("node_modules/a", "a")

	got, err := FilterToProjectDependencies(context.Background(), rawResults(ws, "a"), rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if _, ok := got.Results["a"]; !ok {
		t.Error("resolvable sibling should still be kept")
	}
	if len(got.Problems) != 1 || got.Problems[0].Name != "missing" {
		t.Fatalf("Problems = %v, want one for missing", got.Problems)
	}
	if !errors.Is(got.Problems[0], ErrModuleResolution) {
		t.Error("problem should wrap ErrModuleResolution")
	}
}

func TestFilter_FallsBackToKnownRevisionPath(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("linked"))
	// The package lives outside any node_modules reachable from the root.
	ws.AddPackage("packages/linked", "linked", workspacetest.WithDependencies("inner"))
	ws.AddPackage("packages/linked/node_modules/inner", "inner")

	results := registry.SearchResults{}
	registry.AddRevision(results, "linked", &registry.PackageRevision{Path: types.FilesystemPath(ws.Path("packages", "linked"))})
	registry.AddRevision(results, "inner", &registry.PackageRevision{Path: types.FilesystemPath(ws.Path("packages", "linked", "node_modules", "inner"))})

	got, err := FilterToProjectDependencies(context.Background(), results, rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if names := registry.Names(got.Results); !slices.Equal(names, []string{"inner", "linked"}) {
		t.Errorf("filtered names = %v, want [inner linked]", names)
	}
	if len(got.Problems) != 0 {
		t.Errorf("Problems = %v, want none", got.Problems)
	}
}

func TestFilter_ScopedPackages(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("@acme/camera"))
	ws.AddPackage("node_modules/@acme/camera", "@acme/camera")

	results := registry.SearchResults{}
	registry.AddRevision(results, "@acme/camera", &registry.PackageRevision{Path: types.FilesystemPath(ws.Path("node_modules", "@acme", "camera"))})

	got, err := FilterToProjectDependencies(context.Background(), results, rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	if _, ok := got.Results["@acme/camera"]; !ok {
		t.Errorf("scoped package missing: %v", got.Problems)
	}
}

func TestFilter_MissingRootManifest(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	_, err := FilterToProjectDependencies(context.Background(), registry.SearchResults{}, types.FilesystemPath(filepath.Join(ws.Root, "package.json")), Options{})
	if err == nil {
		t.Fatal("expected an error for a missing root manifest")
	}
}

func TestFilter_EdgesInSortedOrder(t *testing.T) {
	t.Parallel()

	ws := workspacetest.New(t)
	ws.WriteRoot("app", workspacetest.WithDependencies("z", "m", "a"))
	ws.AddPackage("node_modules/z", "z")
	ws.AddPackage("node_modules/m", "m")
	ws.AddPackage("node_modules/a", "a")

	got, err := FilterToProjectDependencies(context.Background(), registry.SearchResults{}, rootManifest(ws), Options{Silent: true})
	if err != nil {
		t.Fatalf("FilterToProjectDependencies() error: %v", err)
	}
	want := []dag.Edge{{Dependent: "app", Dependency: "a"}, {Dependent: "app", Dependency: "m"}, {Dependent: "app", Dependency: "z"}}
	if !slices.Equal(got.Edges, want) {
		t.Errorf("Edges = %v, want %v", got.Edges, want)
	}
	if len(got.Results) != 0 {
		t.Errorf("Results = %v, want empty", got.Results)
	}
}
