// SPDX-License-Identifier: MPL-2.0

// Package depgraph restricts discovery results to the packages the root
// project actually depends on.
package depgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modlink/modlink/internal/dag"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/internal/searchpath"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/types"
)

// ErrModuleResolution is the sentinel error wrapped by ModuleResolutionError.
var ErrModuleResolution = errors.New("dependency could not be resolved")

type (
	// Options configures FilterToProjectDependencies.
	Options struct {
		// Silent suppresses the warning logged for each unresolved dependency.
		// The failure is still returned in Result.Problems.
		Silent bool
	}

	// ModuleResolutionError records a declared dependency whose package.json
	// could not be located or read.
	ModuleResolutionError struct {
		Name  string
		From  types.FilesystemPath
		Cause error
	}

	// Result is the outcome of a dependency walk.
	Result struct {
		// Results holds the reachable subset of the input results.
		Results registry.SearchResults
		// Problems lists dependencies whose branch of the walk was skipped.
		Problems []*ModuleResolutionError
		// Edges lists every dependency relation the walk followed, including
		// edges into packages that were already visited.
		Edges []dag.Edge
		// RootName is the name declared by the root package.json.
		RootName string
	}

	frame struct {
		name     string
		manifest types.FilesystemPath
	}
)

// Error implements the error interface.
func (e *ModuleResolutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot resolve %q from %s", e.Name, e.From)
	}
	return fmt.Sprintf("cannot resolve %q from %s: %v", e.Name, e.From, e.Cause)
}

// Unwrap returns ErrModuleResolution for errors.Is() compatibility.
func (e *ModuleResolutionError) Unwrap() error { return ErrModuleResolution }

// Graph builds the dependency graph of the walk.
func (r *Result) Graph() *dag.Graph { return dag.FromEdges(r.Edges) }

// FilterToProjectDependencies walks the production dependencies of the
// package.json at rootManifest, depth first, and returns the entries of
// results reachable from it.
//
// Each dependency name is visited at most once, so dependency cycles end the
// walk of that branch. A dependency whose package.json cannot be located is
// recorded as a ModuleResolutionError and its branch is skipped. The only
// error returned is a failure to read the root manifest or a context error.
func FilterToProjectDependencies(ctx context.Context, results registry.SearchResults, rootManifest types.FilesystemPath, opts Options) (*Result, error) {
	root, err := modconfig.LoadPackage(ctx, rootManifest)
	if err != nil {
		return nil, fmt.Errorf("failed to read root manifest: %w", err)
	}

	rootName := string(root.Name)
	if rootName == "" {
		rootName = fspath.Base(root.Dir())
	}

	out := &Result{
		Results:  make(registry.SearchResults),
		RootName: rootName,
	}
	// The root counts as visited so a cycle back into it ends the walk.
	visited := map[string]bool{rootName: true}
	stack := []frame{{name: rootName, manifest: root.FilePath}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pkg, err := modconfig.LoadPackage(ctx, current.manifest)
		if err != nil {
			// Only reachable for dependencies: the root was loaded above.
			out.problem(&ModuleResolutionError{Name: current.name, From: fspath.Dir(current.manifest), Cause: err}, opts)
			continue
		}

		deps := pkg.DependencyNames()
		for _, name := range deps {
			out.Edges = append(out.Edges, dag.Edge{Dependent: current.name, Dependency: name})
		}

		// Push in reverse so dependencies are visited in sorted order.
		for i := len(deps) - 1; i >= 0; i-- {
			name := deps[i]
			if visited[name] {
				continue
			}
			visited[name] = true

			if rev, ok := results[name]; ok {
				out.Results[name] = rev
			}

			manifest, err := resolveManifest(name, pkg.Dir(), results)
			if err != nil {
				out.problem(&ModuleResolutionError{Name: name, From: pkg.Dir(), Cause: err}, opts)
				continue
			}
			stack = append(stack, frame{name: name, manifest: manifest})
		}
	}

	return out, nil
}

func (r *Result) problem(err *ModuleResolutionError, opts Options) {
	r.Problems = append(r.Problems, err)
	if !opts.Silent {
		slog.Warn("skipping unresolved dependency", "dependency", err.Name, "from", err.From, "error", err.Cause)
	}
}

// resolveManifest locates name's package.json the way a Node.js require would
// from dir: dir/node_modules/<name>, then each ancestor's node_modules. When
// that fails, the path of the revision already known for name is used. The
// returned path is symlink-resolved so nested lookups start from the
// physical location.
func resolveManifest(name string, dir types.FilesystemPath, results registry.SearchResults) (types.FilesystemPath, error) {
	if err := types.PackageName(name).Validate(); err != nil {
		return "", err
	}

	if manifest, ok := searchpath.ResolvePackage(name, dir); ok {
		return manifest, nil
	}

	if rev, ok := results[name]; ok {
		candidate := fspath.JoinStr(rev.Path, modconfig.PackageManifest)
		if fspath.IsFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no %s found for %q", modconfig.PackageManifest, name)
}
