// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/modlink/modlink/internal/depgraph"
	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/internal/limiter"
	"github.com/modlink/modlink/internal/memo"
	"github.com/modlink/modlink/internal/registry"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/types"
)

// DefaultNativeModulesDir is the project-relative directory holding modules
// that live in the app itself rather than in node_modules.
const DefaultNativeModulesDir = "modules"

type (
	// Options configures FindModules.
	Options struct {
		// SearchPaths are scanned in order; earlier paths win name conflicts.
		SearchPaths []types.FilesystemPath
		// IgnorePaths are patterns matched against package directories
		// relative to their search path ("name" or "@scope/name").
		IgnorePaths []string
		// Exclude lists package names that are never linked.
		Exclude []string
		// NativeModulesDir is an absolute directory of local modules. Local
		// modules are scanned first and are kept by dependency filtering.
		NativeModulesDir types.FilesystemPath
		// ProjectRoot holds the root package.json used for filtering.
		ProjectRoot types.FilesystemPath
		// OnlyProjectDeps restricts results to the root project's dependency
		// graph. It has no effect with a single search path.
		OnlyProjectDeps bool
		// Silent suppresses warning logs. Diagnostics are still returned.
		Silent bool
		// Concurrency bounds parallel manifest reads. Zero means
		// limiter.DefaultConcurrency.
		Concurrency int
		// MemoMaxEntries caps each memoized lookup cache. Zero means
		// memo.DefaultMaxEntries.
		MemoMaxEntries int
	}

	// Result is the outcome of FindModules.
	Result struct {
		// Modules maps each module name to its primary revision.
		Modules registry.SearchResults
		// Diagnostics lists non-fatal problems in scan order.
		Diagnostics []Diagnostic
		// Graph is the dependency walk, or nil when filtering was skipped.
		Graph *depgraph.Result
	}

	// hit is what inspecting one candidate directory produced.
	hit struct {
		name        string
		rev         *registry.PackageRevision
		diagnostics []Diagnostic
	}
)

// FindModules discovers the native modules reachable through opts. It opens a
// memo session for the duration of the scan, so repeated manifest lookups hit
// disk once.
//
// Problems with individual packages become diagnostics. The returned error is
// reserved for context cancellation and for a missing root package.json when
// dependency filtering applies.
func FindModules(ctx context.Context, opts Options) (*Result, error) {
	var result *Result
	err := memo.WithMemoizer(ctx, func(ctx context.Context) error {
		var err error
		result, err = findModules(ctx, opts)
		return err
	}, memo.WithMaxEntries(opts.MemoMaxEntries))
	return result, err
}

func findModules(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{Modules: make(registry.SearchResults)}

	candidates := result.collectCandidates(opts)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = limiter.DefaultConcurrency
	}
	hits, err := limiter.Map(ctx, limiter.New(concurrency), candidates, func(ctx context.Context, c candidate) (*hit, error) {
		return inspect(ctx, c, opts)
	})
	if err != nil {
		return nil, err
	}

	// Registration happens here, in scan order, so primaries are deterministic.
	for _, h := range hits {
		if h == nil {
			continue
		}
		result.add(opts, h.diagnostics...)
		if h.rev != nil {
			registry.AddRevision(result.Modules, h.name, h.rev)
		}
	}

	if !opts.OnlyProjectDeps || len(opts.SearchPaths) <= 1 {
		return result, nil
	}
	if err := result.filter(ctx, opts); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Result) collectCandidates(opts Options) []candidate {
	var candidates []candidate
	if opts.NativeModulesDir != "" && fspath.IsDir(opts.NativeModulesDir) {
		local, err := listCandidates(opts.NativeModulesDir, opts.IgnorePaths, true)
		if err != nil {
			r.add(opts, NewDiagnosticWithCause(SeverityWarning, CodeSearchPathUnreadable,
				"cannot list native modules directory", string(opts.NativeModulesDir), err))
		}
		candidates = append(candidates, local...)
	}

	for _, searchPath := range opts.SearchPaths {
		found, err := listCandidates(searchPath, opts.IgnorePaths, false)
		if err != nil {
			// Derived search paths are often not installed yet.
			if !errors.Is(err, fs.ErrNotExist) {
				r.add(opts, NewDiagnosticWithCause(SeverityWarning, CodeSearchPathUnreadable,
					"cannot list search path", string(searchPath), err))
			}
			continue
		}
		candidates = append(candidates, found...)
	}
	return candidates
}

// filter replaces Modules with the subset reachable from the root project.
// Local modules are kept regardless.
func (r *Result) filter(ctx context.Context, opts Options) error {
	rootManifest := fspath.JoinStr(opts.ProjectRoot, modconfig.PackageManifest)
	if !fspath.IsFile(rootManifest) {
		return issue.NewErrorContext().
			WithOperation("read root package manifest").
			WithResource(string(rootManifest)).
			WithSuggestion("Pass --project-root pointing at the directory of your app's package.json").
			WithSuggestion("Use --no-only-project-deps to link every module that was found").
			WithIssue(issue.RootManifestNotFoundId).
			Wrap(fs.ErrNotExist).
			BuildError()
	}

	graph, err := depgraph.FilterToProjectDependencies(ctx, r.Modules, rootManifest, depgraph.Options{Silent: opts.Silent})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("walk project dependencies").
			WithResource(string(rootManifest)).
			WithIssue(issue.RootManifestNotFoundId).
			Wrap(err).
			BuildError()
	}

	for name, rev := range r.Modules {
		if rev.IsLocal {
			graph.Results[name] = rev
		}
	}
	for _, problem := range graph.Problems {
		// depgraph already logged these.
		r.Diagnostics = append(r.Diagnostics, NewDiagnosticWithCause(SeverityWarning, CodeModuleResolutionFailed,
			problem.Error(), string(problem.From), problem))
	}
	r.Modules = graph.Results
	r.Graph = graph
	return nil
}

func (r *Result) add(opts Options, diagnostics ...Diagnostic) {
	for _, d := range diagnostics {
		r.Diagnostics = append(r.Diagnostics, d)
		if opts.Silent {
			continue
		}
		args := []any{"code", d.Code}
		if d.Path != "" {
			args = append(args, "path", d.Path)
		}
		if d.Cause != nil {
			args = append(args, "error", d.Cause)
		}
		slog.Warn(d.Message, args...)
	}
}

// inspect discovers the module manifest and identity of one candidate. It
// returns nil when the directory is not a module, and an error only when ctx
// is done.
func inspect(ctx context.Context, c candidate, opts Options) (*hit, error) {
	dir, err := fspath.Real(c.dir)
	if err != nil {
		// Dangling symlink.
		return nil, nil
	}

	found, err := modconfig.Discover(ctx, dir)
	if err != nil {
		return nil, err
	}

	h := &hit{}
	for _, problem := range found.Problems {
		h.diagnostics = append(h.diagnostics, NewDiagnosticWithCause(SeverityWarning, CodeModuleConfigParseFailed,
			"skipping unparseable module manifest", string(problem.Path), problem))
	}
	if !found.Found() {
		return h, nil
	}

	name, version := c.dirName, ""
	pkg, err := modconfig.LoadPackageIn(ctx, dir)
	switch {
	case err == nil:
		version = pkg.Version
		if pkg.Name != "" {
			name = string(pkg.Name)
		} else if !c.local {
			h.diagnostics = append(h.diagnostics, NewDiagnosticWithCause(SeverityWarning, CodePackageNameInvalid,
				"package.json declares no name", string(pkg.FilePath), nil))
			return h, nil
		}
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case !c.local:
		h.diagnostics = append(h.diagnostics, NewDiagnosticWithCause(SeverityWarning, CodePackageManifestUnreadable,
			"skipping module without a readable package.json", string(dir), err))
		return h, nil
	}

	if err := types.PackageName(name).Validate(); err != nil {
		h.diagnostics = append(h.diagnostics, NewDiagnosticWithCause(SeverityWarning, CodePackageNameInvalid,
			"skipping module with an invalid name", string(dir), err))
		return h, nil
	}
	if slices.Contains(opts.Exclude, name) {
		return h, nil
	}

	h.name = name
	h.rev = &registry.PackageRevision{
		Path:    dir,
		Version: version,
		Config:  found.Config,
		IsLocal: c.local,
	}
	return h, nil
}
