// SPDX-License-Identifier: MPL-2.0

// Package registry accumulates discovered package revisions by name.
//
// The first revision registered for a name is its primary. Later revisions of
// the same name at a different real path are kept as duplicates of the
// primary; they never replace it. The map entry owns its revision and the
// duplicate list.
package registry

import (
	"slices"

	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/types"
)

type (
	// PackageRevision is one discovered copy of a package.
	PackageRevision struct {
		// Path is the symlink-resolved package directory.
		Path types.FilesystemPath `json:"path"`
		// Version is the version declared in the package's package.json.
		Version string `json:"version"`
		// Config is the parsed module manifest. Duplicates do not carry one.
		Config *modconfig.ModuleConfig `json:"config,omitempty"`
		// Duplicates lists other copies of the same package, in discovery order.
		Duplicates []*PackageRevision `json:"duplicates,omitempty"`
		// IsLocal marks modules found in the project's local native modules
		// directory rather than in a dependency install directory.
		IsLocal bool `json:"isLocal,omitempty"`
	}

	// SearchResults maps a package name to its primary revision.
	SearchResults map[string]*PackageRevision

	// RevisionRef identifies a revision in a verification report.
	RevisionRef struct {
		Path    types.FilesystemPath `json:"path"`
		Version string               `json:"version"`
	}

	// Conflict describes a package found at more than one real path.
	Conflict struct {
		Name       string        `json:"name"`
		Primary    RevisionRef   `json:"primary"`
		Duplicates []RevisionRef `json:"duplicates"`
	}

	// Report is the outcome of Verify.
	Report struct {
		Conflicts []Conflict `json:"conflicts"`
	}
)

// AddRevision registers rev under name. An unseen name stores rev as the
// primary. For a known name, rev is appended to the primary's duplicates when
// its path differs from the primary and from every recorded duplicate; the
// appended copy carries neither Config nor Duplicates.
//
// It reports whether results changed.
func AddRevision(results SearchResults, name string, rev *PackageRevision) bool {
	primary, ok := results[name]
	if !ok {
		if rev.Duplicates == nil {
			rev.Duplicates = []*PackageRevision{}
		}
		results[name] = rev
		return true
	}

	if primary.Path == rev.Path {
		return false
	}
	for _, dup := range primary.Duplicates {
		if dup.Path == rev.Path {
			return false
		}
	}

	primary.Duplicates = append(primary.Duplicates, &PackageRevision{
		Path:    rev.Path,
		Version: rev.Version,
		IsLocal: rev.IsLocal,
	})
	return true
}

// Names returns the registered names, sorted.
func Names(results SearchResults) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Verify reports every name with at least one duplicate, sorted by name.
func Verify(results SearchResults) Report {
	report := Report{Conflicts: []Conflict{}}
	for _, name := range Names(results) {
		rev := results[name]
		if len(rev.Duplicates) == 0 {
			continue
		}
		conflict := Conflict{
			Name:       name,
			Primary:    RevisionRef{Path: rev.Path, Version: rev.Version},
			Duplicates: make([]RevisionRef, 0, len(rev.Duplicates)),
		}
		for _, dup := range rev.Duplicates {
			conflict.Duplicates = append(conflict.Duplicates, RevisionRef{Path: dup.Path, Version: dup.Version})
		}
		report.Conflicts = append(report.Conflicts, conflict)
	}
	return report
}

// ConflictCount returns the number of names with duplicates.
func (r Report) ConflictCount() int { return len(r.Conflicts) }

// HasConflicts reports whether any name has duplicates.
func (r Report) HasConflicts() bool { return len(r.Conflicts) > 0 }
