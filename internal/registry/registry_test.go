// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"slices"
	"testing"

	"github.com/modlink/modlink/pkg/modconfig"
	"github.com/modlink/modlink/pkg/types"
)

func TestAddRevision_FirstIsPrimary(t *testing.T) {
	t.Parallel()

	results := SearchResults{}
	cfg := &modconfig.ModuleConfig{Platforms: []string{"ios"}}

	if !AddRevision(results, "a", &PackageRevision{Path: "/ws/node_modules/a", Version: "1.0.0", Config: cfg}) {
		t.Fatal("first AddRevision() should change results")
	}
	got := results["a"]
	if got.Path != "/ws/node_modules/a" || got.Config != cfg {
		t.Errorf("primary = %+v", got)
	}
	if got.Duplicates == nil || len(got.Duplicates) != 0 {
		t.Errorf("Duplicates = %v, want empty non-nil slice", got.Duplicates)
	}
}

func TestAddRevision_DuplicatesAreStripped(t *testing.T) {
	t.Parallel()

	results := SearchResults{}
	AddRevision(results, "a", &PackageRevision{Path: "/ws/node_modules/a", Version: "1.0.0"})

	nested := &PackageRevision{
		Path:       "/ws/app/node_modules/a",
		Version:    "2.0.0",
		Config:     &modconfig.ModuleConfig{},
		Duplicates: []*PackageRevision{{Path: "/elsewhere"}},
	}
	if !AddRevision(results, "a", nested) {
		t.Fatal("AddRevision() with a new path should change results")
	}

	primary := results["a"]
	if primary.Version != "1.0.0" {
		t.Errorf("primary replaced: %+v", primary)
	}
	if len(primary.Duplicates) != 1 {
		t.Fatalf("Duplicates = %d, want 1", len(primary.Duplicates))
	}
	dup := primary.Duplicates[0]
	if dup.Path != nested.Path || dup.Version != "2.0.0" {
		t.Errorf("duplicate = %+v", dup)
	}
	if dup.Config != nil || dup.Duplicates != nil {
		t.Error("duplicate should carry neither Config nor Duplicates")
	}
}

func TestAddRevision_SamePathIsIgnored(t *testing.T) {
	t.Parallel()

	results := SearchResults{}
	AddRevision(results, "a", &PackageRevision{Path: "/real/a"})
	AddRevision(results, "a", &PackageRevision{Path: "/real/b"})

	tests := []string{"/real/a", "/real/b"}
	for _, path := range tests {
		if AddRevision(results, "a", &PackageRevision{Path: types.FilesystemPath(path)}) {
			t.Errorf("re-adding %s should not change results", path)
		}
	}
	if len(results["a"].Duplicates) != 1 {
		t.Errorf("Duplicates = %d, want 1", len(results["a"].Duplicates))
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	results := SearchResults{}
	AddRevision(results, "zeta", &PackageRevision{Path: "/1/zeta", Version: "1"})
	AddRevision(results, "zeta", &PackageRevision{Path: "/2/zeta", Version: "2"})
	AddRevision(results, "alpha", &PackageRevision{Path: "/1/alpha", Version: "1"})
	AddRevision(results, "alpha", &PackageRevision{Path: "/2/alpha", Version: "1"})
	AddRevision(results, "alpha", &PackageRevision{Path: "/3/alpha", Version: "3"})
	AddRevision(results, "clean", &PackageRevision{Path: "/1/clean", Version: "1"})

	report := Verify(results)
	if report.ConflictCount() != 2 || !report.HasConflicts() {
		t.Fatalf("ConflictCount() = %d, want 2", report.ConflictCount())
	}

	names := []string{report.Conflicts[0].Name, report.Conflicts[1].Name}
	if !slices.Equal(names, []string{"alpha", "zeta"}) {
		t.Errorf("conflict names = %v, want sorted [alpha zeta]", names)
	}
	alpha := report.Conflicts[0]
	if alpha.Primary.Path != "/1/alpha" || len(alpha.Duplicates) != 2 || alpha.Duplicates[1].Version != "3" {
		t.Errorf("alpha conflict = %+v", alpha)
	}
}

func TestVerify_NoConflicts(t *testing.T) {
	t.Parallel()

	results := SearchResults{}
	AddRevision(results, "a", &PackageRevision{Path: "/a"})
	report := Verify(results)
	if report.HasConflicts() || report.Conflicts == nil {
		t.Errorf("report = %+v, want empty non-nil conflicts", report)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	results := SearchResults{"c": {}, "@scope/b": {}, "a": {}}
	if got := Names(results); !slices.Equal(got, []string{"@scope/b", "a", "c"}) {
		t.Errorf("Names() = %v", got)
	}
}
