// SPDX-License-Identifier: MPL-2.0

//go:build property

package registry

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/modlink/modlink/pkg/types"
)

func TestRegistryProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Each hit encodes a name index (h%4) and a path index (h/4); the small
	// ranges force collisions.
	hitsGen := gen.SliceOf(gen.IntRange(0, 19))

	properties.Property("first hit is primary and every other path is recorded once", prop.ForAll(
		func(hits []int) bool {
			results := SearchResults{}
			first := map[string]types.FilesystemPath{}
			paths := map[string]map[types.FilesystemPath]bool{}

			for _, h := range hits {
				name := fmt.Sprintf("pkg-%d", h%4)
				path := types.FilesystemPath(fmt.Sprintf("/ws/%d/%s", h/4, name))
				if _, ok := first[name]; !ok {
					first[name] = path
					paths[name] = map[types.FilesystemPath]bool{}
				}
				paths[name][path] = true
				AddRevision(results, name, &PackageRevision{Path: path})
			}

			if len(results) != len(first) {
				return false
			}
			for name, rev := range results {
				if rev.Path != first[name] {
					return false
				}
				if len(rev.Duplicates) != len(paths[name])-1 {
					return false
				}
				seen := map[types.FilesystemPath]bool{rev.Path: true}
				for _, dup := range rev.Duplicates {
					if seen[dup.Path] {
						return false
					}
					seen[dup.Path] = true
				}
			}
			return Verify(results).ConflictCount() == countConflicts(paths)
		},
		hitsGen,
	))

	properties.TestingRun(t)
}

func countConflicts(paths map[string]map[types.FilesystemPath]bool) int {
	n := 0
	for _, set := range paths {
		if len(set) > 1 {
			n++
		}
	}
	return n
}
