// SPDX-License-Identifier: MPL-2.0

// Package searchpath derives the directories scanned for native modules.
package searchpath

import (
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"
)

const (
	// PackageManifest is the dependency manifest filename.
	PackageManifest = "package.json"

	// InstallDir is the directory a package manager installs dependencies into.
	InstallDir = "node_modules"
)

// Resolve returns the search paths for a command invocation.
//
// Explicit paths are made absolute relative to cwd and returned in order.
// Without explicit paths, Resolve walks upward from cwd: every ancestor
// directory holding a package.json contributes its node_modules directory,
// and the walk continues from that manifest's parent. The result is empty
// when no manifest is found. Resolve never fails.
func Resolve(cwd types.FilesystemPath, explicit []string) []types.FilesystemPath {
	if len(explicit) > 0 {
		paths := make([]types.FilesystemPath, 0, len(explicit))
		for _, p := range explicit {
			paths = append(paths, fspath.AbsFrom(cwd, types.FilesystemPath(p)))
		}
		return paths
	}

	var paths []types.FilesystemPath
	dir, err := fspath.Abs(cwd)
	if err != nil {
		dir = fspath.Clean(cwd)
	}
	for {
		manifest, ok := FindUp(dir, PackageManifest)
		if !ok {
			return paths
		}
		root := fspath.Dir(manifest)
		paths = append(paths, fspath.JoinStr(root, InstallDir))

		parent := fspath.Dir(root)
		if parent == root {
			return paths
		}
		dir = parent
	}
}

// FindUp looks for name in dir and each of its ancestors, returning the first
// match.
func FindUp(dir types.FilesystemPath, name string) (types.FilesystemPath, bool) {
	current := fspath.Clean(dir)
	for {
		candidate := fspath.JoinStr(current, name)
		if fspath.IsFile(candidate) {
			return candidate, true
		}
		parent := fspath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// ResolvePackage finds the package.json of the installed package name as seen
// from dir, checking <ancestor>/node_modules/<name> for dir and each of its
// ancestors. Directories that are themselves named node_modules are not
// searched. The returned path has symlinks resolved when possible.
func ResolvePackage(name string, dir types.FilesystemPath) (types.FilesystemPath, bool) {
	current := fspath.Clean(dir)
	for {
		if fspath.Base(current) != InstallDir {
			candidate := fspath.JoinStr(current, InstallDir, name, PackageManifest)
			if fspath.IsFile(candidate) {
				if resolved, err := fspath.Real(candidate); err == nil {
					return resolved, true
				}
				return candidate, true
			}
		}
		parent := fspath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
