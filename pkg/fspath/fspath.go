// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath and os stat calls
// that accept and return types.FilesystemPath.
package fspath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modlink/modlink/pkg/types"
)

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...))
}

// JoinStr joins a typed base path with raw string segments such as manifest
// file names or entries returned by os.ReadDir.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p)))
}

// Base wraps filepath.Base for FilesystemPath.
func Base(p types.FilesystemPath) string {
	return filepath.Base(string(p))
}

// Abs wraps filepath.Abs for FilesystemPath.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// AbsFrom resolves p against base when p is relative. Absolute paths are
// returned cleaned.
func AbsFrom(base, p types.FilesystemPath) types.FilesystemPath {
	if filepath.IsAbs(string(p)) {
		return Clean(p)
	}
	return Join(base, p)
}

// Real returns the absolute, symlink-resolved form of p. Two paths that reach
// the same directory through different links have the same Real path.
func Real(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(string(abs))
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", abs, err)
	}
	return types.FilesystemPath(resolved), nil
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// Rel wraps filepath.Rel for FilesystemPath.
func Rel(base, target types.FilesystemPath) (string, error) {
	return filepath.Rel(string(base), string(target))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// IsFile reports whether p exists and is not a directory. Symlinks are followed.
func IsFile(p types.FilesystemPath) bool {
	info, err := os.Stat(string(p))
	return err == nil && !info.IsDir()
}

// IsDir reports whether p exists and is a directory. Symlinks are followed.
func IsDir(p types.FilesystemPath) bool {
	info, err := os.Stat(string(p))
	return err == nil && info.IsDir()
}
