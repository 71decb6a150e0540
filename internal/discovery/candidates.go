// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"strings"

	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"

	"github.com/bmatcuk/doublestar/v4"
)

type candidate struct {
	// dir is the package directory as listed, before symlink resolution.
	dir types.FilesystemPath
	// dirName is the path of dir relative to its search path ("a" or
	// "@scope/a"); local modules without package.json are named after it.
	dirName string
	local   bool
}

// listCandidates returns the package directories directly inside searchPath,
// descending one level into "@scope" directories. Hidden entries and entries
// matching an ignore pattern are skipped. Entries come back in lexical order.
func listCandidates(searchPath types.FilesystemPath, ignore []string, local bool) ([]candidate, error) {
	entries, err := os.ReadDir(string(searchPath))
	if err != nil {
		return nil, err
	}

	var out []candidate
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		dir := fspath.JoinStr(searchPath, name)
		if !fspath.IsDir(dir) {
			continue
		}

		if !strings.HasPrefix(name, "@") {
			if !ignored(name, ignore) {
				out = append(out, candidate{dir: dir, dirName: name, local: local})
			}
			continue
		}

		scoped, err := os.ReadDir(string(dir))
		if err != nil {
			continue
		}
		for _, child := range scoped {
			childName := name + "/" + child.Name()
			childDir := fspath.JoinStr(dir, child.Name())
			if strings.HasPrefix(child.Name(), ".") || !fspath.IsDir(childDir) || ignored(childName, ignore) {
				continue
			}
			out = append(out, candidate{dir: childDir, dirName: childName, local: local})
		}
	}
	return out, nil
}

// ignored reports whether rel (slash-separated, relative to the search path)
// matches one of the doublestar patterns. "**/foo" ignores "foo" and
// "@scope/foo".
func ignored(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "./"), "/")
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
