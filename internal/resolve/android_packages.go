// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/modlink/modlink/pkg/types"
)

// ClassPattern matches a class declaration in Java and Kotlin sources. The
// first submatch of each expression is the class name.
type ClassPattern struct {
	Java   *regexp.Regexp
	Kotlin *regexp.Regexp
}

var (
	// BasePackageClass matches module packages extending BasePackage.
	BasePackageClass = ClassPattern{
		Java:   regexp.MustCompile(`\bclass\s+(\w+)\s+extends\s+(?:[\w.]+\.)?BasePackage\b`),
		Kotlin: regexp.MustCompile(`\bclass\s+(\w+)(?:\s*\(\s*\))?\s*:\s*(?:[\w.]+\.)?BasePackage\s*\(`),
	}

	// ReactPackageClass matches React Native packages.
	ReactPackageClass = ClassPattern{
		Java:   regexp.MustCompile(`\bclass\s+(\w+)\s+(?:extends|implements)\s+(?:[\w.]+\.)?\w*ReactPackage\b`),
		Kotlin: regexp.MustCompile(`\bclass\s+(\w+)(?:\s*\(\s*\))?\s*:\s*(?:[\w.]+\.)?\w*ReactPackage\b`),
	}

	sourcePackageDecl = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)`)
)

// FindClasses returns the fully qualified names of the classes matching
// pattern in the *Package.java and *Package.kt files under <sourceDir>/src,
// sorted. Build output and unreadable files are skipped.
func FindClasses(sourceDir types.FilesystemPath, pattern ClassPattern) []string {
	root := filepath.Join(string(sourceDir), "src")
	var classes []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == "build" {
				return fs.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if (ext != ".java" && ext != ".kt") || !strings.HasSuffix(strings.TrimSuffix(d.Name(), ext), "Package") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if class := pattern.match(string(data), ext); class != "" {
			classes = append(classes, class)
		}
		return nil
	})
	slices.Sort(classes)
	return slices.Compact(classes)
}

func (p ClassPattern) match(source, ext string) string {
	re := p.Java
	if ext == ".kt" {
		re = p.Kotlin
	}
	class := re.FindStringSubmatch(source)
	if class == nil {
		return ""
	}
	pkg := sourcePackageDecl.FindStringSubmatch(source)
	if pkg == nil {
		return class[1]
	}
	return pkg[1] + "." + class[1]
}
