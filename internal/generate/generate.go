// SPDX-License-Identifier: MPL-2.0

// Package generate renders the native source files that register resolved
// modules with the host app: the Android package list (Java) and the Apple
// modules provider (Swift).
package generate

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"

	"github.com/modlink/modlink/pkg/descriptor"
)

const (
	// PackageListClass is the generated Android class name.
	PackageListClass = "ExpoModulesPackageList"
	// ModulesProviderClass is the generated Apple class name.
	ModulesProviderClass = "ExpoModulesProvider"

	// DefaultNamespace is the Java package of the generated package list.
	DefaultNamespace = "expo.modules"

	debugConfiguration = "EXPO_CONFIGURATION_DEBUG"
)

var (
	// ErrNamespaceRequired is returned when the package list has no Java package.
	ErrNamespaceRequired = errors.New("java namespace is required")
	// ErrWrongPlatform is returned when a descriptor does not match the generator.
	ErrWrongPlatform = errors.New("descriptor platform does not match generator")

	//go:embed templates/*.tmpl
	templateFS embed.FS

	templates = template.Must(template.New("generate").Funcs(template.FuncMap{
		"javaList":    javaList,
		"swiftReturn": swiftReturn,
	}).ParseFS(templateFS, "templates/*.tmpl"))

	swiftStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

type (
	// PackageListOptions configures the Android package list.
	PackageListOptions struct {
		// Namespace is the Java package the class is generated into.
		Namespace string
		// Packages limits generation to these package names when not empty.
		Packages []string
	}

	// ModulesProviderOptions configures the Apple modules provider.
	ModulesProviderOptions struct {
		// ClassName overrides ModulesProviderClass.
		ClassName string
		// Entitlements are embedded as the app code sign entitlements.
		Entitlements map[string][]string
		// Packages limits generation to these package names when not empty.
		Packages []string
	}

	packageListData struct {
		Namespace string
		ClassName string
		Packages  []string
		Modules   []string
	}

	// split holds the entries compiled into every configuration and the
	// ones compiled into debug builds only.
	split struct {
		Release []string
		Debug   []string
	}

	modulesProviderData struct {
		ClassName    string
		Imports      []string
		DebugImports []string
		Modules      split
		Subscribers  split
		Handlers     split
		Entitlements string
	}
)

// WritePackageList renders the Android package list for modules to w.
// Non-Android descriptors are rejected.
func WritePackageList(w io.Writer, modules []descriptor.ModuleDescriptor, opts PackageListOptions) error {
	if opts.Namespace == "" {
		return ErrNamespaceRequired
	}

	data := packageListData{Namespace: opts.Namespace, ClassName: PackageListClass}
	for _, m := range FilterPackages(modules, opts.Packages) {
		if m.Platform != descriptor.PlatformAndroid || m.Android == nil {
			return fmt.Errorf("%w: %s is %s, want android", ErrWrongPlatform, m.PackageName(), m.Platform)
		}
		data.Packages = append(data.Packages, m.Android.Packages...)
		for _, p := range m.Android.Projects {
			data.Modules = append(data.Modules, p.Modules...)
		}
	}

	return execute(w, PackageListClass+".java.tmpl", data)
}

// WriteModulesProvider renders the Apple modules provider for modules to w.
// Modules flagged debug-only are wrapped in EXPO_CONFIGURATION_DEBUG guards.
func WriteModulesProvider(w io.Writer, modules []descriptor.ModuleDescriptor, opts ModulesProviderOptions) error {
	entitlements, err := encodeEntitlements(opts.Entitlements)
	if err != nil {
		return err
	}

	data := modulesProviderData{ClassName: opts.ClassName, Entitlements: entitlements}
	if data.ClassName == "" {
		data.ClassName = ModulesProviderClass
	}

	for _, m := range FilterPackages(modules, opts.Packages) {
		if m.Platform != descriptor.PlatformApple || m.Apple == nil {
			return fmt.Errorf("%w: %s is %s, want apple", ErrWrongPlatform, m.PackageName(), m.Platform)
		}
		a := m.Apple

		// Modules without any Swift entries do not need their pods imported.
		if len(a.Modules) == 0 && len(a.AppDelegateSubscribers) == 0 && len(a.ReactDelegateHandlers) == 0 {
			continue
		}

		imports := &data.Imports
		if a.DebugOnly {
			imports = &data.DebugImports
		}
		*imports = append(*imports, a.SwiftModuleNames...)

		for _, module := range a.Modules {
			data.Modules.add(module+".self", a.DebugOnly)
		}
		for _, subscriber := range a.AppDelegateSubscribers {
			data.Subscribers.add(subscriber+".self", a.DebugOnly)
		}
		for _, handler := range a.ReactDelegateHandlers {
			data.Handlers.add(fmt.Sprintf("(packageName: %q, handler: %s.self)", a.PackageName, handler), a.DebugOnly)
		}
	}

	data.Imports = dedupe(data.Imports)
	data.DebugImports = slices.DeleteFunc(dedupe(data.DebugImports), func(name string) bool {
		return slices.Contains(data.Imports, name)
	})

	return execute(w, ModulesProviderClass+".swift.tmpl", data)
}

// FilterPackages keeps the modules whose package name is in names. An empty
// names list keeps everything.
func FilterPackages(modules []descriptor.ModuleDescriptor, names []string) []descriptor.ModuleDescriptor {
	if len(names) == 0 {
		return modules
	}
	return slices.DeleteFunc(slices.Clone(modules), func(m descriptor.ModuleDescriptor) bool {
		return !slices.Contains(names, m.PackageName())
	})
}

func execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (s *split) add(entry string, debugOnly bool) {
	if debugOnly {
		s.Debug = append(s.Debug, entry)
		return
	}
	s.Release = append(s.Release, entry)
}

// encodeEntitlements renders entitlements as compact JSON with sorted keys,
// escaped for a Swift string literal.
func encodeEntitlements(entitlements map[string][]string) (string, error) {
	if len(entitlements) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(entitlements)
	if err != nil {
		return "", fmt.Errorf("encoding entitlements: %w", err)
	}
	return swiftStringEscaper.Replace(string(data)), nil
}

func javaList(items []string, format string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "      " + fmt.Sprintf(format, item)
	}
	return strings.Join(lines, ",\n")
}

func swiftReturn(s split) string {
	if len(s.Debug) == 0 {
		return swiftArray(s.Release)
	}
	all := append(slices.Clone(s.Release), s.Debug...)
	return strings.Join([]string{
		"    #if " + debugConfiguration,
		swiftArray(all),
		"    #else",
		swiftArray(s.Release),
		"    #endif",
	}, "\n")
}

func swiftArray(items []string) string {
	if len(items) == 0 {
		return "    return []"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "      " + item
	}
	return "    return [\n" + strings.Join(lines, ",\n") + "\n    ]"
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
