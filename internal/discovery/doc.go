// SPDX-License-Identifier: MPL-2.0

// Package discovery finds the native modules installed in a workspace.
//
// FindModules ties the pipeline together: it lists candidate package
// directories in every search path, discovers and parses their manifests in
// parallel under a concurrency limit, registers the results in scan order,
// and finally restricts them to the root project's dependency graph when
// more than one search path was scanned.
//
// File organization:
//   - diagnostic.go: Diagnostic, Severity and DiagnosticCode
//   - discovery.go: Options, Result and FindModules
//   - candidates.go: listing package directories inside a search path
package discovery
