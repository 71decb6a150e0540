// SPDX-License-Identifier: MPL-2.0

// Package workspacetest builds throwaway package workspaces on disk for tests:
// a root package.json, installed packages under node_modules, and the module
// manifests that mark some of them as native modules.
package workspacetest
