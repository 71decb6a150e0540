// SPDX-License-Identifier: MPL-2.0

// Package modconfig discovers and parses the manifests that describe a
// package's native contributions.
//
// A package directory may hold a module manifest (expo-module.config.json, or
// the older unimodule.json) next to its package.json. Discover picks the
// highest-priority module manifest present; LoadPackage reads package.json.
// Both validate their input against the CUE schemas embedded in this package
// and are memoized per path when called inside a memo session.
package modconfig
