// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPackageName is the sentinel error wrapped by InvalidPackageNameError.
var ErrInvalidPackageName = errors.New("invalid package name")

type (
	// PackageName is the name a package declares in its manifest, optionally
	// scoped ("@scope/name").
	PackageName string

	// InvalidPackageNameError is returned when a PackageName cannot be used as
	// a node_modules directory name.
	InvalidPackageNameError struct {
		Value  PackageName
		Reason string
	}
)

// String returns the string representation of the PackageName.
func (n PackageName) String() string { return string(n) }

// Scope returns the scope part of a scoped name without the leading "@",
// or "" for unscoped names.
func (n PackageName) Scope() string {
	s := string(n)
	if !strings.HasPrefix(s, "@") {
		return ""
	}
	scope, _, found := strings.Cut(s[1:], "/")
	if !found {
		return ""
	}
	return scope
}

// Unscoped returns the name without its scope.
func (n PackageName) Unscoped() string {
	s := string(n)
	if !strings.HasPrefix(s, "@") {
		return s
	}
	_, rest, found := strings.Cut(s, "/")
	if !found {
		return s
	}
	return rest
}

// Validate checks that the name is non-empty, does not traverse directories and,
// when scoped, has exactly one scope segment.
func (n PackageName) Validate() error {
	s := string(n)
	switch {
	case strings.TrimSpace(s) == "":
		return &InvalidPackageNameError{Value: n, Reason: "must be non-empty"}
	case strings.HasPrefix(s, ".") || strings.Contains(s, ".."):
		return &InvalidPackageNameError{Value: n, Reason: "must not start with '.' or contain '..'"}
	case strings.ContainsAny(s, `\`):
		return &InvalidPackageNameError{Value: n, Reason: "must not contain backslashes"}
	}

	if strings.HasPrefix(s, "@") {
		scope, rest, found := strings.Cut(s[1:], "/")
		if !found || scope == "" || rest == "" || strings.Contains(rest, "/") {
			return &InvalidPackageNameError{Value: n, Reason: "scoped names must look like @scope/name"}
		}
		return nil
	}

	if strings.Contains(s, "/") {
		return &InvalidPackageNameError{Value: n, Reason: "unscoped names must not contain '/'"}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidPackageNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidPackageName for errors.Is() compatibility.
func (e *InvalidPackageNameError) Unwrap() error { return ErrInvalidPackageName }
