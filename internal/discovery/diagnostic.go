// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeSearchPathUnreadable marks a search path that could not be listed.
	CodeSearchPathUnreadable DiagnosticCode = "search_path_unreadable"
	// CodeModuleConfigParseFailed marks a module manifest that failed to parse.
	CodeModuleConfigParseFailed DiagnosticCode = "module_config_parse_failed"
	// CodePackageManifestUnreadable marks a module whose package.json could
	// not be read; the module is skipped.
	CodePackageManifestUnreadable DiagnosticCode = "package_manifest_unreadable"
	// CodePackageNameInvalid marks a module whose declared name is unusable.
	CodePackageNameInvalid DiagnosticCode = "package_name_invalid"
	// CodeModuleResolutionFailed marks a dependency the graph walk skipped.
	CodeModuleResolutionFailed DiagnosticCode = "module_resolution_failed"
	// CodeConfigLoadFailed marks a user config file that could not be loaded;
	// defaults apply instead.
	CodeConfigLoadFailed DiagnosticCode = "config_load_failed"
)

var (
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid severity")
	// ErrInvalidDiagnosticCode is returned when a DiagnosticCode is not recognized.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")

	validCodes = []DiagnosticCode{
		CodeSearchPathUnreadable,
		CodeModuleConfigParseFailed,
		CodePackageManifestUnreadable,
		CodePackageNameInvalid,
		CodeModuleResolutionFailed,
		CodeConfigLoadFailed,
	}
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic is a structured, non-fatal discovery problem returned to the
	// caller rather than printed, so the CLI decides how to render it.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity `json:"severity"`
		// Code is a machine-readable identifier.
		Code DiagnosticCode `json:"code"`
		// Message is the human-readable description.
		Message string `json:"message"`
		// Path is the file or directory involved (optional).
		Path string `json:"path,omitempty"`
		// Cause is the underlying error (optional).
		Cause error `json:"-"`
	}
)

// NewDiagnostic creates a diagnostic without a path or cause.
func NewDiagnostic(severity Severity, code DiagnosticCode, message string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message}
}

// NewDiagnosticWithCause creates a diagnostic carrying a path and cause.
func NewDiagnosticWithCause(severity Severity, code DiagnosticCode, message, path string, cause error) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Message: message, Path: path, Cause: cause}
}

// String returns "severity [code] message (path)".
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	if d.Path != "" {
		s += " (" + d.Path + ")"
	}
	return s
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
	}
}

// String returns the severity name.
func (s Severity) String() string { return string(s) }

// IsValid reports whether c is a known diagnostic code.
func (c DiagnosticCode) IsValid() (bool, []error) {
	if slices.Contains(validCodes, c) {
		return true, nil
	}
	return false, []error{fmt.Errorf("%w: %q", ErrInvalidDiagnosticCode, string(c))}
}

// String returns the code.
func (c DiagnosticCode) String() string { return string(c) }
