// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultNativeModulesDir is the project-relative directory of local modules.
	DefaultNativeModulesDir = "modules"
	// DefaultConcurrency bounds parallel manifest reads.
	DefaultConcurrency = 20
	// DefaultMemoMaxEntries caps each memoized lookup cache.
	DefaultMemoMaxEntries = 5000
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidSearchPath is returned when a configured path is blank.
	ErrInvalidSearchPath = errors.New("invalid search path")
	// ErrInvalidLimit is returned when a numeric limit is below one.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidSearchPathError is returned for a blank entry in search_paths or
	// ignore_paths.
	InvalidSearchPathError struct {
		Field string
		Index int
	}

	// InvalidLimitError is returned when concurrency or memo_max_entries is
	// below one.
	InvalidLimitError struct {
		Field string
		Value int
	}

	// InvalidUIConfigError is returned when UIConfig has invalid fields.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the user configuration.
	Config struct {
		// SearchPaths are scanned when no paths are given on the command line.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// IgnorePaths are package directory patterns skipped during scanning.
		IgnorePaths []string `json:"ignore_paths" mapstructure:"ignore_paths"`
		// Exclude lists package names that are never linked.
		Exclude []string `json:"exclude" mapstructure:"exclude"`
		// NativeModulesDir is the project-relative directory of local modules.
		NativeModulesDir string `json:"native_modules_dir" mapstructure:"native_modules_dir"`
		// OnlyProjectDeps restricts linking to the project's dependency graph.
		OnlyProjectDeps bool `json:"only_project_deps" mapstructure:"only_project_deps"`
		// Concurrency bounds parallel manifest reads.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
		// MemoMaxEntries caps each memoized lookup cache.
		MemoMaxEntries int `json:"memo_max_entries" mapstructure:"memo_max_entries"`
		// UI holds terminal output preferences.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		// ColorScheme sets the color scheme: "auto", "dark" or "light".
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPaths:      []string{},
		IgnorePaths:      []string{},
		Exclude:          []string{},
		NativeModulesDir: DefaultNativeModulesDir,
		OnlyProjectDeps:  true,
		Concurrency:      DefaultConcurrency,
		MemoMaxEntries:   DefaultMemoMaxEntries,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// IsValid returns whether the Config has valid fields. All field errors are
// collected into a single InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	errs = append(errs, blankPaths("search_paths", c.SearchPaths)...)
	errs = append(errs, blankPaths("ignore_paths", c.IgnorePaths)...)
	if c.Concurrency < 1 {
		errs = append(errs, &InvalidLimitError{Field: "concurrency", Value: c.Concurrency})
	}
	if c.MemoMaxEntries < 1 {
		errs = append(errs, &InvalidLimitError{Field: "memo_max_entries", Value: c.MemoMaxEntries})
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func blankPaths(field string, paths []string) []error {
	var errs []error
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, &InvalidSearchPathError{Field: field, Index: i})
		}
	}
	return errs
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface.
func (e *InvalidSearchPathError) Error() string {
	return fmt.Sprintf("%s[%d]: path must not be blank", e.Field, e.Index)
}

// Unwrap returns ErrInvalidSearchPath for errors.Is() compatibility.
func (e *InvalidSearchPathError) Unwrap() error { return ErrInvalidSearchPath }

// Error implements the error interface.
func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("%s must be at least 1, got %d", e.Field, e.Value)
}

// Unwrap returns ErrInvalidLimit for errors.Is() compatibility.
func (e *InvalidLimitError) Unwrap() error { return ErrInvalidLimit }
