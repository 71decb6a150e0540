// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme  ColorScheme
		want    bool
		wantErr bool
	}{
		{ColorSchemeAuto, true, false},
		{ColorSchemeDark, true, false},
		{ColorSchemeLight, true, false},
		{"", false, true},
		{"neon", false, true},
		{"DARK", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.scheme.IsValid()
			if isValid != tt.want {
				t.Errorf("ColorScheme(%q).IsValid() = %v, want %v", tt.scheme, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("ColorScheme(%q).IsValid() returned no errors, want error", tt.scheme)
				}
				if !errors.Is(errs[0], ErrInvalidColorScheme) {
					t.Errorf("error should wrap ErrInvalidColorScheme, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("ColorScheme(%q).IsValid() returned unexpected errors: %v", tt.scheme, errs)
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		if valid, errs := DefaultConfig().IsValid(); !valid {
			t.Errorf("DefaultConfig().IsValid() = false, errs: %v", errs)
		}
	})

	t.Run("collects every field error", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.SearchPaths = []string{"ok", "  "}
		cfg.IgnorePaths = []string{""}
		cfg.Concurrency = 0
		cfg.MemoMaxEntries = -1
		cfg.UI.ColorScheme = "neon"

		valid, errs := cfg.IsValid()
		if valid {
			t.Fatal("IsValid() = true, want false")
		}
		var cfgErr *InvalidConfigError
		if len(errs) != 1 || !errors.As(errs[0], &cfgErr) {
			t.Fatalf("errs = %v, want one *InvalidConfigError", errs)
		}
		if !errors.Is(errs[0], ErrInvalidConfig) {
			t.Error("error should wrap ErrInvalidConfig")
		}
		if len(cfgErr.FieldErrors) != 5 {
			t.Fatalf("FieldErrors = %v, want 5", cfgErr.FieldErrors)
		}

		var pathErr *InvalidSearchPathError
		if !errors.As(cfgErr.FieldErrors[0], &pathErr) || pathErr.Field != "search_paths" || pathErr.Index != 1 {
			t.Errorf("FieldErrors[0] = %v", cfgErr.FieldErrors[0])
		}
		if !errors.Is(cfgErr.FieldErrors[2], ErrInvalidLimit) || !errors.Is(cfgErr.FieldErrors[3], ErrInvalidLimit) {
			t.Errorf("limit errors = %v, %v", cfgErr.FieldErrors[2], cfgErr.FieldErrors[3])
		}
		if !errors.Is(cfgErr.FieldErrors[4], ErrInvalidUIConfig) {
			t.Errorf("FieldErrors[4] = %v, want UI config error", cfgErr.FieldErrors[4])
		}
	})
}
