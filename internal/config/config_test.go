// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/modlink/modlink/internal/issue"
	"github.com/modlink/modlink/pkg/types"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if len(cfg.SearchPaths) != 0 || len(cfg.IgnorePaths) != 0 || len(cfg.Exclude) != 0 {
		t.Errorf("expected empty path lists, got %+v", cfg)
	}
	if cfg.NativeModulesDir != DefaultNativeModulesDir {
		t.Errorf("NativeModulesDir = %q, want %q", cfg.NativeModulesDir, DefaultNativeModulesDir)
	}
	if !cfg.OnlyProjectDeps {
		t.Error("expected OnlyProjectDeps to be true by default")
	}
	if cfg.Concurrency != DefaultConcurrency || cfg.MemoMaxEntries != DefaultMemoMaxEntries {
		t.Errorf("limits = %d, %d", cfg.Concurrency, cfg.MemoMaxEntries)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto || cfg.UI.Verbose {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(t.TempDir())})
	if err != nil {
		t.Fatalf("LoadWithSource() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Concurrency != DefaultConcurrency || !cfg.OnlyProjectDeps {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
search_paths: ["../packages", "node_modules"]
exclude: ["expo-dev-client"]
only_project_deps: false
concurrency: 4
ui: {
	verbose: true
}
`)

	cfg, path, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("LoadWithSource() error: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if !slices.Equal(cfg.SearchPaths, []string{"../packages", "node_modules"}) {
		t.Errorf("SearchPaths = %v", cfg.SearchPaths)
	}
	if !slices.Equal(cfg.Exclude, []string{"expo-dev-client"}) {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.OnlyProjectDeps || cfg.Concurrency != 4 || !cfg.UI.Verbose {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MemoMaxEntries != DefaultMemoMaxEntries || cfg.NativeModulesDir != DefaultNativeModulesDir {
		t.Errorf("unset keys should keep defaults, got %+v", cfg)
	}
}

func TestLoad_BaseDirFallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	want := writeConfig(t, base, `native_modules_dir: "native"`)

	cfg, path, err := LoadWithSource(context.Background(), LoadOptions{
		ConfigDirPath: types.FilesystemPath(t.TempDir()),
		BaseDir:       types.FilesystemPath(base),
	})
	if err != nil {
		t.Fatalf("LoadWithSource() error: %v", err)
	}
	if path != want || cfg.NativeModulesDir != "native" {
		t.Errorf("path = %q, NativeModulesDir = %q", path, cfg.NativeModulesDir)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	custom := writeConfig(t, filepath.Join(t.TempDir(), "custom"), `memo_max_entries: 10`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: types.FilesystemPath(custom)})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MemoMaxEntries != 10 {
		t.Errorf("MemoMaxEntries = %d, want 10", cfg.MemoMaxEntries)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing explicit file", missing: true},
		{name: "invalid syntax", content: `concurrency: [`},
		{name: "unknown field", content: `container_engine: "docker"`},
		{name: "out of range", content: `concurrency: 0`},
		{name: "bad color scheme", content: `ui: color_scheme: "neon"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "missing.cue")
			if !tt.missing {
				path = writeConfig(t, t.TempDir(), tt.content)
			}

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: types.FilesystemPath(path)})
			var actionable *issue.ActionableError
			if !errors.As(err, &actionable) {
				t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
			}
			if actionable.IssueID != issue.ConfigLoadFailedId {
				t.Errorf("IssueID = %d, want %d", actionable.IssueID, issue.ConfigLoadFailedId)
			}
		})
	}
}

func TestLoad_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{BaseDir: "   "})
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Errorf("Load() error = %v, want ErrInvalidLoadOptions", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: types.FilesystemPath(t.TempDir())}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SearchPaths = []string{"node_modules", "../shared"}
	cfg.Concurrency = 8
	cfg.UI.ColorScheme = ColorSchemeDark

	content := GenerateCUE(cfg)
	if !strings.Contains(content, "search_paths: [\n\t\"node_modules\",\n\t\"../shared\",\n]") {
		t.Errorf("GenerateCUE() list rendering:\n%s", content)
	}

	dir := t.TempDir()
	writeConfig(t, dir, content)
	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() of generated config error: %v\n%s", err, content)
	}
	if !slices.Equal(loaded.SearchPaths, cfg.SearchPaths) || loaded.Concurrency != 8 || loaded.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", AppName)
	path, err := CreateDefaultConfig(types.FilesystemPath(dir))
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if path != filepath.Join(dir, ConfigFileName+"."+ConfigFileExt) {
		t.Errorf("path = %q", path)
	}

	if err := os.WriteFile(path, []byte("concurrency: 3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := CreateDefaultConfig(types.FilesystemPath(dir)); err != nil {
		t.Fatalf("second CreateDefaultConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "concurrency: 3\n" {
		t.Errorf("existing config was overwritten: %q", data)
	}
}
