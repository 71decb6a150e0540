// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/modlink/modlink/internal/config"
	"github.com/modlink/modlink/internal/discovery"
	"github.com/modlink/modlink/internal/logging"
	"github.com/modlink/modlink/internal/options"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"

	"github.com/spf13/cobra"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command constructor receives the App and
	// reads configuration and renders diagnostics through it.
	App struct {
		Config      ConfigProvider
		Diagnostics DiagnosticRenderer
		stdout      io.Writer
		stderr      io.Writer
		cwd         types.FilesystemPath

		// Set by the persistent flags and setup.
		verbose    bool
		configPath string
		cfg        *config.Config
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      ConfigProvider
		Diagnostics DiagnosticRenderer
		Stdout      io.Writer
		Stderr      io.Writer
		// Cwd replaces the process working directory when set.
		Cwd types.FilesystemPath
	}

	// DiagnosticRenderer renders structured diagnostics.
	DiagnosticRenderer interface {
		Render(ctx context.Context, diags []discovery.Diagnostic, stderr io.Writer)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	defaultDiagnosticRenderer struct{}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = &defaultDiagnosticRenderer{}
	}

	return &App{
		Config:      deps.Config,
		Diagnostics: deps.Diagnostics,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		cwd:         deps.Cwd,
	}, nil
}

// setup loads the configuration and installs the logger. It runs before every
// command.
func (a *App) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, diags := loadConfigWithFallback(ctx, a.Config, a.configFile(), a.workingDir())
	if a.configPath != "" && len(diags) > 0 {
		return a.serviceError(diags[0].Cause)
	}
	a.cfg = cfg

	silent, _ := cmd.Flags().GetBool(options.FlagSilent)
	logging.Install(a.stderr, logging.FromFlags(a.verbose || cfg.UI.Verbose, silent))

	if !silent {
		a.Diagnostics.Render(ctx, diags, a.stderr)
	}
	return nil
}

// workingDir returns the injected working directory or the process one.
func (a *App) workingDir() types.FilesystemPath {
	if a.cwd != "" {
		return a.cwd
	}
	if cwd, err := fspath.Abs("."); err == nil {
		return cwd
	}
	return ""
}

// configFile returns the --config path resolved against the working directory,
// or "" when the flag is unset.
func (a *App) configFile() string {
	if a.configPath == "" {
		return ""
	}
	return string(fspath.AbsFrom(a.workingDir(), types.FilesystemPath(a.configPath)))
}

// effectiveConfig returns the loaded configuration, or the defaults before
// setup ran.
func (a *App) effectiveConfig() *config.Config {
	if a.cfg == nil {
		return config.DefaultConfig()
	}
	return a.cfg
}

// glamourStyle maps the configured color scheme to a glamour style name.
func (a *App) glamourStyle() string {
	switch scheme := a.effectiveConfig().UI.ColorScheme; scheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		return scheme.String()
	default:
		return "auto"
	}
}

// serviceError prepares err for rendering by the root command.
func (a *App) serviceError(err error) error {
	return asServiceError(err, a.verbose)
}

// loadConfigWithFallback loads configuration via the provider. On failure it
// returns defaults with a diagnostic so callers stay operational. A config
// file the user pointed at explicitly is reported with error severity.
func loadConfigWithFallback(ctx context.Context, provider ConfigProvider, configPath string, baseDir types.FilesystemPath) (*config.Config, []discovery.Diagnostic) {
	cfg, err := provider.Load(ctx, config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(configPath),
		BaseDir:        baseDir,
	})
	if err == nil {
		return cfg, nil
	}

	if configPath != "" {
		return config.DefaultConfig(), []discovery.Diagnostic{
			discovery.NewDiagnosticWithCause(discovery.SeverityError, discovery.CodeConfigLoadFailed,
				fmt.Sprintf("failed to load config from %s: %v", configPath, err), configPath, err),
		}
	}

	// The loader only fails on files that exist, so anything but a missing
	// directory is a broken file the user should fix.
	severity := discovery.SeverityError
	if errors.Is(err, os.ErrNotExist) {
		severity = discovery.SeverityWarning
	}
	return config.DefaultConfig(), []discovery.Diagnostic{
		discovery.NewDiagnosticWithCause(severity, discovery.CodeConfigLoadFailed,
			fmt.Sprintf("failed to load config, using defaults: %v", err), "", err),
	}
}

// Render writes structured diagnostics to stderr with lipgloss styling.
func (r *defaultDiagnosticRenderer) Render(_ context.Context, diags []discovery.Diagnostic, stderr io.Writer) {
	for _, diag := range diags {
		prefix := WarningStyle.Render("warning")
		if diag.Severity == discovery.SeverityError {
			prefix = ErrorStyle.Render("error")
		}

		prefix += " " + codeTagStyle.Render("["+string(diag.Code)+"]")

		if diag.Path != "" {
			_, _ = fmt.Fprintf(stderr, "%s: %s (%s)\n", prefix, diag.Message, pathStyle.Render(diag.Path))
			continue
		}

		_, _ = fmt.Fprintf(stderr, "%s: %s\n", prefix, diag.Message)
	}
}
