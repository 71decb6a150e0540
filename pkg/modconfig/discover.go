// SPDX-License-Identifier: MPL-2.0

package modconfig

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modlink/modlink/internal/memo"
	"github.com/modlink/modlink/pkg/fspath"
	"github.com/modlink/modlink/pkg/types"
)

// ErrConfigParse is the sentinel error wrapped by ConfigParseError.
var ErrConfigParse = errors.New("module manifest could not be parsed")

var discover = memo.Memoize(discoverUncached)

type (
	// ConfigParseError records a candidate manifest that exists but could not
	// be read or parsed. Discovery moves on to the next candidate.
	ConfigParseError struct {
		Path  types.FilesystemPath
		Cause error
	}

	// Discovery is the outcome of looking for a module manifest in one
	// directory.
	Discovery struct {
		// Dir is the absolute directory that was searched.
		Dir types.FilesystemPath
		// Config is the parsed manifest, or nil when no candidate was usable.
		Config *ModuleConfig
		// Problems lists candidates that were present but failed to parse, in
		// priority order.
		Problems []*ConfigParseError
	}
)

// Error implements the error interface.
func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("failed to parse module manifest %s: %v", e.Path, e.Cause)
}

// Unwrap returns ErrConfigParse for errors.Is() compatibility.
func (e *ConfigParseError) Unwrap() []error { return []error{ErrConfigParse, e.Cause} }

// Found reports whether a usable manifest was found.
func (d *Discovery) Found() bool { return d != nil && d.Config != nil }

// Discover finds the highest-priority module manifest in dir. Candidates are
// tried in ManifestFilenames order; one that exists but fails to parse is
// recorded in Problems and the next candidate is tried. The result is
// memoized by absolute directory inside a memo session.
//
// The only error Discover returns is a context error.
func Discover(ctx context.Context, dir types.FilesystemPath) (*Discovery, error) {
	abs, err := fspath.Abs(dir)
	if err != nil {
		abs = fspath.Clean(dir)
	}
	return discover(ctx, string(abs))
}

func discoverUncached(ctx context.Context, dir string) (*Discovery, error) {
	d := &Discovery{Dir: types.FilesystemPath(dir)}
	for _, name := range ManifestFilenames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := fspath.JoinStr(d.Dir, name)
		info, err := os.Stat(string(path))
		if err != nil || info.IsDir() {
			continue
		}

		cfg, err := ParseModuleConfig(path)
		if err != nil {
			d.Problems = append(d.Problems, &ConfigParseError{Path: path, Cause: err})
			continue
		}
		d.Config = cfg
		return d, nil
	}
	return d, nil
}
