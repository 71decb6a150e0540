// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the user's home directory at dir and clears the variables
// that would override the config location derived from it, so
// config.ConfigDir resolves inside dir on every platform.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
//	    // config.CreateDefaultConfig("") now writes below the temp dir.
//	}
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	var cleanups []func()
	switch runtime.GOOS {
	case "windows":
		cleanups = append(cleanups,
			MustSetenv(t, "USERPROFILE", dir),
			MustUnsetenv(t, "APPDATA"))
	default:
		cleanups = append(cleanups,
			MustSetenv(t, "HOME", dir),
			MustUnsetenv(t, "XDG_CONFIG_HOME"))
	}

	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}
