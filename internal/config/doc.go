// SPDX-License-Identifier: MPL-2.0

// Package config handles the modlink user configuration using Viper with CUE
// as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/modlink/config.cue on Linux
// (~/.config when unset), ~/Library/Application Support/modlink/config.cue
// on macOS and %APPDATA%\modlink\config.cue on Windows. A config.cue in the
// working directory is used when the platform file is missing.
//
// The file is validated against the embedded config_schema.cue before its
// values are merged over the defaults. The values feed the linking options
// as the lowest-priority layer after the built-in defaults.
package config
