// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modlink CLI commands.
//
// Every command is built by a newXxxCommand(app *App) constructor. The linking
// commands (search, verify, resolve, the generators and react-native-config)
// share one pipeline: load the user config, merge it with the project's
// package.json and the flags into options, discover modules, then resolve or
// report them.
package cmd
