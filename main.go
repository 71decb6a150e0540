// SPDX-License-Identifier: MPL-2.0

// Command modlink finds, verifies and links the native modules of a
// JavaScript workspace.
package main

import cmd "github.com/modlink/modlink/cmd/modlink"

func main() {
	cmd.Execute()
}
