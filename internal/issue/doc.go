// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown help pages
// rendered for the terminal when a command fails.
package issue
