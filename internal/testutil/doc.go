// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that change process state: the
// working directory, environment variables and the per-user config location.
// Every helper returns a cleanup function restoring the previous state, so
// tests using them must not run in parallel.
package testutil
