// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation. They
// cover the hot paths of a linking run:
//   - module manifest and CUE config parsing
//   - discovery over a large node_modules tree
//   - platform resolution and source generation
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
