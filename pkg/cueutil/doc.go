// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared schema-validation pipeline used for every
// file modlink reads: module manifests, package manifests and the user config.
//
//  1. Compile the embedded schema
//  2. Compile the user data (CUE or JSON) and unify it with the schema root
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed module_config_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[ModuleConfig](
//	    schema,
//	    data,
//	    "#ModuleConfig",
//	    cueutil.WithFilename(path),
//	    cueutil.WithFormat(cueutil.FormatJSON),
//	)
package cueutil
