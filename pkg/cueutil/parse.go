// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// DefaultMaxFileSize bounds how many bytes a single input file may have.
// Manifests are small; anything past this is almost certainly not a manifest.
const DefaultMaxFileSize int64 = 5 << 20

const (
	// FormatCUE parses input as CUE source.
	FormatCUE Format = iota
	// FormatJSON parses input as strict JSON before unifying it with the schema.
	// A leading UTF-8 byte order mark is ignored.
	FormatJSON
)

var utf8BOM = []byte("\xef\xbb\xbf")

type (
	// Format selects the syntax of the user data.
	Format int

	// Option configures ParseAndDecode.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
		format      Format
	}

	// ParseResult contains the result of a successful parse.
	ParseResult[T any] struct {
		// Value is the decoded Go struct.
		Value *T
		// Unified is the unified CUE value, kept for callers that need to look up
		// fields the Go struct does not model.
		Unified cue.Value
	}
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
		format:      FormatCUE,
	}
}

// WithFilename sets the file name used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithConcrete controls whether validation requires every value to be concrete.
// Config files leave most fields unset and use WithConcrete(false).
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

// WithFormat sets the syntax of the user data.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// ParseAndDecode validates data against schemaPath inside schema and decodes the
// unified value into T. Errors carry the file name and a JSON-path to the
// offending field.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	filename := o.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, o.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	var userValue cue.Value
	switch o.format {
	case FormatJSON:
		expr, err := cuejson.Extract(filename, bytes.TrimPrefix(data, utf8BOM))
		if err != nil {
			return nil, FormatError(err, filename)
		}
		userValue = ctx.BuildExpr(expr, cue.Filename(filename))
	default:
		userValue = ctx.CompileBytes(data, cue.Filename(filename))
	}
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// CheckFileSize returns an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), maxSize)
	}
	return nil
}
