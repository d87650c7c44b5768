// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize caps the documents accepted for decoding (5MB).
// Manifests and mixin configs come from third-party unit archives.
const DefaultMaxFileSize int64 = 5 << 20

type (
	// ParseResult contains the result of a successful decode.
	ParseResult[T any] struct {
		// Value is the decoded Go value.
		Value *T
		// Unified is the unified CUE value, kept for callers that need to
		// read fields the Go type does not model.
		Unified cue.Value
	}

	// Option adjusts a single decode.
	Option func(*parseOptions)

	parseOptions struct {
		maxFileSize int64
		filename    string
	}
)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *parseOptions) { o.maxFileSize = size }
}

// WithFilename names the document in error messages. Unnamed documents are
// reported as "<input>".
func WithFilename(name string) Option {
	return func(o *parseOptions) { o.filename = name }
}

// ParseAndDecode compiles schema, unifies data with the definition at
// schemaPath (e.g. "#Manifest"), validates the result and decodes it into T.
// Errors from user data are formatted with their CUE path; errors from the
// schema itself are reported as internal errors.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	unified, err := Unify(schema, data, schemaPath, opts...)
	if err != nil {
		return nil, err
	}

	options := resolveOptions(opts)

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, options.filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// Unify performs the compile/unify/validate steps of ParseAndDecode and
// returns the unified value without decoding it.
func Unify(schema, data []byte, schemaPath string, opts ...Option) (cue.Value, error) {
	options := resolveOptions(opts)

	if err := CheckFileSize(data, options.maxFileSize, options.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(options.filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), options.filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, FormatError(err, options.filename)
	}

	return unified, nil
}

func resolveOptions(opts []Option) parseOptions {
	options := parseOptions{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.filename == "" {
		options.filename = "<input>"
	}
	return options
}
