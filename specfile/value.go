// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package specfile defines the shader-variant document model and its YAML loader.
//
// A document maps kernel-family names to three sections:
//
//	matmul:
//	  parameter_names_with_default_values:
//	    DTYPE: float
//	    TILE_ROWS: 4
//	    HAS_BIAS: true
//	  generate_variant_forall:
//	    DTYPE:
//	      - VALUE: float
//	        SUFFIX: float
//	      - VALUE: half
//	        SUFFIX: half
//	  shader_variants:
//	    - NAME: matmul_naive
//	    - NAME: addmm_naive
//	      HAS_BIAS: true
//
// Defaults are the closed world of parameter names: variants and axes can only
// override keys declared there. Violations surface as MalformedSpecError at
// load time, before any generation happens.
package specfile

import (
	"fmt"
	"strconv"
)

// Kind discriminates the scalar kinds a parameter value can take.
type Kind int

const (
	KindInvalid Kind = iota

	// KindBool is a boolean parameter, e.g. HAS_BIAS.
	KindBool

	// KindInt is an integer parameter, e.g. TILE_ROWS.
	KindInt

	// KindIdentifier is a bare token substituted verbatim, e.g. a dtype name.
	KindIdentifier
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindIdentifier:
		return "identifier"
	}
	return "invalid"
}

// Value is a tagged scalar: exactly one of boolean, integer or identifier
// token. Using a closed union (instead of `any`) lets the loader reject a
// variant override whose type disagrees with its default before any template
// is touched.
type Value struct {
	kind       Kind
	boolean    bool
	integer    int64
	identifier string
}

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, boolean: v} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, integer: v} }

// Identifier returns an identifier-token Value, substituted verbatim when
// rendering.
func Identifier(token string) Value { return Value{kind: KindIdentifier, identifier: token} }

// Kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool { return v == other }

// String returns the canonical textual form substituted into templates:
// booleans as the shading-language literals "true"/"false", integers in
// decimal, identifier tokens verbatim.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.integer, 10)
	case KindIdentifier:
		return v.identifier
	}
	return "<invalid>"
}

// GoString makes %#v debugging output readable in tests.
func (v Value) GoString() string {
	return fmt.Sprintf("specfile.%s(%s)", v.kind, v)
}
