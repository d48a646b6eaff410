// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package specfile

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// ParameterSet maps parameter names to values. Names are unique within a set.
type ParameterSet map[string]Value

// Clone returns a shallow copy -- Values are immutable, so a shallow copy is
// a deep copy.
func (ps ParameterSet) Clone() ParameterSet {
	return maps.Clone(ps)
}

// Equal reports whether both sets hold exactly the same keys and values.
func (ps ParameterSet) Equal(other ParameterSet) bool {
	return maps.Equal(ps, other)
}

// SortedNames returns the parameter names in lexicographic order, for
// deterministic iteration and error messages.
func (ps ParameterSet) SortedNames() []string {
	names := maps.Keys(ps)
	slices.Sort(names)
	return names
}

// AxisEntry is one candidate of a variation axis: the value the axis-controlled
// parameter takes, and an optional fragment appended to the variant name.
type AxisEntry struct {
	Value Value

	// Suffix is the name fragment this entry contributes. Empty means the
	// entry contributes nothing to the synthesized name.
	Suffix string
}

// Axis is a declared dimension of variation: one parameter and its ordered
// candidate entries. Multiple axes expand as an independent cross product.
type Axis struct {
	Parameter string
	Entries   []AxisEntry
}

// Variant is a named shader variant: a base name plus a partial parameter set
// overriding the family defaults. Overrides never introduce new keys.
type Variant struct {
	Name      string
	Overrides ParameterSet
}

// Family is one parameterized kernel: the document-level defaults, the
// variation axes in declaration order, and the declared variants in
// declaration order. The family name doubles as the template identifier.
type Family struct {
	Name     string
	Defaults ParameterSet
	Axes     []Axis
	Variants []Variant
}

// TemplateID returns the identifier of the kernel source template this family
// renders against. By convention it is the family name itself.
func (f *Family) TemplateID() string { return f.Name }

// Spec is one loaded document: kernel families in declaration order.
// Declaration order affects emission order only, never resolved values.
type Spec struct {
	Families []Family
}

// MalformedSpecError reports a structural or reference error in the input
// document: an override or axis naming a parameter absent from the defaults,
// a value whose type disagrees with its default, or a malformed section.
type MalformedSpecError struct {
	// Family is the kernel-family name, when known.
	Family string

	// Line is the 1-based line in the document, 0 when not applicable.
	Line int

	// Detail describes the offending construct.
	Detail string
}

// Error implements the error interface.
func (e *MalformedSpecError) Error() string {
	msg := "malformed spec"
	if e.Family != "" {
		msg += fmt.Sprintf(" for kernel family %q", e.Family)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg + ": " + e.Detail
}

func malformedf(family string, line int, format string, args ...any) error {
	return &MalformedSpecError{Family: family, Line: line, Detail: fmt.Sprintf(format, args...)}
}
