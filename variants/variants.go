// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package variants expands a kernel family into its concrete shader variants:
// the cross product of the declared variation axes, layered over each declared
// variant's overrides, layered over the family defaults.
package variants

import (
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/gomlx/shadergen/specfile"
)

// Assignment is one point of the axis cross product: values for exactly the
// axis-controlled parameters, plus the name fragment those entries contribute.
type Assignment struct {
	Params specfile.ParameterSet

	// Suffix concatenates the non-empty entry suffixes in axis-declaration
	// order, joined by "_". Empty when no selected entry declares one.
	Suffix string
}

// Expand computes the ordered cross product of the given axes. It is a pure
// function returning a finite slice -- callers can range over it repeatedly
// (e.g. once for validation, once per parallel render) with no hidden state.
//
// The last-declared axis iterates fastest, matching nested-loop semantics.
// With no axes the result is the identity: a single empty assignment.
func Expand(axes []specfile.Axis) []Assignment {
	assignments := []Assignment{{Params: specfile.ParameterSet{}}}
	for _, axis := range axes {
		next := make([]Assignment, 0, len(assignments)*len(axis.Entries))
		for _, assignment := range assignments {
			for _, entry := range axis.Entries {
				params := assignment.Params.Clone()
				params[axis.Parameter] = entry.Value
				next = append(next, Assignment{
					Params: params,
					Suffix: joinSuffix(assignment.Suffix, entry.Suffix),
				})
			}
		}
		assignments = next
	}
	return assignments
}

func joinSuffix(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "_" + b
}

// Resolve merges defaults, the variant's overrides and the axis assignment,
// in that precedence order (rightmost wins on key collision). The result's
// key domain is always exactly the defaults' key domain: the loader rejects
// overrides and axes naming unknown parameters.
func Resolve(defaults specfile.ParameterSet, variant specfile.Variant, assignment Assignment) specfile.ParameterSet {
	resolved := defaults.Clone()
	maps.Copy(resolved, variant.Overrides)
	maps.Copy(resolved, assignment.Params)
	return resolved
}

// SynthesizeName derives the output identifier for one (variant, assignment)
// pair: the variant's base name, plus "_" and the assignment's suffix token
// when the token is non-empty.
func SynthesizeName(variantName string, assignment Assignment) string {
	if assignment.Suffix == "" {
		return variantName
	}
	return variantName + "_" + assignment.Suffix
}

// Unit is one planned shader to emit: a synthesized unique name and the fully
// resolved parameter set it renders with.
type Unit struct {
	// Name identifies the emitted source unit; it is unique within the family
	// and becomes the output filename stem.
	Name string

	// Family and Variant record provenance for error reporting and logs.
	Family  string
	Variant string

	// Params is the resolved parameter set: defaults, overridden by the
	// variant, overridden by the axis assignment.
	Params specfile.ParameterSet
}

// NameCollisionError reports two units synthesizing the same output
// identifier. Typical causes: an axis with multiple entries where none
// declares a SUFFIX, or two variants whose base names and suffixes do not
// distinguish them. Names are unique across the full emitted set, so units of
// different kernel families collide too.
type NameCollisionError struct {
	Name     string
	Families [2]string
	Variants [2]string
}

// Error implements the error interface.
func (e *NameCollisionError) Error() string {
	if e.Families[0] == e.Families[1] {
		return fmt.Sprintf("kernel family %q: variants %q and %q both synthesize shader name %q with different parameters",
			e.Families[0], e.Variants[0], e.Variants[1], e.Name)
	}
	return fmt.Sprintf("kernel families %q and %q both synthesize shader name %q (variants %q and %q)",
		e.Families[0], e.Families[1], e.Name, e.Variants[0], e.Variants[1])
}

// PlanFamily expands, resolves and names every (variant, assignment) pair of
// the family, in emission order: variant-declaration order outermost, axis
// expansion order (last axis fastest) innermost.
//
// It fails with *NameCollisionError if two units with different resolved
// parameters share a name. Two units with the same name and identical
// parameters are the same shader planned twice -- variants exist precisely to
// pre-seed common combinations, so that is allowed and renders byte-identical
// output.
func PlanFamily(family *specfile.Family) ([]Unit, error) {
	assignments := Expand(family.Axes)
	units := make([]Unit, 0, len(family.Variants)*len(assignments))
	firstWithName := make(map[string]int, cap(units))
	for _, variant := range family.Variants {
		for _, assignment := range assignments {
			unit := Unit{
				Name:    SynthesizeName(variant.Name, assignment),
				Family:  family.Name,
				Variant: variant.Name,
				Params:  Resolve(family.Defaults, variant, assignment),
			}
			if ii, found := firstWithName[unit.Name]; found {
				if !units[ii].Params.Equal(unit.Params) {
					return nil, &NameCollisionError{
						Name:     unit.Name,
						Families: [2]string{family.Name, family.Name},
						Variants: [2]string{units[ii].Variant, unit.Variant},
					}
				}
			} else {
				firstWithName[unit.Name] = len(units)
			}
			units = append(units, unit)
		}
	}
	return units, nil
}
