// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package specfile

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Document section names and entry keys, as they appear in the YAML.
const (
	sectionDefaults = "parameter_names_with_default_values"
	sectionForall   = "generate_variant_forall"
	sectionVariants = "shader_variants"

	variantNameKey = "NAME"
	entryValueKey  = "VALUE"
	entrySuffixKey = "SUFFIX"
)

// Load reads and parses a shader-variant document from the given path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read spec document %q", path)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "in spec document %q", path)
	}
	return spec, nil
}

// Parse parses a shader-variant document. It uses the yaml.Node API instead
// of plain unmarshalling because declaration order -- of families, axes, axis
// entries and variants -- is significant for emission order and suffix
// concatenation, and Go maps would lose it.
//
// All structural validation happens here, eagerly: after Parse succeeds, every
// override and axis is known to shadow a default of the same kind.
func Parse(data []byte) (*Spec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse spec document as YAML")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 {
		return nil, malformedf("", root.Line, "document must hold exactly one YAML document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, malformedf("", top.Line, "top level must be a mapping of kernel-family names")
	}

	spec := &Spec{}
	seen := make(map[string]bool, len(top.Content)/2)
	for ii := 0; ii < len(top.Content); ii += 2 {
		keyNode, valueNode := top.Content[ii], top.Content[ii+1]
		// YAML mappings with repeated keys survive the Node API, and a split
		// family would bypass the name-uniqueness check across its halves.
		if seen[keyNode.Value] {
			return nil, malformedf(keyNode.Value, keyNode.Line, "duplicate kernel family %q", keyNode.Value)
		}
		seen[keyNode.Value] = true
		family, err := parseFamily(keyNode.Value, valueNode)
		if err != nil {
			return nil, err
		}
		spec.Families = append(spec.Families, *family)
	}
	return spec, nil
}

func parseFamily(name string, node *yaml.Node) (*Family, error) {
	if node.Kind != yaml.MappingNode {
		return nil, malformedf(name, node.Line, "kernel family must be a mapping of sections")
	}
	family := &Family{Name: name}
	var forallNode, variantsNode *yaml.Node
	for ii := 0; ii < len(node.Content); ii += 2 {
		keyNode, valueNode := node.Content[ii], node.Content[ii+1]
		switch keyNode.Value {
		case sectionDefaults:
			defaults, err := parseDefaults(name, valueNode)
			if err != nil {
				return nil, err
			}
			family.Defaults = defaults
		case sectionForall:
			forallNode = valueNode
		case sectionVariants:
			variantsNode = valueNode
		default:
			return nil, malformedf(name, keyNode.Line, "unrecognized section %q (expected %q, %q or %q)",
				keyNode.Value, sectionDefaults, sectionForall, sectionVariants)
		}
	}
	if family.Defaults == nil {
		return nil, malformedf(name, node.Line, "missing required section %q", sectionDefaults)
	}
	if variantsNode == nil {
		return nil, malformedf(name, node.Line, "missing required section %q", sectionVariants)
	}

	// Axes and variants are validated against the defaults, so those are
	// parsed last, whatever the section order in the document.
	if forallNode != nil {
		axes, err := parseAxes(name, family.Defaults, forallNode)
		if err != nil {
			return nil, err
		}
		family.Axes = axes
	}
	variants, err := parseVariants(name, family.Defaults, variantsNode)
	if err != nil {
		return nil, err
	}
	family.Variants = variants
	return family, nil
}

func parseDefaults(family string, node *yaml.Node) (ParameterSet, error) {
	if node.Kind != yaml.MappingNode {
		return nil, malformedf(family, node.Line, "%s must be a mapping of parameter name to value", sectionDefaults)
	}
	defaults := make(ParameterSet, len(node.Content)/2)
	for ii := 0; ii < len(node.Content); ii += 2 {
		keyNode, valueNode := node.Content[ii], node.Content[ii+1]
		if _, found := defaults[keyNode.Value]; found {
			return nil, malformedf(family, keyNode.Line, "duplicate default for parameter %q", keyNode.Value)
		}
		value, err := parseValue(family, valueNode)
		if err != nil {
			return nil, err
		}
		defaults[keyNode.Value] = value
	}
	if len(defaults) == 0 {
		return nil, malformedf(family, node.Line, "%s declares no parameters", sectionDefaults)
	}
	return defaults, nil
}

func parseAxes(family string, defaults ParameterSet, node *yaml.Node) ([]Axis, error) {
	if node.Kind != yaml.MappingNode {
		return nil, malformedf(family, node.Line, "%s must be a mapping of parameter name to entry list", sectionForall)
	}
	var axes []Axis
	for ii := 0; ii < len(node.Content); ii += 2 {
		keyNode, valueNode := node.Content[ii], node.Content[ii+1]
		axis, err := parseAxis(family, defaults, keyNode.Value, keyNode.Line, valueNode)
		if err != nil {
			return nil, err
		}
		axes = append(axes, *axis)
	}
	return axes, nil
}

func parseAxis(family string, defaults ParameterSet, parameter string, line int, node *yaml.Node) (*Axis, error) {
	defaultValue, found := defaults[parameter]
	if !found {
		return nil, malformedf(family, line, "axis parameter %q is not declared in %s", parameter, sectionDefaults)
	}
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, malformedf(family, node.Line, "axis %q must be a non-empty list of {%s, %s?} entries",
			parameter, entryValueKey, entrySuffixKey)
	}
	axis := &Axis{Parameter: parameter, Entries: make([]AxisEntry, 0, len(node.Content))}
	anySuffix := false
	for _, entryNode := range node.Content {
		if entryNode.Kind != yaml.MappingNode {
			return nil, malformedf(family, entryNode.Line, "axis %q entries must be mappings", parameter)
		}
		var entry AxisEntry
		hasValue, hasSuffix := false, false
		for ii := 0; ii < len(entryNode.Content); ii += 2 {
			keyNode, valueNode := entryNode.Content[ii], entryNode.Content[ii+1]
			switch keyNode.Value {
			case entryValueKey:
				if hasValue {
					return nil, malformedf(family, keyNode.Line, "axis %q: duplicate %s in entry", parameter, entryValueKey)
				}
				value, err := parseValue(family, valueNode)
				if err != nil {
					return nil, err
				}
				entry.Value = value
				hasValue = true
			case entrySuffixKey:
				if hasSuffix {
					return nil, malformedf(family, keyNode.Line, "axis %q: duplicate %s in entry", parameter, entrySuffixKey)
				}
				if valueNode.Kind != yaml.ScalarNode {
					return nil, malformedf(family, valueNode.Line, "axis %q: %s must be a scalar", parameter, entrySuffixKey)
				}
				entry.Suffix = valueNode.Value
				hasSuffix = true
			default:
				return nil, malformedf(family, keyNode.Line, "axis %q: unrecognized entry key %q", parameter, keyNode.Value)
			}
		}
		if !hasValue {
			return nil, malformedf(family, entryNode.Line, "axis %q: entry is missing %s", parameter, entryValueKey)
		}
		if entry.Value.Kind() != defaultValue.Kind() {
			return nil, malformedf(family, entryNode.Line, "axis %q: entry value %s is %s, but the default is %s",
				parameter, entry.Value, entry.Value.Kind(), defaultValue.Kind())
		}
		anySuffix = anySuffix || entry.Suffix != ""
		axis.Entries = append(axis.Entries, entry)
	}
	if !anySuffix && len(axis.Entries) > 1 {
		// Legal, but every expanded unit will carry the same name fragment for
		// this axis. Name-collision detection catches it later with a hard
		// error; the warning makes the root cause findable.
		klog.Warningf("kernel family %q: axis %q expands %d entries but declares no %s -- "+
			"expanded variants will not be distinguishable by name",
			family, parameter, len(axis.Entries), entrySuffixKey)
	}
	return axis, nil
}

func parseVariants(family string, defaults ParameterSet, node *yaml.Node) ([]Variant, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, malformedf(family, node.Line, "%s must be a list of variant declarations", sectionVariants)
	}
	var variants []Variant
	for _, variantNode := range node.Content {
		if variantNode.Kind != yaml.MappingNode {
			return nil, malformedf(family, variantNode.Line, "variant declarations must be mappings")
		}
		variant := Variant{Overrides: make(ParameterSet)}
		for ii := 0; ii < len(variantNode.Content); ii += 2 {
			keyNode, valueNode := variantNode.Content[ii], variantNode.Content[ii+1]
			if keyNode.Value == variantNameKey {
				if variant.Name != "" {
					return nil, malformedf(family, keyNode.Line, "duplicate %s in variant declaration", variantNameKey)
				}
				if valueNode.Kind != yaml.ScalarNode || valueNode.Value == "" {
					return nil, malformedf(family, valueNode.Line, "variant %s must be a non-empty scalar", variantNameKey)
				}
				variant.Name = valueNode.Value
				continue
			}
			if _, found := variant.Overrides[keyNode.Value]; found {
				return nil, malformedf(family, keyNode.Line, "duplicate override %q in variant declaration", keyNode.Value)
			}
			defaultValue, found := defaults[keyNode.Value]
			if !found {
				return nil, malformedf(family, keyNode.Line,
					"variant override %q is not declared in %s -- overrides cannot introduce new parameters",
					keyNode.Value, sectionDefaults)
			}
			value, err := parseValue(family, valueNode)
			if err != nil {
				return nil, err
			}
			if value.Kind() != defaultValue.Kind() {
				return nil, malformedf(family, valueNode.Line, "variant override %q is %s, but the default is %s",
					keyNode.Value, value.Kind(), defaultValue.Kind())
			}
			variant.Overrides[keyNode.Value] = value
		}
		if variant.Name == "" {
			return nil, malformedf(family, variantNode.Line, "variant declaration is missing %s", variantNameKey)
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

// parseValue converts a YAML scalar into a tagged Value. Only booleans,
// integers and plain strings (identifier tokens) are parameter values; floats,
// nulls and nested structures are rejected here rather than surfacing as
// garbage in rendered kernel source.
func parseValue(family string, node *yaml.Node) (Value, error) {
	if node.Kind != yaml.ScalarNode {
		return Value{}, malformedf(family, node.Line, "parameter values must be scalars")
	}
	switch node.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return Value{}, malformedf(family, node.Line, "invalid boolean %q", node.Value)
		}
		return Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return Value{}, malformedf(family, node.Line, "invalid integer %q", node.Value)
		}
		return Int(i), nil
	case "!!str":
		return Identifier(node.Value), nil
	}
	return Value{}, malformedf(family, node.Line, "unsupported value %q (%s): expected boolean, integer or identifier token",
		node.Value, node.Tag)
}
