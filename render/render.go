// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package render substitutes resolved parameter sets into kernel source
// templates.
//
// Templates are plain shader source with shell-style placeholders: `${DTYPE}`
// or `$DTYPE`, one per parameter name; `$$` escapes a literal dollar sign.
// This deliberately is not text/template: GLSL braces everywhere make Go
// template actions unreadable in kernel source, and downstream shading-language
// tooling already understands the `${...}` convention in template files.
package render

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/gomlx/shadergen/specfile"
)

// placeholderRE matches, in order of alternation: an escaped dollar, a braced
// placeholder and a bare placeholder.
var placeholderRE = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Template is one kernel source template, addressed by the kernel-family name.
// It is immutable after creation: Render never mutates it, so one Template is
// safe to render from many goroutines.
type Template struct {
	id   string
	text string
}

// New creates a template from in-memory source. The id is the kernel-family
// name the template belongs to.
func New(id, text string) *Template {
	return &Template{id: id, text: text}
}

// LoadTemplate reads a template file for the given kernel-family id.
func LoadTemplate(id, path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read template %q for kernel family %q", path, id)
	}
	return New(id, string(data)), nil
}

// ID returns the kernel-family name this template renders for.
func (t *Template) ID() string { return t.id }

// Placeholders returns the sorted set of distinct parameter names the template
// references.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	for _, match := range placeholderRE.FindAllStringSubmatch(t.text, -1) {
		if name := matchName(match); name != "" {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// UnresolvedPlaceholderError reports template placeholders naming parameters
// absent from the resolved set. The loader's closed-world check makes this
// near-unreachable for well-paired documents and templates, but templates load
// independently of documents, so it is checked on every render.
type UnresolvedPlaceholderError struct {
	TemplateID string

	// Placeholders holds the distinct unresolved names, sorted.
	Placeholders []string
}

// Error implements the error interface.
func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("template %q references parameters not in the resolved set: %s",
		e.TemplateID, strings.Join(e.Placeholders, ", "))
}

// Render substitutes every placeholder with the canonical textual form of its
// resolved value: identifier tokens verbatim, integers in decimal, booleans as
// the shading-language literals "true"/"false".
//
// It fails with *UnresolvedPlaceholderError if the template references any
// parameter missing from params; in that case no partial output is returned.
func (t *Template) Render(params specfile.ParameterSet) (string, error) {
	var missing []string
	rendered := placeholderRE.ReplaceAllStringFunc(t.text, func(match string) string {
		if match == "$$" {
			return "$"
		}
		name := matchName(placeholderRE.FindStringSubmatch(match))
		value, found := params[name]
		if !found {
			missing = append(missing, name)
			return match
		}
		return value.String()
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", &UnresolvedPlaceholderError{
			TemplateID:   t.id,
			Placeholders: slices.Compact(missing),
		}
	}
	return rendered, nil
}

// matchName extracts the parameter name from a placeholderRE submatch,
// whichever alternative matched. Empty for the `$$` escape.
func matchName(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}
