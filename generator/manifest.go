// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package generator

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkg/errors"
)

// ManifestFileName is the CMake source listing emitted next to the generated
// shaders when Options.Manifest is set. The build includes it to learn the
// generated set without globbing.
const ManifestFileName = "shadergen_sources.cmake"

var manifestTemplate = template.Must(template.New("manifest").Parse(
	`# Generated by shadergen. DO NOT EDIT.
{{- range .}}
set({{.Family}}_GENERATED_SOURCES
{{- range .Files}}
    "${SHADERGEN_OUTPUT_DIR}/{{.}}"
{{- end}}
)
{{- end}}
`))

type manifestFamily struct {
	Family string
	Files  []string
}

// writeManifest renders the source listing for every family in the plan, in
// emission order, and writes it under dir. Returns the path and byte count.
func writeManifest(dir string, plan *Plan) (string, int64, error) {
	var families []manifestFamily
	seen := make(map[string]bool, len(plan.Units))
	for ii := range plan.Units {
		unit := &plan.Units[ii]
		if seen[unit.Name] {
			continue
		}
		seen[unit.Name] = true
		if len(families) == 0 || families[len(families)-1].Family != unit.Family {
			families = append(families, manifestFamily{Family: unit.Family})
		}
		last := &families[len(families)-1]
		last.Files = append(last.Files, unit.Name+SourceExt)
	}

	var buf bytes.Buffer
	if err := manifestTemplate.Execute(&buf, families); err != nil {
		return "", 0, errors.Wrap(err, "failed to render source manifest")
	}
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", 0, errors.Wrapf(err, "failed to write source manifest %q", path)
	}
	return path, int64(buf.Len()), nil
}
