// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package generator wires the pipeline together: document -> axis expansion ->
// variant resolution -> name synthesis -> template rendering -> source files.
//
// A generation run is all-or-nothing: every unit is validated and rendered in
// memory first, and only a fully successful run writes any file. Failed runs
// leave the output directory untouched, so regeneration is idempotent.
package generator

import (
	"os"
	"path/filepath"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/shadergen/internal/renderpool"
	"github.com/gomlx/shadergen/render"
	"github.com/gomlx/shadergen/specfile"
	"github.com/gomlx/shadergen/variants"
)

const (
	// TemplateExt is the extension of kernel source templates, looked up by
	// kernel-family name.
	TemplateExt = ".glslt"

	// SourceExt is the extension of emitted kernel sources.
	SourceExt = ".glsl"
)

// TemplateSet holds the loaded templates, keyed by kernel-family name.
type TemplateSet map[string]*render.Template

// LoadTemplates loads `<family>.glslt` from dir for every family the spec
// declares. A family without a template file is an error: the document and
// the template directory are expected to move in lockstep.
func LoadTemplates(dir string, spec *specfile.Spec) (TemplateSet, error) {
	templates := make(TemplateSet, len(spec.Families))
	for _, family := range spec.Families {
		id := family.TemplateID()
		template, err := render.LoadTemplate(id, filepath.Join(dir, id+TemplateExt))
		if err != nil {
			return nil, err
		}
		templates[id] = template
	}
	return templates, nil
}

// PlannedUnit is one shader to emit, paired with the template it renders
// against.
type PlannedUnit struct {
	variants.Unit
	Template *render.Template
}

// Plan is the deterministic, validated list of units one run will emit, in
// emission order: family-declaration order, then variant-declaration order,
// then axis-expansion order.
type Plan struct {
	Units []PlannedUnit
}

// NewPlan expands and validates the whole spec without rendering anything.
// After NewPlan succeeds, the only errors left are template-side:
// unresolved placeholders and I/O.
func NewPlan(spec *specfile.Spec, templates TemplateSet) (*Plan, error) {
	plan := &Plan{}
	// Shader names are the output filenames, so uniqueness must hold across
	// all families, not only inside each one (PlanFamily checks the latter).
	firstFamily := make(map[string]variants.Unit)
	for ii := range spec.Families {
		family := &spec.Families[ii]
		template, found := templates[family.TemplateID()]
		if !found {
			return nil, errors.Errorf("no template loaded for kernel family %q", family.Name)
		}
		units, err := variants.PlanFamily(family)
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("kernel family %q: %d variants x axis expansion -> %d shaders",
			family.Name, len(family.Variants), len(units))
		for _, unit := range units {
			// Cross-family recurrences always collide (different templates);
			// the resolved-params comparison additionally catches same-named
			// families reaching here, e.g. a Spec built programmatically.
			if prior, found := firstFamily[unit.Name]; found &&
				(prior.Family != unit.Family || !prior.Params.Equal(unit.Params)) {
				return nil, &variants.NameCollisionError{
					Name:     unit.Name,
					Families: [2]string{prior.Family, unit.Family},
					Variants: [2]string{prior.Variant, unit.Variant},
				}
			}
			plan.Units = append(plan.Units, PlannedUnit{Unit: unit, Template: template})
			if _, found := firstFamily[unit.Name]; !found {
				firstFamily[unit.Name] = unit
			}
		}
	}
	return plan, nil
}

// Options configure one generation run.
type Options struct {
	// OutputDir receives one `<name>.glsl` per emitted unit.
	OutputDir string

	// Jobs bounds render parallelism; <= 0 selects runtime.NumCPU().
	Jobs int

	// Manifest additionally emits a CMake source listing (see ManifestFileName)
	// naming every generated file per kernel family.
	Manifest bool
}

// Result summarizes a successful run.
type Result struct {
	// Files lists the written paths in emission order, each exactly once.
	Files []string

	// TotalBytes written across Files.
	TotalBytes int64
}

// Generate runs the full pipeline for an already-loaded spec and template set.
// On any error no file is written and the output directory is left untouched.
func Generate(spec *specfile.Spec, templates TemplateSet, opts Options) (*Result, error) {
	plan, err := NewPlan(spec, templates)
	if err != nil {
		return nil, err
	}

	// Render everything in memory before touching the filesystem. Renders are
	// independent, so they fan out over the pool; rendered[ii] keeps plan
	// order, which keeps output deterministic whatever the completion order.
	rendered := make([]string, len(plan.Units))
	pool := renderpool.New(opts.Jobs)
	err = pool.Run(len(plan.Units), func(ii int) error {
		unit := &plan.Units[ii]
		text, err := unit.Template.Render(unit.Params)
		if err != nil {
			return errors.WithMessagef(err, "rendering shader %q (variant %q of kernel family %q)",
				unit.Name, unit.Variant, unit.Family)
		}
		rendered[ii] = text
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %q", opts.OutputDir)
	}
	result := &Result{}
	written := make(map[string]bool, len(plan.Units))
	// Write failures mid-run (disk full, permissions) must not leave partial
	// output behind: remove whatever this run already wrote.
	removePartialOutput := func() {
		for _, path := range result.Files {
			if removeErr := os.Remove(path); removeErr != nil {
				klog.Errorf("failed to remove partial output %q: %v", path, removeErr)
			}
		}
	}
	for ii := range plan.Units {
		unit := &plan.Units[ii]
		if written[unit.Name] {
			// Same name, identical parameters (the plan rejected everything
			// else): the same shader planned twice renders byte-identical, so
			// the first write already covers it.
			continue
		}
		written[unit.Name] = true
		path := filepath.Join(opts.OutputDir, unit.Name+SourceExt)
		if err := os.WriteFile(path, []byte(rendered[ii]), 0644); err != nil {
			removePartialOutput()
			return nil, errors.Wrapf(err, "failed to write shader %q", path)
		}
		klog.V(2).Infof("wrote %s (%d bytes)", path, len(rendered[ii]))
		result.Files = append(result.Files, path)
		result.TotalBytes += int64(len(rendered[ii]))
	}

	if opts.Manifest {
		manifestPath, manifestBytes, err := writeManifest(opts.OutputDir, plan)
		if err != nil {
			removePartialOutput()
			return nil, err
		}
		result.Files = append(result.Files, manifestPath)
		result.TotalBytes += manifestBytes
	}
	return result, nil
}

// MustGenerate is Generate panicking on error, for build scripts that have no
// error path anyway.
func MustGenerate(spec *specfile.Spec, templates TemplateSet, opts Options) *Result {
	result, err := Generate(spec, templates, opts)
	if err != nil {
		exceptions.Panicf("shadergen: %+v", err)
	}
	return result
}
