// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// shadergen expands a declarative shader-variant document (YAML) plus kernel
// source templates into one specialized kernel source file per variant.
//
// Typical build-time invocation:
//
//	shadergen -spec ops/matmul.yaml -templates ops/templates -out gen/shaders
//
// Use -list to inspect the planned variant matrix without writing anything.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/shadergen/generator"
	"github.com/gomlx/shadergen/specfile"
)

var (
	flagSpec      = flag.String("spec", "", "Path to the shader-variant YAML document. Required.")
	flagTemplates = flag.String("templates", ".", "Directory holding one <kernel_family>.glslt template per family in the document.")
	flagOut       = flag.String("out", ".", "Output directory for the generated kernel sources.")
	flagJobs      = flag.Int("jobs", 0, "Render parallelism. <= 0 uses the number of CPUs.")
	flagManifest  = flag.Bool("manifest", true,
		fmt.Sprintf("Also emit %s, the CMake listing of generated sources per kernel family.", generator.ManifestFileName))
	flagList = flag.Bool("list", false, "Print the planned variant matrix and exit without writing any file.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagSpec == "" {
		klog.Errorf("Missing -spec document to generate from. See 'shadergen -help'.")
		os.Exit(1)
	}

	spec := must.M1(specfile.Load(*flagSpec))
	templates := must.M1(generator.LoadTemplates(*flagTemplates, spec))
	if *flagList {
		listPlan(spec, templates)
		return
	}

	result := must.M1(generator.Generate(spec, templates, generator.Options{
		OutputDir: *flagOut,
		Jobs:      *flagJobs,
		Manifest:  *flagManifest,
	}))
	fmt.Printf("✅ shadergen:\twrote %d files (%s) to %s\n",
		len(result.Files), humanize.Bytes(uint64(result.TotalBytes)), *flagOut)
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

func listPlan(spec *specfile.Spec, templates generator.TemplateSet) {
	plan := must.M1(generator.NewPlan(spec, templates))
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 1 {
				return headerRowStyle
			}
			if row%2 == 0 {
				return evenRowStyle
			}
			return oddRowStyle
		})
	table.Row("Shader", "Family", "Variant", "Parameters")
	for ii := range plan.Units {
		unit := &plan.Units[ii]
		table.Row(unit.Name, unit.Family, unit.Variant, formatParams(unit.Params))
	}
	fmt.Println(table.Render())
	fmt.Printf("%d shaders planned from %d kernel families.\n", len(plan.Units), len(spec.Families))
}

func formatParams(params specfile.ParameterSet) string {
	parts := make([]string, 0, len(params))
	for _, name := range params.SortedNames() {
		parts = append(parts, fmt.Sprintf("%s=%s", name, params[name]))
	}
	return strings.Join(parts, " ")
}
