package specfile

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matmulDoc = `
matmul:
  parameter_names_with_default_values:
    DTYPE: float
    MAT2_IS_TRANSPOSED: false
    BATCH_MODE: false
    TILE_ROWS: 4
    HAS_BIAS: true
  generate_variant_forall:
    TILE_ROWS:
      - VALUE: 4
        SUFFIX: tile_row_4
      - VALUE: 2
        SUFFIX: tile_row_2
    DTYPE:
      - VALUE: float
        SUFFIX: float
      - VALUE: half
        SUFFIX: half
  shader_variants:
    - NAME: addmm_optimized
    - NAME: matmul_optimized
      HAS_BIAS: false
`

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(matmulDoc))
	require.NoError(t, err)
	require.Len(t, spec.Families, 1)
	family := spec.Families[0]
	assert.Equal(t, "matmul", family.Name)
	assert.Equal(t, "matmul", family.TemplateID())

	assert.Equal(t, ParameterSet{
		"DTYPE":              Identifier("float"),
		"MAT2_IS_TRANSPOSED": Bool(false),
		"BATCH_MODE":         Bool(false),
		"TILE_ROWS":          Int(4),
		"HAS_BIAS":           Bool(true),
	}, family.Defaults)

	// Axis declaration order and entry order must survive loading.
	require.Len(t, family.Axes, 2)
	assert.Equal(t, "TILE_ROWS", family.Axes[0].Parameter)
	assert.Equal(t, []AxisEntry{
		{Value: Int(4), Suffix: "tile_row_4"},
		{Value: Int(2), Suffix: "tile_row_2"},
	}, family.Axes[0].Entries)
	assert.Equal(t, "DTYPE", family.Axes[1].Parameter)
	assert.Equal(t, []AxisEntry{
		{Value: Identifier("float"), Suffix: "float"},
		{Value: Identifier("half"), Suffix: "half"},
	}, family.Axes[1].Entries)

	require.Len(t, family.Variants, 2)
	assert.Equal(t, "addmm_optimized", family.Variants[0].Name)
	assert.Empty(t, family.Variants[0].Overrides)
	assert.Equal(t, "matmul_optimized", family.Variants[1].Name)
	assert.Equal(t, ParameterSet{"HAS_BIAS": Bool(false)}, family.Variants[1].Overrides)
}

func TestParseMultipleFamilies(t *testing.T) {
	doc := `
conv2d:
  parameter_names_with_default_values:
    DTYPE: float
  shader_variants:
    - NAME: conv2d_naive
matmul:
  parameter_names_with_default_values:
    DTYPE: float
  shader_variants:
    - NAME: matmul_naive
`
	spec, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, spec.Families, 2)
	// Document order, not lexicographic order.
	assert.Equal(t, "conv2d", spec.Families[0].Name)
	assert.Equal(t, "matmul", spec.Families[1].Name)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "override references unknown parameter",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - NAME: matmul_optimized
      HAS_BIA: false
`,
			want: "HAS_BIA",
		},
		{
			name: "axis references unknown parameter",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  generate_variant_forall:
    DTYPE:
      - VALUE: float
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "DTYPE",
		},
		{
			name: "override type disagrees with default",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - NAME: matmul_optimized
      HAS_BIAS: 3
`,
			want: "int",
		},
		{
			name: "axis entry type disagrees with default",
			doc: `
matmul:
  parameter_names_with_default_values:
    TILE_ROWS: 4
  generate_variant_forall:
    TILE_ROWS:
      - VALUE: four
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "identifier",
		},
		{
			name: "float parameter value",
			doc: `
matmul:
  parameter_names_with_default_values:
    SCALE: 1.5
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "unsupported value",
		},
		{
			name: "missing defaults section",
			doc: `
matmul:
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "parameter_names_with_default_values",
		},
		{
			name: "missing variants section",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
`,
			want: "shader_variants",
		},
		{
			name: "variant without a name",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - HAS_BIAS: false
`,
			want: "NAME",
		},
		{
			name: "unrecognized section",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - NAME: matmul_optimized
  shader_variant: []
`,
			want: "unrecognized section",
		},
		{
			name: "empty axis entry list",
			doc: `
matmul:
  parameter_names_with_default_values:
    DTYPE: float
  generate_variant_forall:
    DTYPE: []
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "non-empty",
		},
		{
			name: "axis entry missing VALUE",
			doc: `
matmul:
  parameter_names_with_default_values:
    DTYPE: float
  generate_variant_forall:
    DTYPE:
      - SUFFIX: float
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "VALUE",
		},
		{
			name: "duplicate kernel family",
			doc: `
matmul:
  parameter_names_with_default_values:
    DTYPE: float
  shader_variants:
    - NAME: gemm_naive
matmul:
  parameter_names_with_default_values:
    DTYPE: half
  shader_variants:
    - NAME: gemm_naive
`,
			want: "duplicate kernel family",
		},
		{
			name: "duplicate override in one variant",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - NAME: matmul_optimized
      HAS_BIAS: false
      HAS_BIAS: true
`,
			want: "duplicate override",
		},
		{
			name: "duplicate NAME in one variant",
			doc: `
matmul:
  parameter_names_with_default_values:
    HAS_BIAS: true
  shader_variants:
    - NAME: matmul_optimized
      NAME: matmul_other
`,
			want: "duplicate NAME",
		},
		{
			name: "duplicate VALUE in one axis entry",
			doc: `
matmul:
  parameter_names_with_default_values:
    TILE_ROWS: 4
  generate_variant_forall:
    TILE_ROWS:
      - VALUE: 4
        VALUE: 2
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "duplicate VALUE",
		},
		{
			name: "duplicate default",
			doc: `
matmul:
  parameter_names_with_default_values:
    DTYPE: float
    DTYPE: half
  shader_variants:
    - NAME: matmul_optimized
`,
			want: "", // yaml itself or the loader may report it; either way it fails.
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec, err := Parse([]byte(test.doc))
			require.Error(t, err)
			assert.Nil(t, spec)
			if test.want != "" {
				var malformed *MalformedSpecError
				require.ErrorAs(t, err, &malformed)
				assert.Contains(t, malformed.Error(), test.want)
				assert.Equal(t, "matmul", malformed.Family)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/no_such_document.yaml")
	require.Error(t, err)
	var malformed *MalformedSpecError
	assert.False(t, errors.As(err, &malformed), "I/O failures are not spec errors")
}
