package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/shadergen/specfile"
)

func TestRender(t *testing.T) {
	template := New("matmul", `#version 450
#define T ${DTYPE}
#define TILE_ROWS $TILE_ROWS
const bool transposed = ${MAT2_IS_TRANSPOSED};
// Cost: $$0.00 per ${DTYPE} op.
`)
	params := specfile.ParameterSet{
		"DTYPE":              specfile.Identifier("half"),
		"TILE_ROWS":          specfile.Int(2),
		"MAT2_IS_TRANSPOSED": specfile.Bool(true),
	}
	rendered, err := template.Render(params)
	require.NoError(t, err)
	assert.Equal(t, `#version 450
#define T half
#define TILE_ROWS 2
const bool transposed = true;
// Cost: $0.00 per half op.
`, rendered)

	// Rendering twice from the same template is byte-identical.
	again, err := template.Render(params)
	require.NoError(t, err)
	assert.Equal(t, rendered, again)
}

func TestRenderExtraParamsUnused(t *testing.T) {
	// The resolved set may hold parameters the template never references.
	template := New("matmul", "#define T ${DTYPE}\n")
	rendered, err := template.Render(specfile.ParameterSet{
		"DTYPE":    specfile.Identifier("float"),
		"HAS_BIAS": specfile.Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "#define T float\n", rendered)
}

func TestRenderUnresolvedPlaceholder(t *testing.T) {
	template := New("matmul", "${DTYPE} ${TILE_ROWS} $BATCH_MODE ${DTYPE}")
	rendered, err := template.Render(specfile.ParameterSet{
		"DTYPE": specfile.Identifier("float"),
	})
	assert.Empty(t, rendered, "no partial output on error")
	var unresolved *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "matmul", unresolved.TemplateID)
	assert.Equal(t, []string{"BATCH_MODE", "TILE_ROWS"}, unresolved.Placeholders)
}

func TestPlaceholders(t *testing.T) {
	template := New("matmul", "${DTYPE} $TILE_ROWS ${DTYPE} $$NOT_ONE text${HAS_BIAS}")
	assert.Equal(t, []string{"DTYPE", "HAS_BIAS", "TILE_ROWS"}, template.Placeholders())
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matmul.glslt")
	require.NoError(t, os.WriteFile(path, []byte("#define T ${DTYPE}\n"), 0644))

	template, err := LoadTemplate("matmul", path)
	require.NoError(t, err)
	assert.Equal(t, "matmul", template.ID())
	rendered, err := template.Render(specfile.ParameterSet{"DTYPE": specfile.Identifier("float")})
	require.NoError(t, err)
	assert.Equal(t, "#define T float\n", rendered)

	_, err = LoadTemplate("matmul", filepath.Join(dir, "missing.glslt"))
	require.Error(t, err)
}
