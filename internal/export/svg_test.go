package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSVG(t *testing.T) {
	// bounds [0,1]x[0,1] widen to [-0.1,1.1]; 120 px over 1.2 units
	svg := PathSVG([]float64{0, 1}, []float64{0, 1}, 120, 120, "#00ff00")

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `d="M10.0,110.0 L110.0,10.0"`)
	assert.Contains(t, svg, `stroke="#00ff00"`)
	assert.Equal(t, 2, strings.Count(svg, "<line"), "both axes are in view")
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestPathSVGNeedsTwoPoints(t *testing.T) {
	assert.Empty(t, PathSVG([]float64{1}, []float64{1}, 10, 10, "red"))
	assert.Empty(t, PathSVG([]float64{1, 2}, []float64{1}, 10, 10, "red"))
}

func TestLoadPathSVG(t *testing.T) {
	h := &loadstep.History{Steps: []loadstep.Step{
		{Index: 1, Displacement: 1, Reaction: 2},
		{Index: 2, Displacement: 2, Reaction: 3},
	}}
	svg := LoadPathSVG(h, 100, 50, "#fff")
	// origin plus two steps
	assert.Equal(t, 2, strings.Count(svg, " L"))

	var buf bytes.Buffer
	require.NoError(t, WriteLoadPathSVG(&buf, h, 100, 50, "#fff"))
	assert.Equal(t, svg, buf.String())

	assert.Error(t, WriteLoadPathSVG(&buf, &loadstep.History{}, 100, 50, "#fff"))
}
