package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"solver.t1=0.25, 0.4", "steps=10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"solver.t1", "steps"}, names)
	assert.Equal(t, [][]float64{{0.25, 0.4}, {10}}, ranges)

	for _, bad := range []string{"solver.t1", "=1", "steps=", "steps=a,b"} {
		_, _, err := parseGrid([]string{bad})
		assert.Error(t, err, bad)
	}
}
