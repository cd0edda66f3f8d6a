package objective

import (
	"testing"

	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSprings is a bar of two unit springs over nodes 0, 1, 2 with both
// ends prescribed: u0 = 0 and u2 = the load.
func twoSprings(t *testing.T, withGrad bool) *FieldEnergy[float64] {
	t.Helper()
	dofs, err := NewPartition(3, []int{0, 2})
	require.NoError(t, err)

	e := &FieldEnergy[float64]{
		Dofs: dofs,
		Energy: func(u []float64, _ float64) float64 {
			a, b := u[1]-u[0], u[2]-u[1]
			return 0.5*a*a + 0.5*b*b
		},
		Prescribed: func(load float64) []float64 { return []float64{0, load} },
	}
	if withGrad {
		e.Grad = func(u []float64, _ float64, g []float64) float64 {
			a, b := u[1]-u[0], u[2]-u[1]
			g[0], g[1], g[2] = -a, a-b, b
			return 0.5*a*a + 0.5*b*b
		}
	}
	return e
}

func TestFieldEnergyReactions(t *testing.T) {
	for _, withGrad := range []bool{true, false} {
		e := twoSprings(t, withGrad)
		res, err := nlsolve.Solve[float64](e.Objective(), []float64{0}, 0.4, nlsolve.GetSettings(), nlsolve.TrustRegion)
		require.NoError(t, err)
		require.True(t, res.Converged, res.Reason)

		assert.InDelta(t, 0.2, res.X[0], 1e-8)
		assert.Equal(t, []float64{0, res.X[0], 0.4}, e.Field(res.X, 0.4))

		r := e.Reactions(res.X, 0.4)
		require.Len(t, r, 2)
		assert.InDelta(t, -0.2, r[0], 1e-7, "withGrad=%v", withGrad)
		assert.InDelta(t, 0.2, r[1], 1e-7, "withGrad=%v", withGrad)
	}
}
