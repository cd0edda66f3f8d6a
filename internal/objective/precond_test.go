package objective

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFactorPositiveDefinite(t *testing.T) {
	a := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	m, err := Factor(a)
	require.NoError(t, err)

	c, ok := m.(*Cholesky)
	require.True(t, ok, "got %T", m)
	assert.Zero(t, c.Shift())

	z := make([]float64, 2)
	c.Apply([]float64{5, 4}, z)
	assert.InDeltaSlice(t, []float64{1, 1}, z, 1e-14)
}

func TestFactorIndefiniteShifts(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0, 0, -1})
	m, err := Factor(a)
	require.NoError(t, err)

	c, ok := m.(*Cholesky)
	require.True(t, ok, "got %T", m)
	assert.InDelta(t, 10.0, c.Shift(), 1e-9)
}

func TestFactorFallsBackToJacobi(t *testing.T) {
	a := mat.NewSymDense(2, []float64{2, 1e20, 1e20, -4})
	m, err := Factor(a)
	require.NoError(t, err)

	j, ok := m.(*Jacobi)
	require.True(t, ok, "got %T", m)
	z := make([]float64, 2)
	j.Apply([]float64{2, 2}, z)
	assert.Equal(t, []float64{1, 0.5}, z)
}

func TestFactorRejectsNonFiniteDiagonal(t *testing.T) {
	a := mat.NewSymDense(2, []float64{math.NaN(), 0, 0, 1})
	_, err := Factor(a)
	assert.True(t, errors.Is(err, ErrBadStiffness))
}

func TestJacobiZeroDiagonal(t *testing.T) {
	j := NewJacobi(mat.NewSymDense(2, []float64{0, 0, 0, -2}))
	z := make([]float64, 2)
	j.Apply([]float64{3, 3}, z)
	assert.Equal(t, []float64{3, 1.5}, z)
}
