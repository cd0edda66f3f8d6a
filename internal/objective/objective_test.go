package objective

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// quartic is f(x) = Σ a·xᵢ⁴/4 + x₀x₁ with the load a as parameter.
func quarticValue(x []float64, a float64) float64 {
	f := x[0] * x[1]
	for _, xi := range x {
		f += 0.25 * a * xi * xi * xi * xi
	}
	return f
}

func quarticGrad(x []float64, a float64, g []float64) float64 {
	for i, xi := range x {
		g[i] = a * xi * xi * xi
	}
	g[0] += x[1]
	g[1] += x[0]
	return quarticValue(x, a)
}

func quarticHess(x []float64, a float64) *mat.SymDense {
	k := mat.NewSymDense(len(x), nil)
	for i, xi := range x {
		k.SetSym(i, i, 3*a*xi*xi)
	}
	k.SetSym(0, 1, 1)
	return k
}

func TestFiniteDifferenceGradient(t *testing.T) {
	obj := New(quarticValue)
	x := []float64{0.3, -1.2, 2}
	got := make([]float64, 3)
	want := make([]float64, 3)

	f := obj.Gradient(x, 1.5, got)
	quarticGrad(x, 1.5, want)
	assert.Equal(t, quarticValue(x, 1.5), f)
	assert.InDeltaSlice(t, want, got, 1e-8)
}

func TestHessVecSources(t *testing.T) {
	x := []float64{0.3, -1.2, 2}
	v := []float64{1, 0.5, -2}
	want := make([]float64, 3)
	mat.NewVecDense(3, want).MulVec(quarticHess(x, 2), mat.NewVecDense(3, v))

	tests := []struct {
		name string
		obj  *Objective[float64]
		tol  float64
	}{
		{"stiffness", New(quarticValue, WithStiffness(quarticHess)), 1e-14},
		{"gradient differences", New(quarticValue, WithGradient(quarticGrad)), 1e-7},
		{"value differences", New(quarticValue), 1e-3},
		{"analytic", New(quarticValue, WithHessVec(func(x []float64, a float64, v, hv []float64) {
			mat.NewVecDense(len(hv), hv).MulVec(quarticHess(x, a), mat.NewVecDense(len(v), v))
		})), 1e-14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hv := make([]float64, 3)
			tt.obj.HessVec(x, 2, v, hv)
			assert.InDeltaSlice(t, want, hv, tt.tol)
		})
	}
}

func TestHessOperatorAssemblesOnce(t *testing.T) {
	calls := 0
	obj := New(quarticValue, WithStiffness(func(x []float64, a float64) *mat.SymDense {
		calls++
		return quarticHess(x, a)
	}))
	x := []float64{0.3, -1.2, 2}
	op := obj.HessOperator(x, 2)

	hv := make([]float64, 3)
	for _, v := range [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		op(v, hv)
		assert.InDelta(t, 3*2*x[0]*x[0]*v[0]+v[1], hv[0], 1e-14)
	}
	assert.Equal(t, 1, calls)
}

func TestHessVecOfZeroDirection(t *testing.T) {
	obj := New(quarticValue, WithGradient(quarticGrad))
	hv := []float64{7, 7}
	obj.HessVec([]float64{1, 2}, 1, []float64{0, 0}, hv)
	assert.Equal(t, []float64{0, 0}, hv)
}

func TestStiffnessByFiniteDifferences(t *testing.T) {
	x := []float64{0.3, -1.2, 2}
	want := quarticHess(x, 2)

	fromGrad := New(quarticValue, WithGradient(quarticGrad)).Stiffness(x, 2)
	fromValue := New(quarticValue).Stiffness(x, 2)

	assert.True(t, mat.EqualApprox(want, fromGrad, 1e-7))
	assert.True(t, mat.EqualApprox(want, fromValue, 1e-3))
	assert.Equal(t, fromGrad.At(0, 1), fromGrad.At(1, 0))
}

func TestAssembleOnlyWhenRequested(t *testing.T) {
	x := []float64{1, 1}

	m, err := New(quarticValue, WithStiffness(quarticHess)).Assemble(x, 1)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = New(quarticValue, WithStiffness(quarticHess), WithPreconditioner[float64]()).Assemble(x, 1)
	require.NoError(t, err)
	require.NotNil(t, m)

	// M⁻¹(K x) recovers x
	k := quarticHess(x, 1)
	r := make([]float64, 2)
	mat.NewVecDense(2, r).MulVec(k, mat.NewVecDense(2, x))
	z := make([]float64, 2)
	m.Apply(r, z)
	assert.InDeltaSlice(t, x, z, 1e-12)
}

func TestGradientKeepsValueFinite(t *testing.T) {
	obj := New(func(x []float64, _ float64) float64 { return math.Exp(x[0]) })
	g := make([]float64, 1)
	f := obj.Gradient([]float64{0}, 0, g)
	assert.Equal(t, 1.0, f)
	assert.InDelta(t, 1.0, g[0], 1e-9)
}
