package objective

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
	"gonum.org/v1/gonum/mat"
)

// ErrBadStiffness indicates a stiffness with NaN or Inf on its diagonal.
var ErrBadStiffness = errors.New("objective: stiffness is not finite")

const (
	shiftStart = 1e-8
	maxShifts  = 12
)

// Cholesky applies the inverse of a (possibly diagonally shifted)
// stiffness through its Cholesky factor.
type Cholesky struct {
	chol  mat.Cholesky
	n     int
	shift float64
}

func (c *Cholesky) Apply(r, z []float64) {
	dst := mat.NewVecDense(c.n, z)
	// a Condition error still leaves a usable solve in dst
	_ = c.chol.SolveVecTo(dst, mat.NewVecDense(c.n, r))
	copy(z, dst.RawVector().Data)
}

// Shift is the diagonal shift that made the factorization succeed.
func (c *Cholesky) Shift() float64 { return c.shift }

// Jacobi applies the inverse of the absolute stiffness diagonal.
type Jacobi struct {
	invDiag []float64
}

func NewJacobi(a *mat.SymDense) *Jacobi {
	n, _ := a.Dims()
	inv := make([]float64, n)
	for i := range inv {
		d := math.Abs(a.At(i, i))
		if d > 0 && !math.IsInf(d, 0) {
			inv[i] = 1 / d
		} else {
			inv[i] = 1
		}
	}
	return &Jacobi{invDiag: inv}
}

func (j *Jacobi) Apply(r, z []float64) {
	for i, v := range r {
		z[i] = v * j.invDiag[i]
	}
}

// Factor builds a preconditioner from a. Indefinite matrices are retried
// with a growing diagonal shift; when every shift fails the diagonal is
// used instead.
func Factor(a *mat.SymDense) (nlsolve.Preconditioner, error) {
	n, _ := a.Dims()
	if n == 0 {
		return nil, nil
	}

	maxDiag := 0.0
	for i := 0; i < n; i++ {
		d := a.At(i, i)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: entry (%d, %d) is %g", ErrBadStiffness, i, i, d)
		}
		maxDiag = math.Max(maxDiag, math.Abs(d))
	}

	c := &Cholesky{n: n}
	if c.chol.Factorize(a) {
		return c, nil
	}

	shift := shiftStart * math.Max(maxDiag, 1)
	shifted := mat.NewSymDense(n, nil)
	for attempt := 0; attempt < maxShifts; attempt++ {
		shifted.CopySym(a)
		for i := 0; i < n; i++ {
			shifted.SetSym(i, i, a.At(i, i)+shift)
		}
		if c.chol.Factorize(shifted) {
			c.shift = shift
			return c, nil
		}
		shift *= 10
	}
	return NewJacobi(a), nil
}
