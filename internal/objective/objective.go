package objective

import (
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var cubeEps = math.Cbrt(0x1p-52)

type (
	// Func evaluates the objective at x.
	Func[P any] func(x []float64, p P) float64
	// GradFunc fills grad and returns the objective value.
	GradFunc[P any] func(x []float64, p P, grad []float64) float64
	// HessVecFunc writes the Hessian at x applied to v into hv.
	HessVecFunc[P any] func(x []float64, p P, v, hv []float64)
	// AssembleFunc returns a dense symmetric approximation of the Hessian at x.
	AssembleFunc[P any] func(x []float64, p P) *mat.SymDense
)

// Objective is a closure-backed nlsolve.Objective.
type Objective[P any] struct {
	value    Func[P]
	grad     GradFunc[P]
	hessVec  HessVecFunc[P]
	assemble AssembleFunc[P]
	precond  bool
}

type Option[P any] func(*Objective[P])

// WithGradient supplies an analytic gradient.
func WithGradient[P any](g GradFunc[P]) Option[P] {
	return func(o *Objective[P]) { o.grad = g }
}

// WithHessVec supplies an analytic Hessian action.
func WithHessVec[P any](hv HessVecFunc[P]) Option[P] {
	return func(o *Objective[P]) { o.hessVec = hv }
}

// WithStiffness supplies a dense Hessian assembly. It backs HessVec when
// no Hessian action is given, and the preconditioner when enabled.
func WithStiffness[P any](assemble AssembleFunc[P]) Option[P] {
	return func(o *Objective[P]) { o.assemble = assemble }
}

// WithPreconditioner makes Assemble factor the stiffness. Without an
// explicit stiffness the Hessian is assembled by finite differences.
func WithPreconditioner[P any]() Option[P] {
	return func(o *Objective[P]) { o.precond = true }
}

func New[P any](value Func[P], opts ...Option[P]) *Objective[P] {
	o := &Objective[P]{value: value}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Objective[P]) Value(x []float64, p P) float64 {
	return o.value(x, p)
}

func (o *Objective[P]) Gradient(x []float64, p P, grad []float64) float64 {
	if o.grad != nil {
		return o.grad(x, p, grad)
	}
	f := func(y []float64) float64 { return o.value(y, p) }
	fx := f(x)
	fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
	return fx
}

func (o *Objective[P]) HessVec(x []float64, p P, v, hv []float64) {
	o.HessOperator(x, p)(v, hv)
}

// HessOperator returns the Hessian action at x. A supplied stiffness is
// assembled once here and reused by every product.
func (o *Objective[P]) HessOperator(x []float64, p P) func(v, hv []float64) {
	switch {
	case o.hessVec != nil:
		return func(v, hv []float64) { o.hessVec(x, p, v, hv) }
	case o.assemble != nil:
		k := o.assemble(x, p)
		return func(v, hv []float64) {
			out := mat.NewVecDense(len(hv), hv)
			out.MulVec(k, mat.NewVecDense(len(v), v))
		}
	default:
		return func(v, hv []float64) { o.hessVecFD(x, p, v, hv) }
	}
}

// hessVecFD differences the gradient along v with a central stencil.
func (o *Objective[P]) hessVecFD(x []float64, p P, v, hv []float64) {
	vNorm := floats.Norm(v, 2)
	if vNorm == 0 {
		for i := range hv {
			hv[i] = 0
		}
		return
	}
	h := cubeEps * (1 + floats.Norm(x, 2)) / vNorm

	n := len(x)
	xp := make([]float64, n)
	xm := make([]float64, n)
	floats.AddScaledTo(xp, x, h, v)
	floats.AddScaledTo(xm, x, -h, v)

	gm := make([]float64, n)
	o.Gradient(xp, p, hv)
	o.Gradient(xm, p, gm)
	floats.Sub(hv, gm)
	floats.Scale(1/(2*h), hv)
}

// Stiffness returns a dense Hessian at x: the supplied assembly when
// present, else a finite-difference Jacobian of the gradient.
func (o *Objective[P]) Stiffness(x []float64, p P) *mat.SymDense {
	if o.assemble != nil {
		return o.assemble(x, p)
	}
	n := len(x)
	if o.grad == nil {
		k := mat.NewSymDense(n, nil)
		fd.Hessian(k, func(y []float64) float64 { return o.value(y, p) }, x, nil)
		return k
	}

	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, func(g, y []float64) { o.grad(y, p, g) }, x, &fd.JacobianSettings{Formula: fd.Central})
	return symmetrize(jac)
}

// Assemble factors the stiffness at x when the objective was built with
// WithPreconditioner, and returns nil otherwise.
func (o *Objective[P]) Assemble(x []float64, p P) (nlsolve.Preconditioner, error) {
	if !o.precond {
		return nil, nil
	}
	return Factor(o.Stiffness(x, p))
}

func symmetrize(a *mat.Dense) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}
