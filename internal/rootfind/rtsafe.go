package rootfind

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// Func evaluates a scalar function and its derivative at x.
type Func func(x float64) (fx, dfx float64)

// WithDerivative pairs a function with its analytic derivative.
func WithDerivative(f, df func(float64) float64) Func {
	return func(x float64) (float64, float64) { return f(x), df(x) }
}

// NumericDerivative pairs f with a central finite-difference derivative.
func NumericDerivative(f func(float64) float64) Func {
	return func(x float64) (float64, float64) {
		settings := fd.Settings{Formula: fd.Central}
		return f(x), fd.Derivative(f, x, &settings)
	}
}

// Iterate is the state of a search after one iteration.
type Iterate struct {
	Iter      int
	X         float64
	F         float64
	Step      float64
	Bracket   Bracket
	Bisected  bool
	Converged bool
}

// Solver is a root search with its function and settings bound.
type Solver func(guess float64, b Bracket) (float64, error)

// Rtsafe searches b for a root of f starting from guess. It returns NaN
// when f has no sign change over b or the search does not converge
// within s.MaxIters. A malformed bracket or settings value is an error.
func Rtsafe(f Func, guess float64, b Bracket, s Settings) (float64, error) {
	return RtsafeTrace(f, guess, b, s, nil)
}

// RtsafeTrace is Rtsafe reporting every iteration up to convergence to observe.
func RtsafeTrace(f Func, guess float64, b Bracket, s Settings, observe func(Iterate)) (float64, error) {
	if err := s.Validate(); err != nil {
		return math.NaN(), err
	}
	if err := b.Validate(); err != nil {
		return math.NaN(), err
	}
	return search(f, guess, b, s, observe), nil
}

// Specialize validates s once and returns a Solver for f. Its results are
// bit-identical to calling Rtsafe with the same arguments.
func Specialize(f Func, s Settings) (Solver, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return func(guess float64, b Bracket) (float64, error) {
		if err := b.Validate(); err != nil {
			return math.NaN(), err
		}
		return search(f, guess, b, s, nil), nil
	}, nil
}

func choose(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

func search(f Func, guess float64, b Bracket, s Settings, observe func(Iterate)) float64 {
	fLo, _ := f(b.Lo)
	fHi, _ := f(b.Hi)
	bracketed := fLo*fHi < 0

	// xl always carries the negative side of the bracket
	loNeg := fLo < 0
	xl := choose(loNeg, b.Lo, b.Hi)
	xh := choose(loNeg, b.Hi, b.Lo)

	x := choose(math.IsNaN(guess), 0.5*(b.Lo+b.Hi), math.Min(math.Max(guess, b.Lo), b.Hi))
	dxOld := b.Hi - b.Lo
	dx := dxOld
	fx, dfx := f(x)
	converged := false

	for i := 0; i < s.MaxIters; i++ {
		newtonStep := fx / dfx
		xNewton := x - newtonStep
		bisect := math.IsNaN(xNewton) || math.IsInf(xNewton, 0) ||
			(xNewton-xh)*(xNewton-xl) >= 0 ||
			math.Abs(2*fx) > math.Abs(dxOld*dfx)

		halfWidth := 0.5 * (xh - xl)
		nextX := choose(bisect, xl+halfWidth, xNewton)
		nextDx := choose(bisect, halfWidth, newtonStep)

		nextX = choose(converged, x, nextX)
		// a Newton step that rounds away to nothing is below the ulp of x
		stalled := !bisect && nextX == x
		nextFx, nextDfx := f(nextX)

		dxOld = choose(converged, dxOld, dx)
		dx = choose(converged, dx, nextDx)
		fx = choose(converged, fx, nextFx)
		dfx = choose(converged, dfx, nextDfx)
		x = nextX

		neg := fx < 0
		xl = choose(neg, x, xl)
		xh = choose(neg, xh, x)

		wasConverged := converged
		collapsed := math.Nextafter(xl, xh) == xh
		converged = converged || stalled || collapsed ||
			math.Abs(dx) < s.XTol || (s.FTol > 0 && math.Abs(fx) < s.FTol) || fx == 0

		if observe != nil && !wasConverged {
			observe(Iterate{
				Iter:      i + 1,
				X:         x,
				F:         fx,
				Step:      dx,
				Bracket:   Bracket{Lo: math.Min(xl, xh), Hi: math.Max(xl, xh)},
				Bisected:  bisect,
				Converged: converged,
			})
		}
	}

	root := choose(bracketed && converged, x, math.NaN())
	root = choose(fHi == 0, b.Hi, root)
	return choose(fLo == 0, b.Lo, root)
}
