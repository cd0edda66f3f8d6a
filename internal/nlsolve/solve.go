package nlsolve

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

// roundoff scales machine epsilon into the smallest decrease of f the
// ratio test still trusts.
const roundoff = 1e2 * 0x1p-52

// Solve minimises obj over x starting from x0 with parameters p. The
// returned Result is never nil when err is nil; x0 is not modified.
func Solve[P any](obj Objective[P], x0 []float64, p P, s Settings, alg Algorithm) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return nil, fmt.Errorf("%w: empty initial point", ErrDimensionMismatch)
	}
	switch alg {
	case TrustRegion:
		return trustRegion(obj, x0, p, s)
	case Newton:
		return newton(obj, x0, p, s)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, alg)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteVec(v []float64) bool {
	for _, e := range v {
		if !finite(e) {
			return false
		}
	}
	return true
}

// start evaluates the objective at a copy of x0.
func start[P any](obj Objective[P], x0 []float64, p P) (x, g []float64, f float64, err error) {
	x = append([]float64(nil), x0...)
	g = make([]float64, len(x))
	f = obj.Gradient(x, p, g)
	if !finite(f) || !finiteVec(g) {
		return nil, nil, 0, fmt.Errorf("%w: f = %g", ErrNonFiniteObjective, f)
	}
	return x, g, f, nil
}

// reductionRatio compares the actual decrease f - fTrial with the
// predicted one. Decreases below round-off of f are judged by sign alone.
func reductionRatio(f, fTrial, predicted float64) float64 {
	if !finite(fTrial) || !(predicted > 0) {
		return -1
	}
	tiny := roundoff * math.Max(1, math.Abs(f))
	if predicted <= tiny {
		if fTrial-f <= tiny {
			return 1
		}
		return -1
	}
	return (f - fTrial) / predicted
}

func trustRegion[P any](obj Objective[P], x0 []float64, p P, s Settings) (*Result, error) {
	x, g, f, err := start(obj, x0, p)
	if err != nil {
		return nil, err
	}
	n := len(x)
	trial := make([]float64, n)
	gTrial := make([]float64, n)
	cache := newPrecondCache(obj, s.PrecondUpdateFrequency)
	hess := newHessCache(obj)

	radius := s.TrSize
	gNorm := floats.Norm(g, 2)
	res := &Result{}

	for {
		if gNorm < s.Tol {
			res.Converged = true
			res.Reason = "gradient below tolerance"
			break
		}
		if res.Iterations >= s.MaxTrustIters {
			res.Reason = "max trust iterations reached"
			break
		}
		if radius < s.MinTrSize {
			res.Reason = "trust region below minimum size"
			break
		}
		budget := s.MaxCumulativeCGIters - res.CGIterations
		if budget <= 0 {
			res.Reason = "cumulative CG budget spent"
			break
		}
		res.Iterations++

		m := cache.get(x, p)
		sub := steihaug(hess.at(x, p), g, m, radius, s.CGInexactSolveRatio*gNorm,
			min(s.MaxCGIters, budget), s.OverIters, s.UsePreconditionedInnerProduct)
		res.CGIterations += sub.iters

		floats.AddTo(trial, x, sub.step)
		fTrial := obj.Value(trial, p)
		rho := reductionRatio(f, fTrial, -sub.model)

		onBoundary := sub.onBoundary
		switch {
		case rho < s.Eta2:
			radius *= s.T1
		case rho > s.Eta3 && onBoundary:
			radius = math.Min(radius*s.T2, s.MaxTrSize)
		}
		accepted := rho > s.Eta1

		slog.Debug("trust region iteration",
			"iter", res.Iterations, "f", f, "gnorm", gNorm, "radius", radius,
			"rho", rho, "cg", sub.iters, "boundary", onBoundary, "accepted", accepted)

		if !accepted {
			res.Rejected++
			continue
		}
		fNew := obj.Gradient(trial, p, gTrial)
		if !finite(fNew) || !finiteVec(gTrial) {
			res.Rejected++
			radius *= s.T1
			continue
		}
		x, trial = trial, x
		g, gTrial = gTrial, g
		f = fNew
		gNorm = floats.Norm(g, 2)
		cache.accepted()
		hess.moved()
	}

	res.X = x
	res.Value = f
	res.GradNorm = gNorm
	res.TrustRadius = radius
	res.PrecondAssemblies = cache.assemblies
	slog.Debug("trust region finished", "converged", res.Converged, "iters", res.Iterations,
		"cg", res.CGIterations, "reason", res.Reason)
	return res, nil
}

func newton[P any](obj Objective[P], x0 []float64, p P, s Settings) (*Result, error) {
	x, g, f, err := start(obj, x0, p)
	if err != nil {
		return nil, err
	}
	cache := newPrecondCache(obj, s.PrecondUpdateFrequency)
	hess := newHessCache(obj)

	gNorm := floats.Norm(g, 2)
	res := &Result{}
	best := &Result{X: append([]float64(nil), x...), Value: f, GradNorm: gNorm}

	for {
		if gNorm < s.Tol {
			res.Converged = true
			res.Reason = "gradient below tolerance"
			break
		}
		if res.Iterations >= s.MaxNewtonIters {
			res.Reason = "max newton iterations reached"
			break
		}
		budget := s.MaxCumulativeCGIters - res.CGIterations
		if budget <= 0 {
			res.Reason = "cumulative CG budget spent"
			break
		}
		res.Iterations++

		m := cache.get(x, p)
		step, iters := pcg(hess.at(x, p), g, m, s.CGInexactSolveRatio*gNorm,
			min(s.MaxCGIters+s.OverIters, budget))
		res.CGIterations += iters

		floats.Add(x, step)
		hess.moved()
		f = obj.Gradient(x, p, g)
		if !finite(f) || !finiteVec(g) {
			res.Reason = "objective became non-finite"
			break
		}
		gNorm = floats.Norm(g, 2)
		cache.accepted()

		slog.Debug("newton iteration", "iter", res.Iterations, "f", f, "gnorm", gNorm, "cg", iters)

		if gNorm < best.GradNorm {
			copy(best.X, x)
			best.Value, best.GradNorm = f, gNorm
		}
	}

	res.X = best.X
	res.Value = best.Value
	res.GradNorm = best.GradNorm
	res.PrecondAssemblies = cache.assemblies
	slog.Debug("newton finished", "converged", res.Converged, "iters", res.Iterations,
		"cg", res.CGIterations, "reason", res.Reason)
	return res, nil
}
