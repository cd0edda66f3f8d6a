package nlsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// subproblem is the outcome of one trust-region model minimisation.
type subproblem struct {
	step []float64
	// model is m(step) = gᵀs + ½sᵀHs; negative for a descent step.
	model             float64
	iters             int
	onBoundary        bool
	negativeCurvature bool
	converged         bool
}

// steihaug minimises gᵀs + ½sᵀHs over ||s|| <= radius with preconditioned
// truncated CG. With precondNorm the radius is measured in the M-norm and
// the norms of the iterates follow from the CG recurrences.
func steihaug(hessVec func(v, hv []float64), g []float64, m Preconditioner,
	radius, tol float64, maxIters, overIters int, precondNorm bool) subproblem {
	n := len(g)
	z := make([]float64, n)
	r := append([]float64(nil), g...)
	y := make([]float64, n)
	d := make([]float64, n)
	hd := make([]float64, n)

	applyPrecond(m, r, y)
	floats.ScaleTo(d, -1, y)

	ry := floats.Dot(r, y)
	var zz, zd, dd float64
	if precondNorm {
		dd = ry
	} else {
		dd = floats.Dot(d, d)
	}

	res := subproblem{step: z}
	rNorm := floats.Norm(r, 2)
	if rNorm <= tol {
		res.converged = true
		return res
	}

	for k := 0; k < maxIters+overIters; k++ {
		hessVec(d, hd)
		res.iters++
		curv := floats.Dot(d, hd)
		rd := floats.Dot(r, d)

		if !(curv > 0) {
			tau := boundaryTau(zz, zd, dd, radius)
			floats.AddScaled(z, tau, d)
			res.model += tau*rd + 0.5*tau*tau*curv
			res.onBoundary, res.negativeCurvature = true, true
			return res
		}

		alpha := ry / curv
		zzNext := zz + 2*alpha*zd + alpha*alpha*dd
		if zzNext >= radius*radius {
			tau := boundaryTau(zz, zd, dd, radius)
			floats.AddScaled(z, tau, d)
			res.model += tau*rd + 0.5*tau*tau*curv
			res.onBoundary = true
			return res
		}

		floats.AddScaled(z, alpha, d)
		floats.AddScaled(r, alpha, hd)
		res.model -= 0.5 * alpha * ry
		zz = zzNext

		rNormNext := floats.Norm(r, 2)
		if rNormNext <= tol {
			res.converged = true
			return res
		}
		// past the regular budget, keep going only while the residual drops
		if k+1 >= maxIters && rNormNext >= rNorm {
			return res
		}
		rNorm = rNormNext

		applyPrecond(m, r, y)
		ryNext := floats.Dot(r, y)
		beta := ryNext / ry
		floats.Scale(beta, d)
		floats.Sub(d, y)
		if precondNorm {
			zd = beta * (zd + alpha*dd)
			dd = ryNext + beta*beta*dd
		} else {
			zd = floats.Dot(z, d)
			dd = floats.Dot(d, d)
		}
		ry = ryNext
	}
	return res
}

// boundaryTau is the positive root of ||z + τd||² = radius².
func boundaryTau(zz, zd, dd, radius float64) float64 {
	disc := zd*zd + dd*(radius*radius-zz)
	return (-zd + math.Sqrt(math.Max(disc, 0))) / dd
}

// pcg solves H s = -g with preconditioned CG. On negative curvature it
// returns the iterate so far, or the preconditioned steepest-descent
// direction when that happens on the first iteration.
func pcg(hessVec func(v, hv []float64), g []float64, m Preconditioner,
	tol float64, maxIters int) ([]float64, int) {
	n := len(g)
	s := make([]float64, n)
	r := make([]float64, n)
	floats.ScaleTo(r, -1, g)
	y := make([]float64, n)
	hd := make([]float64, n)

	applyPrecond(m, r, y)
	d := append([]float64(nil), y...)
	ry := floats.Dot(r, y)
	if floats.Norm(r, 2) <= tol {
		return s, 0
	}

	iters := 0
	for k := 0; k < maxIters; k++ {
		hessVec(d, hd)
		iters++
		curv := floats.Dot(d, hd)
		if !(curv > 0) {
			if k == 0 {
				copy(s, y)
			}
			return s, iters
		}
		alpha := ry / curv
		floats.AddScaled(s, alpha, d)
		floats.AddScaled(r, -alpha, hd)
		if floats.Norm(r, 2) <= tol {
			break
		}
		applyPrecond(m, r, y)
		ryNext := floats.Dot(r, y)
		floats.Scale(ryNext/ry, d)
		floats.Add(d, y)
		ry = ryNext
	}
	return s, iters
}
