// Package rootfind provides a safeguarded scalar root finder.
//
// [Rtsafe] combines Newton iteration with bisection inside a bracket that
// is known to contain a sign change:
//
//   - a Newton step is taken only when it stays strictly inside the
//     bracket and shrinks faster than bisection would
//   - otherwise the bracket is bisected
//   - the bracket side is updated from the sign of f at the new point
//
// A bracket without a sign change, or a run that exhausts
// [Settings.MaxIters], yields NaN. Callers must check with [math.IsNaN].
//
// # Example
//
//	f := func(x float64) (float64, float64) { return x*x*x - 4, 3 * x * x }
//	root, err := rootfind.Rtsafe(f, 1, rootfind.Bracket{Lo: 0, Hi: 10}, rootfind.GetSettings())
//
// The loop runs a fixed number of iterations and selects between the
// Newton and bisection candidates instead of branching on them, so a
// call is a pure function of its arguments.
package rootfind
