// Package nlsolve drives an unknown vector to a stationary point of a
// scalar objective.
//
// Two outer iterations are available through the [Algorithm] argument of
// [Solve]:
//
//   - [TrustRegion]: each step approximately minimises a quadratic model
//     inside a trust region with preconditioned Steihaug-Toint CG; the
//     radius follows the ratio of actual to predicted decrease
//   - [Newton]: each step solves the Newton system with preconditioned CG
//     and is taken in full
//
// Objectives supply their own gradient and Hessian action (see package
// objective for finite-difference fallbacks). An objective that also
// implements [PrecondStrategy] is asked for a preconditioner lazily, and
// the preconditioner is reused until [Settings.PrecondUpdateFrequency]
// accepted steps have passed.
//
// Running out of iterations is not an error: the returned [Result] holds
// the best iterate and Converged is false. Errors are reserved for
// malformed inputs.
//
// # Radius update
//
// With ρ the ratio of actual to predicted decrease:
//
//	ρ < Eta2                      Δ ← T1·Δ
//	ρ > Eta3 and step on boundary Δ ← min(T2·Δ, MaxTrSize)
//	ρ > Eta1                      step accepted
package nlsolve
