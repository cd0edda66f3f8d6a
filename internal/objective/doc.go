// Package objective adapts problem code to the solver interfaces.
//
// The solver in package nlsolve sees an objective only through its value,
// gradient and Hessian action. This package builds those from whatever a
// problem can supply:
//
//   - [New] wraps closures; a missing gradient or Hessian action is
//     filled in with finite differences
//   - [Partition] splits a full field into unknown and prescribed entries
//   - [FieldEnergy] turns an energy of the full field into an objective
//     of the unknowns, and exposes the gradient with respect to the
//     prescribed entries (reactions) from the same full gradient
//   - [Cholesky] and [Jacobi] preconditioners built from a dense
//     stiffness approximation
//
// [Params] is a small immutable tuple for problems that want the
// load-plus-state parameter layout.
package objective
