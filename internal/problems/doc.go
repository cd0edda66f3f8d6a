// Package problems holds small load-stepped mechanics problems that
// exercise the solver core: a tapered hyperelastic bar under prescribed
// end displacement, an elastoplastic bar under end force whose return map
// is solved with rtsafe, and a von Mises shallow arch that snaps through.
//
// All problems use objective.Params with the load at LoadIndex and, for
// path-dependent problems, the internal state at StateIndex.
package problems
