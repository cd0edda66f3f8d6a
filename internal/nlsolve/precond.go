package nlsolve

import "log/slog"

// precondCache owns the preconditioner of one Solve call.
type precondCache[P any] struct {
	strategy PrecondStrategy[P]
	every    int

	m          Preconditioner
	stale      bool
	age        int
	assemblies int
}

func newPrecondCache[P any](obj Objective[P], every int) *precondCache[P] {
	strategy, _ := obj.(PrecondStrategy[P])
	return &precondCache[P]{strategy: strategy, every: every, stale: true}
}

// get returns the current preconditioner, assembling it at x if stale.
// A failed assembly degrades to the identity until the next refresh. A
// strategy that returns neither a preconditioner nor an error declines
// for the rest of the solve and is not counted.
func (c *precondCache[P]) get(x []float64, p P) Preconditioner {
	if c.strategy == nil || !c.stale {
		return c.m
	}
	m, err := c.strategy.Assemble(x, p)
	if err != nil {
		slog.Warn("preconditioner assembly failed, using identity", "error", err)
		m = nil
	} else if m == nil {
		c.strategy, c.m = nil, nil
		return nil
	}
	c.m, c.stale, c.age = m, false, 0
	c.assemblies++
	return c.m
}

// accepted marks the preconditioner stale every c.every accepted steps.
func (c *precondCache[P]) accepted() {
	c.age++
	if c.every > 0 && c.age >= c.every {
		c.stale = true
	}
}

func applyPrecond(m Preconditioner, r, z []float64) {
	if m == nil {
		copy(z, r)
		return
	}
	m.Apply(r, z)
}

// hessCache holds the Hessian action at the current iterate so rejected
// trust-region retries reuse it.
type hessCache[P any] struct {
	obj    Objective[P]
	op     func(v, hv []float64)
	builds int
}

func newHessCache[P any](obj Objective[P]) *hessCache[P] {
	return &hessCache[P]{obj: obj}
}

func (h *hessCache[P]) at(x []float64, p P) func(v, hv []float64) {
	if h.op != nil {
		return h.op
	}
	h.builds++
	if op, ok := h.obj.(HessianOperator[P]); ok {
		h.op = op.HessOperator(x, p)
	} else {
		h.op = func(v, hv []float64) { h.obj.HessVec(x, p, v, hv) }
	}
	return h.op
}

// moved drops the action after x changed.
func (h *hessCache[P]) moved() { h.op = nil }
