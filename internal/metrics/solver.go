package metrics

import "github.com/san-kum/equilib/internal/loadstep"

type TotalIterations struct{ n int }

func NewTotalIterations() *TotalIterations { return &TotalIterations{} }

func (t *TotalIterations) Name() string            { return "iterations" }
func (t *TotalIterations) Observe(s loadstep.Step) { t.n += s.Iterations }
func (t *TotalIterations) Value() float64          { return float64(t.n) }
func (t *TotalIterations) Reset()                  { t.n = 0 }

type TotalCGIterations struct{ n int }

func NewTotalCGIterations() *TotalCGIterations { return &TotalCGIterations{} }

func (t *TotalCGIterations) Name() string            { return "cg_iterations" }
func (t *TotalCGIterations) Observe(s loadstep.Step) { t.n += s.CGIterations }
func (t *TotalCGIterations) Value() float64          { return float64(t.n) }
func (t *TotalCGIterations) Reset()                  { t.n = 0 }

// NonConverged counts steps recorded without meeting the gradient
// tolerance. Only an OnFailure policy of accept produces them.
type NonConverged struct{ n int }

func NewNonConverged() *NonConverged { return &NonConverged{} }

func (c *NonConverged) Name() string { return "non_converged" }

func (c *NonConverged) Observe(s loadstep.Step) {
	if !s.Converged {
		c.n++
	}
}

func (c *NonConverged) Value() float64 { return float64(c.n) }
func (c *NonConverged) Reset()         { c.n = 0 }

type Cutbacks struct{ n int }

func NewCutbacks() *Cutbacks { return &Cutbacks{} }

func (c *Cutbacks) Name() string            { return "cutbacks" }
func (c *Cutbacks) Observe(s loadstep.Step) { c.n += s.Cutbacks }
func (c *Cutbacks) Value() float64          { return float64(c.n) }
func (c *Cutbacks) Reset()                  { c.n = 0 }
