package objective

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// FieldEnergy is an energy of a full field whose fixed entries are
// prescribed by the parameters. One full gradient serves both the solve
// over the unknowns and the reactions at the fixed entries.
type FieldEnergy[P any] struct {
	Dofs *Partition
	// Energy of the full field u.
	Energy func(u []float64, p P) float64
	// Grad fills the full gradient and returns the energy. When nil the
	// gradient is taken by finite differences.
	Grad func(u []float64, p P, g []float64) float64
	// Stiffness assembles the full Hessian. Optional.
	Stiffness func(u []float64, p P) *mat.SymDense
	// Prescribed returns the fixed values, in Dofs order, for p.
	Prescribed func(p P) []float64
}

// Field builds the full field from the unknowns x.
func (e *FieldEnergy[P]) Field(x []float64, p P) []float64 {
	return e.Dofs.CreateField(x, e.Prescribed(p))
}

func (e *FieldEnergy[P]) fullGradient(u []float64, p P) ([]float64, float64) {
	g := make([]float64, len(u))
	if e.Grad != nil {
		return g, e.Grad(u, p, g)
	}
	f := func(y []float64) float64 { return e.Energy(y, p) }
	fd.Gradient(g, f, u, &fd.Settings{Formula: fd.Central})
	return g, f(u)
}

// Objective restricts the energy to the unknowns.
func (e *FieldEnergy[P]) Objective(opts ...Option[P]) *Objective[P] {
	value := func(x []float64, p P) float64 {
		return e.Energy(e.Field(x, p), p)
	}
	grad := func(x []float64, p P, g []float64) float64 {
		full, f := e.fullGradient(e.Field(x, p), p)
		for k, i := range e.Dofs.free {
			g[k] = full[i]
		}
		return f
	}

	all := []Option[P]{WithGradient(grad)}
	if e.Stiffness != nil {
		all = append(all, WithStiffness(func(x []float64, p P) *mat.SymDense {
			return e.Dofs.FreeBlock(e.Stiffness(e.Field(x, p), p))
		}))
	}
	return New(value, append(all, opts...)...)
}

// Reactions returns the gradient of the energy with respect to the fixed
// entries, with the unknowns held at x.
func (e *FieldEnergy[P]) Reactions(x []float64, p P) []float64 {
	full, _ := e.fullGradient(e.Field(x, p), p)
	return e.Dofs.FixedValues(full)
}
