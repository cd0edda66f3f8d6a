package problems

import (
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/objective"
	"gonum.org/v1/gonum/mat"
)

// HyperelasticBar is a bar of Elements two-node elements whose cross
// section grows linearly by Taper along its length. The left end is held
// and the right end is moved by the load.
type HyperelasticBar struct {
	Elements     int
	Length       float64
	Shear        float64
	Bulk         float64
	Taper        float64
	Precondition bool
}

func NewHyperelasticBar(elements int) *HyperelasticBar {
	if elements < 2 {
		elements = 10
	}
	return &HyperelasticBar{
		Elements: elements,
		Length:   1.0,
		Shear:    1.0,
		Bulk:     10.0,
		Taper:    0.5,
	}
}

func (b *HyperelasticBar) h() float64 { return b.Length / float64(b.Elements) }

func (b *HyperelasticBar) area(e int) float64 {
	return 1 + b.Taper*(float64(e)+0.5)/float64(b.Elements)
}

// energyDensity is a compressible neo-Hookean law in one dimension.
func (b *HyperelasticBar) energyDensity(f float64) float64 {
	lnF := math.Log(f)
	return 0.5*b.Shear*(f*f-1) - b.Shear*lnF + 0.5*b.Bulk*lnF*lnF
}

func (b *HyperelasticBar) stress(f float64) float64 {
	return b.Shear*(f-1/f) + b.Bulk*math.Log(f)/f
}

func (b *HyperelasticBar) tangent(f float64) float64 {
	return b.Shear*(1+1/(f*f)) + b.Bulk*(1-math.Log(f))/(f*f)
}

func (b *HyperelasticBar) stretch(u []float64, e int) float64 {
	return 1 + (u[e+1]-u[e])/b.h()
}

func (b *HyperelasticBar) field() *objective.FieldEnergy[objective.Params] {
	n := b.Elements
	dofs, _ := objective.NewPartition(n+1, []int{0, n})
	h := b.h()

	return &objective.FieldEnergy[objective.Params]{
		Dofs: dofs,
		Energy: func(u []float64, _ objective.Params) float64 {
			total := 0.0
			for e := 0; e < n; e++ {
				f := b.stretch(u, e)
				if f <= 0 {
					return math.Inf(1)
				}
				total += b.area(e) * h * b.energyDensity(f)
			}
			return total
		},
		Grad: func(u []float64, _ objective.Params, g []float64) float64 {
			for i := range g {
				g[i] = 0
			}
			total := 0.0
			for e := 0; e < n; e++ {
				f := b.stretch(u, e)
				if f <= 0 {
					return math.Inf(1)
				}
				a := b.area(e)
				total += a * h * b.energyDensity(f)
				force := a * b.stress(f)
				g[e] -= force
				g[e+1] += force
			}
			return total
		},
		Stiffness: func(u []float64, _ objective.Params) *mat.SymDense {
			k := mat.NewSymDense(n+1, nil)
			for e := 0; e < n; e++ {
				ke := b.area(e) / h * b.tangent(b.stretch(u, e))
				k.SetSym(e, e, k.At(e, e)+ke)
				k.SetSym(e+1, e+1, k.At(e+1, e+1)+ke)
				k.SetSym(e, e+1, k.At(e, e+1)-ke)
			}
			return k
		},
		Prescribed: func(p objective.Params) []float64 {
			return []float64{0, p.Scalar(LoadIndex)}
		},
	}
}

func (b *HyperelasticBar) Objective() nlsolve.Objective[objective.Params] {
	return b.field().Objective(precondOption(b.Precondition)...)
}

func (b *HyperelasticBar) InitialUnknowns() []float64 {
	return make([]float64, b.Elements-1)
}

func (b *HyperelasticBar) InitialParams() objective.Params { return objective.NewParams(0.0) }

func (b *HyperelasticBar) WithLoad(p objective.Params, load float64) objective.Params {
	return withLoad(p, load)
}

func (b *HyperelasticBar) Commit(_ []float64, p objective.Params) (objective.Params, error) {
	return p, nil
}

// Reaction is the force at the moved end, positive in tension.
func (b *HyperelasticBar) Reaction(x []float64, p objective.Params) float64 {
	return b.field().Reactions(x, p)[1]
}

func (b *HyperelasticBar) Displacement(_ []float64, p objective.Params) float64 {
	return p.Scalar(LoadIndex)
}
