package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/objective"
	"github.com/san-kum/equilib/internal/rootfind"
	"gonum.org/v1/gonum/mat"
)

// voce is a saturating isotropic hardening law: the flow stress rises
// from y0 towards ysat over an equivalent plastic strain of about alpha0.
type voce struct {
	y0, ysat, alpha0 float64
}

func (v voce) flowStress(a float64) float64 {
	return v.y0 + (v.ysat-v.y0)*(1-math.Exp(-a/v.alpha0))
}

func (v voce) slope(a float64) float64 {
	return (v.ysat - v.y0) / v.alpha0 * math.Exp(-a/v.alpha0)
}

// work integrates the flow stress from 0 to a.
func (v voce) work(a float64) float64 {
	return v.y0*a + (v.ysat-v.y0)*(a+v.alpha0*(math.Exp(-a/v.alpha0)-1))
}

// PlasticBar is a bar of Elements small-strain elastoplastic elements in
// series, held at the left end and pulled by the load at the right end.
// Element e flows at Strength[e] times the base hardening law, so the
// weaker elements yield first.
type PlasticBar struct {
	Elements     int
	Length       float64
	Young        float64
	Hardening    voce
	Strength     []float64
	Precondition bool
	// ReturnMap controls the rtsafe solve of the plastic multiplier.
	ReturnMap rootfind.Settings
}

func NewPlasticBar(elements int) *PlasticBar {
	if elements < 2 {
		elements = 4
	}
	strength := make([]float64, elements)
	for e := range strength {
		strength[e] = 1 + 0.05*float64(e)
	}
	return &PlasticBar{
		Elements:  elements,
		Length:    1.0,
		Young:     200.0,
		Hardening: voce{y0: 1.0, ysat: 1.5, alpha0: 0.02},
		Strength:  strength,
		ReturnMap: rootfind.GetSettings(),
	}
}

func (b *PlasticBar) h() float64 { return b.Length / float64(b.Elements) }

func (b *PlasticBar) law(e int) voce {
	s := b.Strength[e]
	return voce{y0: s * b.Hardening.y0, ysat: s * b.Hardening.ysat, alpha0: b.Hardening.alpha0}
}

// state splits the packed internal variables into plastic strains and
// equivalent plastic strains.
func (b *PlasticBar) state(p objective.Params) (plastic, alpha []float64) {
	s := p.Vector(StateIndex)
	return s[:b.Elements], s[b.Elements:]
}

// elementUpdate is the result of the return map of one element.
type elementUpdate struct {
	dgamma float64
	dir    float64
	stress float64
	energy float64
	// tangent is the consistent elastoplastic modulus.
	tangent float64
}

// update runs the return map of element e at total strain eps.
func (b *PlasticBar) update(e int, eps, plastic, alpha float64) (elementUpdate, error) {
	v := b.law(e)
	young := b.Young
	trial := young * (eps - plastic)
	excess := math.Abs(trial) - v.flowStress(alpha)

	if excess <= 0 {
		return elementUpdate{
			stress:  trial,
			energy:  0.5 * trial * trial / young,
			tangent: young,
		}, nil
	}

	residual := func(dg float64) (float64, float64) {
		return math.Abs(trial) - young*dg - v.flowStress(alpha+dg), -young - v.slope(alpha+dg)
	}
	hi := excess / young
	dg, err := rootfind.Rtsafe(residual, 0.5*hi, rootfind.Bracket{Lo: 0, Hi: hi}, b.ReturnMap)
	if err != nil {
		return elementUpdate{}, err
	}
	if math.IsNaN(dg) {
		return elementUpdate{}, fmt.Errorf("return map of element %d did not converge", e)
	}

	dir := math.Copysign(1, trial)
	elastic := eps - plastic - dg*dir
	hp := v.slope(alpha + dg)
	return elementUpdate{
		dgamma:  dg,
		dir:     dir,
		stress:  young * elastic,
		energy:  0.5*young*elastic*elastic + v.work(alpha+dg) - v.work(alpha),
		tangent: young * hp / (young + hp),
	}, nil
}

func (b *PlasticBar) forEach(u []float64, p objective.Params, fn func(e int, up elementUpdate)) error {
	plastic, alpha := b.state(p)
	h := b.h()
	for e := 0; e < b.Elements; e++ {
		up, err := b.update(e, (u[e+1]-u[e])/h, plastic[e], alpha[e])
		if err != nil {
			return err
		}
		fn(e, up)
	}
	return nil
}

func (b *PlasticBar) field() *objective.FieldEnergy[objective.Params] {
	n := b.Elements
	dofs, _ := objective.NewPartition(n+1, []int{0})
	h := b.h()

	energy := func(u []float64, p objective.Params, g []float64) float64 {
		total := -p.Scalar(LoadIndex) * u[n]
		if g != nil {
			for i := range g {
				g[i] = 0
			}
			g[n] = -p.Scalar(LoadIndex)
		}
		err := b.forEach(u, p, func(e int, up elementUpdate) {
			total += h * up.energy
			if g != nil {
				g[e] -= up.stress
				g[e+1] += up.stress
			}
		})
		if err != nil {
			return math.NaN()
		}
		return total
	}

	return &objective.FieldEnergy[objective.Params]{
		Dofs: dofs,
		Energy: func(u []float64, p objective.Params) float64 {
			return energy(u, p, nil)
		},
		Grad: energy,
		Stiffness: func(u []float64, p objective.Params) *mat.SymDense {
			k := mat.NewSymDense(n+1, nil)
			err := b.forEach(u, p, func(e int, up elementUpdate) {
				ke := up.tangent / h
				k.SetSym(e, e, k.At(e, e)+ke)
				k.SetSym(e+1, e+1, k.At(e+1, e+1)+ke)
				k.SetSym(e, e+1, k.At(e, e+1)-ke)
			})
			if err != nil {
				// a failed return map poisons the diagonal
				for i := 0; i <= n; i++ {
					k.SetSym(i, i, math.NaN())
				}
			}
			return k
		},
		Prescribed: func(objective.Params) []float64 { return []float64{0} },
	}
}

func (b *PlasticBar) Objective() nlsolve.Objective[objective.Params] {
	return b.field().Objective(precondOption(b.Precondition)...)
}

func (b *PlasticBar) InitialUnknowns() []float64 {
	return make([]float64, b.Elements)
}

func (b *PlasticBar) InitialParams() objective.Params {
	return objective.NewParams(0.0, make([]float64, 2*b.Elements))
}

func (b *PlasticBar) WithLoad(p objective.Params, load float64) objective.Params {
	return withLoad(p, load)
}

// Commit moves the plastic strains and hardening variables to the
// converged step.
func (b *PlasticBar) Commit(x []float64, p objective.Params) (objective.Params, error) {
	u := b.field().Field(x, p)
	next := append([]float64(nil), p.Vector(StateIndex)...)
	plastic, alpha := next[:b.Elements], next[b.Elements:]

	err := b.forEach(u, p, func(e int, up elementUpdate) {
		plastic[e] += up.dgamma * up.dir
		alpha[e] += up.dgamma
	})
	if err != nil {
		return p, err
	}
	return p.With(StateIndex, next), nil
}

// PlasticStrains returns the committed plastic strain of each element.
func (b *PlasticBar) PlasticStrains(p objective.Params) []float64 {
	plastic, _ := b.state(p)
	return append([]float64(nil), plastic...)
}

// Reaction is the force carried into the support.
func (b *PlasticBar) Reaction(x []float64, p objective.Params) float64 {
	return -b.field().Reactions(x, p)[0]
}

func (b *PlasticBar) Displacement(x []float64, _ objective.Params) float64 {
	return x[len(x)-1]
}
