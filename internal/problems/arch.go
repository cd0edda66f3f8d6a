package problems

import (
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/objective"
)

// ShallowArch is the von Mises truss: two bars from pinned supports at
// (-HalfSpan, 0) and (HalfSpan, 0) meeting at an apex at (0, Rise). The
// load pushes the apex down. Past the limit load the apex snaps through
// to the inverted configuration.
//
// Only the energy is coded; gradients and curvature come from finite
// differences.
type ShallowArch struct {
	HalfSpan     float64
	Rise         float64
	Stiffness    float64
	Precondition bool
}

func NewShallowArch() *ShallowArch {
	return &ShallowArch{HalfSpan: 1.0, Rise: 0.2, Stiffness: 1000.0}
}

// field layout: support 0 (x, y), support 1 (x, y), apex (x, y)
const apexY = 5

// LimitLoad is the largest apex load on the symmetric equilibrium path.
func (a *ShallowArch) LimitLoad() float64 {
	l0 := math.Hypot(a.HalfSpan, a.Rise)
	return 2 * a.Stiffness * a.Rise * a.Rise * a.Rise / (3 * math.Sqrt(3) * l0 * l0 * l0)
}

// barEnergy uses the Green strain of a bar from (x0, y0) to (x1, y1).
func (a *ShallowArch) barEnergy(x0, y0, x1, y1 float64) float64 {
	l0sq := a.HalfSpan*a.HalfSpan + a.Rise*a.Rise
	dx, dy := x1-x0, y1-y0
	strain := 0.5 * (dx*dx + dy*dy - l0sq) / l0sq
	return 0.5 * a.Stiffness * math.Sqrt(l0sq) * strain * strain
}

func (a *ShallowArch) field() *objective.FieldEnergy[objective.Params] {
	dofs, _ := objective.NewPartition(6, []int{0, 1, 2, 3})
	return &objective.FieldEnergy[objective.Params]{
		Dofs: dofs,
		Energy: func(u []float64, p objective.Params) float64 {
			ax, ay := u[4], a.Rise+u[apexY]
			return a.barEnergy(-a.HalfSpan+u[0], u[1], ax, ay) +
				a.barEnergy(a.HalfSpan+u[2], u[3], ax, ay) +
				p.Scalar(LoadIndex)*u[apexY]
		},
		Prescribed: func(objective.Params) []float64 { return make([]float64, 4) },
	}
}

func (a *ShallowArch) Objective() nlsolve.Objective[objective.Params] {
	return a.field().Objective(precondOption(a.Precondition)...)
}

func (a *ShallowArch) InitialUnknowns() []float64      { return make([]float64, 2) }
func (a *ShallowArch) InitialParams() objective.Params { return objective.NewParams(0.0) }

func (a *ShallowArch) WithLoad(p objective.Params, load float64) objective.Params {
	return withLoad(p, load)
}

func (a *ShallowArch) Commit(_ []float64, p objective.Params) (objective.Params, error) {
	return p, nil
}

// Reaction sums the vertical support reactions.
func (a *ShallowArch) Reaction(x []float64, p objective.Params) float64 {
	r := a.field().Reactions(x, p)
	return r[1] + r[3]
}

// Displacement is the downward deflection of the apex.
func (a *ShallowArch) Displacement(x []float64, _ objective.Params) float64 {
	return -x[1]
}
