package metrics

import (
	"math"

	"github.com/san-kum/equilib/internal/loadstep"
)

// PeakReaction is the largest reaction magnitude seen.
type PeakReaction struct {
	peak float64
}

func NewPeakReaction() *PeakReaction { return &PeakReaction{} }

func (p *PeakReaction) Name() string { return "peak_reaction" }

func (p *PeakReaction) Observe(s loadstep.Step) {
	p.peak = math.Max(p.peak, math.Abs(s.Reaction))
}

func (p *PeakReaction) Value() float64 { return p.peak }
func (p *PeakReaction) Reset()         { p.peak = 0 }

type MaxDisplacement struct {
	max float64
}

func NewMaxDisplacement() *MaxDisplacement { return &MaxDisplacement{} }

func (m *MaxDisplacement) Name() string { return "max_displacement" }

func (m *MaxDisplacement) Observe(s loadstep.Step) {
	m.max = math.Max(m.max, math.Abs(s.Displacement))
}

func (m *MaxDisplacement) Value() float64 { return m.max }
func (m *MaxDisplacement) Reset()         { m.max = 0 }

// Work integrates reaction over displacement with the trapezoidal rule,
// starting from the unloaded origin. Over a closed load cycle it is the
// energy dissipated by the material.
type Work struct {
	work  float64
	lastU float64
	lastR float64
}

func NewWork() *Work { return &Work{} }

func (w *Work) Name() string { return "work" }

func (w *Work) Observe(s loadstep.Step) {
	w.work += 0.5 * (s.Reaction + w.lastR) * (s.Displacement - w.lastU)
	w.lastU, w.lastR = s.Displacement, s.Reaction
}

func (w *Work) Value() float64 { return w.work }

func (w *Work) Reset() { w.work, w.lastU, w.lastR = 0, 0, 0 }

// SnapThrough counts steps whose displacement increment is more than
// factor times the previous one, the signature of a limit point under
// load control.
type SnapThrough struct {
	factor float64
	lastU  float64
	lastDU float64
	count  int
}

func NewSnapThrough(factor float64) *SnapThrough {
	return &SnapThrough{factor: factor}
}

func (j *SnapThrough) Name() string { return "snap_throughs" }

func (j *SnapThrough) Observe(s loadstep.Step) {
	du := math.Abs(s.Displacement - j.lastU)
	if j.lastDU > 0 && du > j.factor*j.lastDU {
		j.count++
	}
	j.lastU, j.lastDU = s.Displacement, du
}

func (j *SnapThrough) Value() float64 { return float64(j.count) }

func (j *SnapThrough) Reset() {
	j.lastU, j.lastDU = 0, 0
	j.count = 0
}
