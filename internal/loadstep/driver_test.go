package loadstep_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/equilib/internal/loadstep"
	"github.com/san-kum/equilib/internal/nlsolve"
	"github.com/san-kum/equilib/internal/objective"
	"gonum.org/v1/gonum/mat"
)

// springChain is a chain of nonlinear springs (e + e³ force law) fixed
// at the left end and pulled by a force at the right end.
type springChain struct {
	n       int
	commits int
}

func (c *springChain) strains(u []float64) []float64 {
	e := make([]float64, c.n)
	prev := 0.0
	for i, ui := range u {
		e[i] = ui - prev
		prev = ui
	}
	return e
}

func (c *springChain) Objective() nlsolve.Objective[float64] {
	value := func(u []float64, load float64) float64 {
		f := -load * u[c.n-1]
		for _, e := range c.strains(u) {
			f += 0.5*e*e + 0.25*e*e*e*e
		}
		return f
	}
	grad := func(u []float64, load float64, g []float64) float64 {
		for i := range g {
			g[i] = 0
		}
		for i, e := range c.strains(u) {
			s := e + e*e*e
			g[i] += s
			if i > 0 {
				g[i-1] -= s
			}
		}
		g[c.n-1] -= load
		return value(u, load)
	}
	stiffness := func(u []float64, _ float64) *mat.SymDense {
		k := mat.NewSymDense(c.n, nil)
		for i, e := range c.strains(u) {
			ke := 1 + 3*e*e
			k.SetSym(i, i, k.At(i, i)+ke)
			if i > 0 {
				k.SetSym(i-1, i-1, k.At(i-1, i-1)+ke)
				k.SetSym(i-1, i, k.At(i-1, i)-ke)
			}
		}
		return k
	}
	return objective.New(value, objective.WithGradient(grad), objective.WithStiffness(stiffness))
}

func (c *springChain) InitialUnknowns() []float64                 { return make([]float64, c.n) }
func (c *springChain) InitialParams() float64                     { return 0 }
func (c *springChain) WithLoad(_ float64, load float64) float64   { return load }
func (c *springChain) Reaction(_ []float64, load float64) float64 { return load }
func (c *springChain) Displacement(x []float64, _ float64) float64 {
	return x[c.n-1]
}

func (c *springChain) Commit(_ []float64, p float64) (float64, error) {
	c.commits++
	return p, nil
}

// tipDisplacement solves e + e³ = load for the spring strain.
func tipDisplacement(n int, load float64) float64 {
	e := load
	for i := 0; i < 50; i++ {
		e -= (e + e*e*e - load) / (1 + 3*e*e)
	}
	return float64(n) * e
}

var _ = Describe("Driver", func() {
	var (
		chain *springChain
		cfg   loadstep.Config
		ctx   context.Context
	)

	BeforeEach(func() {
		chain = &springChain{n: 10}
		cfg = loadstep.DefaultConfig()
		cfg.Steps = 4
		cfg.MaxLoad = 2
		ctx = context.Background()
	})

	Describe("Config", func() {
		It("loads then unloads to zero", func() {
			cfg.Unload = true
			Expect(cfg.Loads()).To(Equal([]float64{0.5, 1, 1.5, 2, 1.5, 1, 0.5, 0}))
		})

		It("rejects an empty schedule", func() {
			cfg.Steps = 0
			_, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).To(MatchError(loadstep.ErrInvalidConfig))
		})

		It("parses failure policies", func() {
			for _, name := range []string{"abort", "accept", "cutback"} {
				f, err := loadstep.ParseOnFailure(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(f.String()).To(Equal(name))
			}
			_, err := loadstep.ParseOnFailure("retry")
			Expect(err).To(MatchError(loadstep.ErrInvalidConfig))
		})
	})

	Describe("Run", func() {
		It("follows the equilibrium path", func() {
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist.Steps).To(HaveLen(4))
			for i, s := range hist.Steps {
				Expect(s.Index).To(Equal(i + 1))
				Expect(s.Converged).To(BeTrue())
				Expect(s.Displacement).To(BeNumerically("~", tipDisplacement(10, s.Load), 1e-7))
			}
			Expect(hist.Reactions()).To(Equal(hist.Loads()))
			Expect(chain.commits).To(Equal(4))
		})

		It("warm starts each step", func() {
			warm, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.Steps = 1
			cold, err := loadstep.NewDriver[float64]().Run(ctx, &springChain{n: 10}, cfg)
			Expect(err).NotTo(HaveOccurred())

			last := warm.Steps[len(warm.Steps)-1]
			Expect(last.Iterations).To(BeNumerically("<", cold.Steps[0].Iterations))
		})

		It("returns to the origin after unloading", func() {
			cfg.Unload = true
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist.Steps).To(HaveLen(8))
			Expect(hist.Final).To(HaveLen(10))
			for _, u := range hist.Final {
				Expect(u).To(BeNumerically("~", 0, 1e-7))
			}
		})

		It("notifies observers after every step", func() {
			var seen []int
			d := loadstep.NewDriver[float64]()
			d.AddObserver(loadstep.ObserverFunc(func(s loadstep.Step) { seen = append(seen, s.Index) }))
			_, err := d.Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(Equal([]int{1, 2, 3, 4}))
		})

		It("solves with Newton", func() {
			cfg.Algorithm = nlsolve.Newton
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist.Steps[3].Displacement).To(BeNumerically("~", 10, 1e-7))
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			d := loadstep.NewDriver[float64]()
			d.AddObserver(loadstep.ObserverFunc(func(s loadstep.Step) {
				if s.Index == 2 {
					cancel()
				}
			}))

			hist, err := d.Run(canceled, chain, cfg)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			var stepErr *loadstep.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(3))
			Expect(hist.Steps).To(HaveLen(2))
		})
	})

	Describe("non-converged steps", func() {
		BeforeEach(func() {
			cfg.Steps = 1
			cfg.Solver = nlsolve.GetSettings(nlsolve.WithMaxTrustIters(6))
		})

		It("aborts with a StepError", func() {
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).To(MatchError(loadstep.ErrNotConverged))
			var stepErr *loadstep.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))
			Expect(stepErr.Load).To(Equal(2.0))
			Expect(hist.Steps).To(BeEmpty())
			Expect(chain.commits).To(BeZero())
		})

		It("accepts the best iterate", func() {
			cfg.OnFailure = loadstep.Accept
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist.Steps).To(HaveLen(1))
			Expect(hist.Steps[0].Converged).To(BeFalse())
			Expect(hist.Steps[0].Iterations).To(Equal(6))
		})

		It("cuts the increment back until the solve converges", func() {
			cfg.OnFailure = loadstep.Cutback
			hist, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).NotTo(HaveOccurred())
			s := hist.Steps[0]
			Expect(s.Converged).To(BeTrue())
			Expect(s.Cutbacks).To(BeNumerically(">=", 1))
			Expect(s.Displacement).To(BeNumerically("~", 10, 1e-7))
			Expect(chain.commits).To(BeNumerically(">", 1))
		})

		It("gives up after MaxCutbacks", func() {
			cfg.OnFailure = loadstep.Cutback
			cfg.MaxCutbacks = 0
			_, err := loadstep.NewDriver[float64]().Run(ctx, chain, cfg)
			Expect(err).To(MatchError(loadstep.ErrNotConverged))
		})
	})
})
