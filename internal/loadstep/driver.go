package loadstep

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/equilib/internal/nlsolve"
)

// Driver advances a Problem along the load path of a Config, warm-starting
// each solve from the previous equilibrium.
type Driver[P any] struct {
	observers []Observer
}

func NewDriver[P any]() *Driver[P] {
	return &Driver[P]{observers: make([]Observer, 0)}
}

func (d *Driver[P]) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Run walks the load path. On error the returned History holds the steps
// completed so far.
func (d *Driver[P]) Run(ctx context.Context, prob Problem[P], cfg Config) (*History, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	obj := prob.Objective()
	x := append([]float64(nil), prob.InitialUnknowns()...)
	p := prob.InitialParams()
	hist := &History{Steps: make([]Step, 0, 2*cfg.Steps)}

	prev := 0.0
	for i, load := range cfg.Loads() {
		index := i + 1
		select {
		case <-ctx.Done():
			hist.Final = x
			return hist, &StepError{Step: index, Load: load, Wrapped: ctx.Err()}
		default:
		}

		var (
			step Step
			err  error
		)
		x, p, step, err = d.advance(obj, prob, cfg, x, p, prev, load)
		if err != nil {
			hist.Final = x
			return hist, &StepError{Step: index, Load: load, Wrapped: err}
		}
		step.Index = index
		prev = load

		slog.Info("load step", "step", index, "load", load, "displacement", step.Displacement,
			"reaction", step.Reaction, "iters", step.Iterations, "converged", step.Converged,
			"cutbacks", step.Cutbacks)

		hist.Steps = append(hist.Steps, step)
		for _, obs := range d.observers {
			obs.OnStep(step)
		}
	}

	hist.Final = x
	return hist, nil
}

// advance moves the load from `from` to `to`, splitting the increment on
// failure when the policy is Cutback.
func (d *Driver[P]) advance(obj nlsolve.Objective[P], prob Problem[P], cfg Config,
	x []float64, p P, from, to float64) ([]float64, P, Step, error) {
	step := Step{Load: to}
	current := from
	inc := to - from

	for {
		next := current + inc
		if math.Abs(next-from) >= math.Abs(to-from) {
			next = to
		}
		trial := prob.WithLoad(p, next)
		res, err := nlsolve.Solve(obj, x, trial, cfg.Solver, cfg.Algorithm)
		if err != nil {
			return x, p, step, err
		}
		step.Iterations += res.Iterations
		step.CGIterations += res.CGIterations

		if !res.Converged {
			switch cfg.OnFailure {
			case Abort:
				return x, p, step, fmt.Errorf("%w: %s", ErrNotConverged, res.Reason)
			case Cutback:
				if step.Cutbacks >= cfg.MaxCutbacks {
					return x, p, step, fmt.Errorf("%w after %d cutbacks: %s", ErrNotConverged, step.Cutbacks, res.Reason)
				}
				step.Cutbacks++
				inc /= 2
				slog.Debug("cutting back load increment", "load", next, "increment", inc)
				continue
			}
		}

		x = res.X
		if p, err = prob.Commit(x, trial); err != nil {
			return x, p, step, fmt.Errorf("commit: %w", err)
		}
		current = next
		if next != to {
			continue
		}

		step.Converged = res.Converged
		step.Energy = res.Value
		step.GradNorm = res.GradNorm
		step.Displacement = prob.Displacement(x, p)
		step.Reaction = prob.Reaction(x, p)
		return x, p, step, nil
	}
}
