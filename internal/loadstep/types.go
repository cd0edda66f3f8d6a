package loadstep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/equilib/internal/nlsolve"
)

var (
	// ErrNotConverged indicates a load step whose solve did not converge.
	ErrNotConverged = errors.New("loadstep: solve did not converge")

	// ErrInvalidConfig indicates a step count or load schedule out of range.
	ErrInvalidConfig = errors.New("loadstep: invalid config")
)

// StepError wraps an error with the load step it happened in.
type StepError struct {
	Step    int
	Load    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("load step %d (load %g): %v", e.Step, e.Load, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// Problem is a load-stepped equilibrium problem with parameters P.
type Problem[P any] interface {
	Objective() nlsolve.Objective[P]
	InitialUnknowns() []float64
	InitialParams() P
	// WithLoad returns p with the load parameter replaced.
	WithLoad(p P, load float64) P
	// Commit updates internal state after a converged step.
	Commit(x []float64, p P) (P, error)
	// Reaction is the force conjugate to the load at equilibrium x.
	Reaction(x []float64, p P) float64
	// Displacement is the kinematic quantity plotted against Reaction.
	Displacement(x []float64, p P) float64
}

// OnFailure selects what the driver does with a step that does not converge.
type OnFailure int

const (
	Abort OnFailure = iota
	Accept
	Cutback
)

func (f OnFailure) String() string {
	switch f {
	case Abort:
		return "abort"
	case Accept:
		return "accept"
	case Cutback:
		return "cutback"
	default:
		return fmt.Sprintf("OnFailure(%d)", int(f))
	}
}

func ParseOnFailure(name string) (OnFailure, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "abort":
		return Abort, nil
	case "accept":
		return Accept, nil
	case "cutback":
		return Cutback, nil
	default:
		return 0, fmt.Errorf("%w: unknown failure policy %q", ErrInvalidConfig, name)
	}
}

func (f OnFailure) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *OnFailure) UnmarshalText(text []byte) error {
	parsed, err := ParseOnFailure(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Config describes a load path and how each step is solved.
type Config struct {
	Steps   int
	MaxLoad float64
	// Unload walks the load back to zero after reaching MaxLoad.
	Unload      bool
	OnFailure   OnFailure
	MaxCutbacks int
	Algorithm   nlsolve.Algorithm
	Solver      nlsolve.Settings
}

func DefaultConfig() Config {
	return Config{
		Steps:       10,
		MaxLoad:     1,
		OnFailure:   Abort,
		MaxCutbacks: 4,
		Algorithm:   nlsolve.TrustRegion,
		Solver:      nlsolve.DefaultSettings(),
	}
}

func (c Config) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("%w: steps must be at least 1, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.MaxCutbacks < 0 {
		return fmt.Errorf("%w: max cutbacks must be non-negative, got %d", ErrInvalidConfig, c.MaxCutbacks)
	}
	return c.Solver.Validate()
}

// Loads returns the load at the end of each step.
func (c Config) Loads() []float64 {
	loads := make([]float64, 0, 2*c.Steps)
	for i := 1; i <= c.Steps; i++ {
		loads = append(loads, float64(i)/float64(c.Steps)*c.MaxLoad)
	}
	if c.Unload {
		for i := c.Steps - 1; i >= 0; i-- {
			loads = append(loads, float64(i)/float64(c.Steps)*c.MaxLoad)
		}
	}
	return loads
}

// Step is the record of one load step.
type Step struct {
	Index        int     `json:"index"`
	Load         float64 `json:"load"`
	Displacement float64 `json:"displacement"`
	Reaction     float64 `json:"reaction"`
	Energy       float64 `json:"energy"`
	GradNorm     float64 `json:"grad_norm"`
	Converged    bool    `json:"converged"`
	Iterations   int     `json:"iterations"`
	CGIterations int     `json:"cg_iterations"`
	Cutbacks     int     `json:"cutbacks"`
}

// History is the load path of a run.
type History struct {
	Steps []Step
	// Final holds the unknowns after the last completed step.
	Final []float64
}

func (h *History) Loads() []float64 {
	return h.column(func(s Step) float64 { return s.Load })
}

func (h *History) Displacements() []float64 {
	return h.column(func(s Step) float64 { return s.Displacement })
}

func (h *History) Reactions() []float64 {
	return h.column(func(s Step) float64 { return s.Reaction })
}

func (h *History) column(get func(Step) float64) []float64 {
	out := make([]float64, len(h.Steps))
	for i, s := range h.Steps {
		out[i] = get(s)
	}
	return out
}

// Observer is notified after every recorded step.
type Observer interface {
	OnStep(s Step)
}

type ObserverFunc func(Step)

func (f ObserverFunc) OnStep(s Step) { f(s) }
