package nlsolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSettings indicates tolerances or trust-region knobs out of range.
	ErrInvalidSettings = errors.New("nlsolve: invalid settings")

	// ErrDimensionMismatch indicates an initial point of the wrong length.
	ErrDimensionMismatch = errors.New("nlsolve: dimension mismatch")

	// ErrNonFiniteObjective indicates NaN or Inf at the initial point.
	ErrNonFiniteObjective = errors.New("nlsolve: objective is not finite at the initial point")

	// ErrUnknownAlgorithm indicates an algorithm name that cannot be parsed.
	ErrUnknownAlgorithm = errors.New("nlsolve: unknown algorithm")
)

// Objective is a scalar function of the unknowns x under parameters p.
// Implementations must not retain x, grad, v or hv.
type Objective[P any] interface {
	Value(x []float64, p P) float64
	// Gradient fills grad and returns the objective value.
	Gradient(x []float64, p P, grad []float64) float64
	// HessVec writes the Hessian at x applied to v into hv.
	HessVec(x []float64, p P, v, hv []float64)
}

// HessianOperator is implemented by objectives that can set up the
// Hessian action once per iterate. The returned function is only used
// while x is unchanged.
type HessianOperator[P any] interface {
	HessOperator(x []float64, p P) func(v, hv []float64)
}

// Preconditioner applies an approximate inverse of the Hessian: z = M⁻¹ r.
type Preconditioner interface {
	Apply(r, z []float64)
}

// PrecondStrategy is implemented by objectives that can assemble a
// preconditioner at a point. A nil Preconditioner means identity.
type PrecondStrategy[P any] interface {
	Assemble(x []float64, p P) (Preconditioner, error)
}

// Algorithm selects the outer iteration of Solve.
type Algorithm int

const (
	TrustRegion Algorithm = iota
	Newton
)

func (a Algorithm) String() string {
	switch a {
	case TrustRegion:
		return "trust_region"
	case Newton:
		return "newton"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "trust_region", "trust-region", "tr":
		return TrustRegion, nil
	case "newton":
		return Newton, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Result is the outcome of Solve. X is the best iterate found, whether or
// not the solve converged.
type Result struct {
	X                 []float64
	Value             float64
	GradNorm          float64
	Converged         bool
	Iterations        int
	CGIterations      int
	Rejected          int
	TrustRadius       float64
	PrecondAssemblies int
	Reason            string
}
