package nlsolve

import (
	"fmt"
	"math"
)

const (
	DefaultT1                     = 0.25
	DefaultT2                     = 1.75
	DefaultEta1                   = 1e-10
	DefaultEta2                   = 0.1
	DefaultEta3                   = 0.5
	DefaultMaxTrustIters          = 100
	DefaultTol                    = 1e-8
	DefaultMaxCGIters             = 50
	DefaultMaxCumulativeCGIters   = 1000
	DefaultOverIters              = 0
	DefaultCGInexactSolveRatio    = 1e-5
	DefaultTrSize                 = 2.0
	DefaultMaxTrSize              = 1e6
	DefaultMinTrSize              = 1e-8
	DefaultPrecondUpdateFrequency = 1
	DefaultMaxNewtonIters         = 50
)

// Settings holds the knobs of Solve. It is passed by value and never
// modified by the solver.
type Settings struct {
	// T1 shrinks the radius after a poor step; T2 grows it after a good
	// step that reached the boundary.
	T1, T2 float64
	// Eta1 is the acceptance threshold on ρ, Eta2 the shrink threshold
	// and Eta3 the growth threshold.
	Eta1, Eta2, Eta3 float64

	MaxTrustIters int
	// Tol is the gradient norm at which the solve has converged.
	Tol float64

	MaxCGIters           int
	MaxCumulativeCGIters int
	// OverIters lets a subproblem solve run past MaxCGIters while its
	// residual keeps dropping.
	OverIters int
	// CGInexactSolveRatio scales the gradient norm into the CG residual target.
	CGInexactSolveRatio float64

	TrSize, MaxTrSize, MinTrSize float64

	// UsePreconditionedInnerProduct measures the trust region in the
	// preconditioner norm instead of the Euclidean one.
	UsePreconditionedInnerProduct bool
	// PrecondUpdateFrequency reassembles the preconditioner every that
	// many accepted steps; 0 keeps the first one for the whole solve.
	PrecondUpdateFrequency int

	MaxNewtonIters int
}

func DefaultSettings() Settings {
	return Settings{
		T1:                     DefaultT1,
		T2:                     DefaultT2,
		Eta1:                   DefaultEta1,
		Eta2:                   DefaultEta2,
		Eta3:                   DefaultEta3,
		MaxTrustIters:          DefaultMaxTrustIters,
		Tol:                    DefaultTol,
		MaxCGIters:             DefaultMaxCGIters,
		MaxCumulativeCGIters:   DefaultMaxCumulativeCGIters,
		OverIters:              DefaultOverIters,
		CGInexactSolveRatio:    DefaultCGInexactSolveRatio,
		TrSize:                 DefaultTrSize,
		MaxTrSize:              DefaultMaxTrSize,
		MinTrSize:              DefaultMinTrSize,
		PrecondUpdateFrequency: DefaultPrecondUpdateFrequency,
		MaxNewtonIters:         DefaultMaxNewtonIters,
	}
}

// Option overrides part of the default settings.
type Option func(*Settings)

// GetSettings returns the defaults with the given overrides applied.
func GetSettings(opts ...Option) Settings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTrustRegion sets the radius factors and ratio thresholds together.
func WithTrustRegion(t1, t2, eta1, eta2, eta3 float64) Option {
	return func(s *Settings) {
		s.T1, s.T2 = t1, t2
		s.Eta1, s.Eta2, s.Eta3 = eta1, eta2, eta3
	}
}

func WithTol(tol float64) Option            { return func(s *Settings) { s.Tol = tol } }
func WithMaxTrustIters(n int) Option        { return func(s *Settings) { s.MaxTrustIters = n } }
func WithMaxNewtonIters(n int) Option       { return func(s *Settings) { s.MaxNewtonIters = n } }
func WithMaxCGIters(n int) Option           { return func(s *Settings) { s.MaxCGIters = n } }
func WithMaxCumulativeCGIters(n int) Option { return func(s *Settings) { s.MaxCumulativeCGIters = n } }
func WithOverIters(n int) Option            { return func(s *Settings) { s.OverIters = n } }
func WithTrSize(size float64) Option        { return func(s *Settings) { s.TrSize = size } }
func WithPrecondUpdateFrequency(n int) Option {
	return func(s *Settings) { s.PrecondUpdateFrequency = n }
}
func WithPreconditionedInnerProduct(on bool) Option {
	return func(s *Settings) { s.UsePreconditionedInnerProduct = on }
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func (s Settings) Validate() error {
	switch {
	case !positive(s.Tol):
		return fmt.Errorf("%w: tol must be positive, got %g", ErrInvalidSettings, s.Tol)
	case !(s.T1 > 0 && s.T1 < 1):
		return fmt.Errorf("%w: t1 must lie in (0, 1), got %g", ErrInvalidSettings, s.T1)
	case !(s.T2 > 1) || math.IsInf(s.T2, 0):
		return fmt.Errorf("%w: t2 must exceed 1, got %g", ErrInvalidSettings, s.T2)
	case !(s.Eta1 >= 0 && s.Eta1 < s.Eta2 && s.Eta2 <= s.Eta3 && s.Eta3 < 1):
		return fmt.Errorf("%w: need 0 <= eta1 < eta2 <= eta3 < 1, got %g, %g, %g",
			ErrInvalidSettings, s.Eta1, s.Eta2, s.Eta3)
	case s.MaxTrustIters < 1:
		return fmt.Errorf("%w: max_trust_iters must be at least 1, got %d", ErrInvalidSettings, s.MaxTrustIters)
	case s.MaxNewtonIters < 1:
		return fmt.Errorf("%w: max_newton_iters must be at least 1, got %d", ErrInvalidSettings, s.MaxNewtonIters)
	case s.MaxCGIters < 1:
		return fmt.Errorf("%w: max_cg_iters must be at least 1, got %d", ErrInvalidSettings, s.MaxCGIters)
	case s.MaxCumulativeCGIters < 1:
		return fmt.Errorf("%w: max_cumulative_cg_iters must be at least 1, got %d", ErrInvalidSettings, s.MaxCumulativeCGIters)
	case s.OverIters < 0:
		return fmt.Errorf("%w: over_iters must be non-negative, got %d", ErrInvalidSettings, s.OverIters)
	case !positive(s.CGInexactSolveRatio) || s.CGInexactSolveRatio >= 1:
		return fmt.Errorf("%w: cg_inexact_solve_ratio must lie in (0, 1), got %g", ErrInvalidSettings, s.CGInexactSolveRatio)
	case !positive(s.MinTrSize) || !(s.MinTrSize <= s.TrSize) || !(s.TrSize <= s.MaxTrSize) || math.IsInf(s.MaxTrSize, 0):
		return fmt.Errorf("%w: need 0 < min_tr_size <= tr_size <= max_tr_size, got %g, %g, %g",
			ErrInvalidSettings, s.MinTrSize, s.TrSize, s.MaxTrSize)
	case s.PrecondUpdateFrequency < 0:
		return fmt.Errorf("%w: precond_update_frequency must be non-negative, got %d", ErrInvalidSettings, s.PrecondUpdateFrequency)
	}
	return nil
}
