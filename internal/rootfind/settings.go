package rootfind

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultXTol     = 1e-13
	DefaultFTol     = 0.0
	DefaultMaxIters = 50
)

var (
	// ErrInvalidSettings indicates a non-positive tolerance or iteration cap.
	ErrInvalidSettings = errors.New("rootfind: invalid settings")

	// ErrInvalidBracket indicates a bracket with Lo >= Hi or non-finite ends.
	ErrInvalidBracket = errors.New("rootfind: invalid bracket")
)

// Settings holds the tolerances of a root search. It is passed by value.
type Settings struct {
	// XTol stops the search once the last step is smaller than XTol. The
	// search also stops when x can no longer move in floating point, so an
	// XTol below the ulp of the root is harmless.
	XTol float64
	// FTol, when positive, also stops the search once |f(x)| < FTol.
	FTol float64
	// MaxIters is the fixed iteration count of the search.
	MaxIters int
}

// Option overrides one field of the default settings.
type Option func(*Settings)

func WithXTol(tol float64) Option { return func(s *Settings) { s.XTol = tol } }
func WithFTol(tol float64) Option { return func(s *Settings) { s.FTol = tol } }
func WithMaxIters(n int) Option   { return func(s *Settings) { s.MaxIters = n } }

// GetSettings returns the default settings with the given overrides applied.
func GetSettings(opts ...Option) Settings {
	s := Settings{
		XTol:     DefaultXTol,
		FTol:     DefaultFTol,
		MaxIters: DefaultMaxIters,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s Settings) Validate() error {
	if !(s.XTol > 0) || math.IsInf(s.XTol, 0) {
		return fmt.Errorf("%w: x_tol must be positive, got %g", ErrInvalidSettings, s.XTol)
	}
	if !(s.FTol >= 0) || math.IsInf(s.FTol, 0) {
		return fmt.Errorf("%w: f_tol must be non-negative, got %g", ErrInvalidSettings, s.FTol)
	}
	if s.MaxIters < 1 {
		return fmt.Errorf("%w: max_iters must be at least 1, got %d", ErrInvalidSettings, s.MaxIters)
	}
	return nil
}

// Bracket is an interval assumed to contain a sign change of f.
type Bracket struct {
	Lo, Hi float64
}

func (b Bracket) Validate() error {
	if math.IsNaN(b.Lo) || math.IsNaN(b.Hi) || math.IsInf(b.Lo, 0) || math.IsInf(b.Hi, 0) {
		return fmt.Errorf("%w: [%g, %g] has non-finite ends", ErrInvalidBracket, b.Lo, b.Hi)
	}
	if b.Lo >= b.Hi {
		return fmt.Errorf("%w: lo %g must be below hi %g", ErrInvalidBracket, b.Lo, b.Hi)
	}
	return nil
}

func (b Bracket) Width() float64 { return b.Hi - b.Lo }

func (b Bracket) Contains(x float64) bool { return x >= b.Lo && x <= b.Hi }
