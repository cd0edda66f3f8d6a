package rootfind

import (
	"math"
	"testing"
)

func TestScanBracket(t *testing.T) {
	f := func(x float64) float64 { return x*x*x - 4.0 }

	b, ok := ScanBracket(f, 0, 10, 10)
	if !ok {
		t.Fatal("expected a bracket")
	}
	if b.Lo != 1 || b.Hi != 2 {
		t.Errorf("ScanBracket() = %v, want [1, 2]", b)
	}

	root, err := Rtsafe(WithDerivative(f, func(x float64) float64 { return 3 * x * x }), b.Lo, b, GetSettings())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(root-math.Cbrt(4)) > 1e-13 {
		t.Errorf("root = %v, want %v", root, math.Cbrt(4))
	}
}

func TestScanBracket_NoSignChange(t *testing.T) {
	f := func(x float64) float64 { return x*x + 1 }

	tests := []struct {
		name   string
		lo, hi float64
		n      int
	}{
		{"positive function", -5, 5, 20},
		{"no cells", 0, 1, 0},
		{"reversed range", 1, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ScanBracket(f, tt.lo, tt.hi, tt.n); ok {
				t.Error("expected no bracket")
			}
		})
	}
}
