package rootfind

import "math"

// ScanBracket splits [lo, hi] into n equal cells and returns the first
// cell over which f changes sign or touches zero.
func ScanBracket(f func(float64) float64, lo, hi float64, n int) (Bracket, bool) {
	if n < 1 || !(lo < hi) {
		return Bracket{}, false
	}

	h := (hi - lo) / float64(n)
	xPrev := lo
	fPrev := f(lo)
	for i := 1; i <= n; i++ {
		x := lo + float64(i)*h
		if i == n {
			x = hi
		}
		fx := f(x)
		if !math.IsNaN(fPrev) && !math.IsNaN(fx) && (fPrev == 0 || fx == 0 || math.Signbit(fPrev) != math.Signbit(fx)) {
			return Bracket{Lo: xPrev, Hi: x}, true
		}
		xPrev, fPrev = x, fx
	}
	return Bracket{}, false
}
