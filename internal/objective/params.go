package objective

import "fmt"

// Params is an immutable tuple of problem parameters. The solver threads
// it through unchanged; only the owning problem interprets the entries.
type Params struct {
	entries []any
}

func NewParams(entries ...any) Params {
	return Params{entries: append([]any(nil), entries...)}
}

func (p Params) Len() int { return len(p.entries) }

func (p Params) At(i int) any { return p.entries[i] }

// Scalar returns entry i as a float64, or 0 if it holds something else.
func (p Params) Scalar(i int) float64 {
	v, _ := p.entries[i].(float64)
	return v
}

// Vector returns entry i as a []float64, or nil if it holds something else.
func (p Params) Vector(i int) []float64 {
	v, _ := p.entries[i].([]float64)
	return v
}

// With returns a copy of p with entry i replaced by v.
func (p Params) With(i int, v any) Params {
	if i < 0 || i >= len(p.entries) {
		panic(fmt.Sprintf("objective: params index %d out of range [0, %d)", i, len(p.entries)))
	}
	entries := append([]any(nil), p.entries...)
	entries[i] = v
	return Params{entries: entries}
}
