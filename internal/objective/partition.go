package objective

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrBadPartition indicates a fixed index outside the field.
var ErrBadPartition = errors.New("objective: invalid partition")

// Partition splits the entries of a field into unknowns and prescribed
// (fixed) values.
type Partition struct {
	size    int
	isFixed []bool
	free    []int
	fixed   []int
}

func NewPartition(size int, fixed []int) (*Partition, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: field size %d", ErrBadPartition, size)
	}
	isFixed := make([]bool, size)
	for _, i := range fixed {
		if i < 0 || i >= size {
			return nil, fmt.Errorf("%w: index %d outside field of size %d", ErrBadPartition, i, size)
		}
		isFixed[i] = true
	}

	d := &Partition{size: size, isFixed: isFixed}
	for i, f := range isFixed {
		if f {
			d.fixed = append(d.fixed, i)
		} else {
			d.free = append(d.free, i)
		}
	}
	return d, nil
}

func (d *Partition) Size() int          { return d.size }
func (d *Partition) UnknownSize() int   { return len(d.free) }
func (d *Partition) FixedSize() int     { return len(d.fixed) }
func (d *Partition) IsFixed(i int) bool { return d.isFixed[i] }

// FixedIndex returns the position of field entry i among the fixed entries.
func (d *Partition) FixedIndex(i int) int {
	return sort.SearchInts(d.fixed, i)
}

// CreateField scatters unknowns and fixed values into a full field.
func (d *Partition) CreateField(unknowns, fixedValues []float64) []float64 {
	u := make([]float64, d.size)
	for k, i := range d.free {
		u[i] = unknowns[k]
	}
	for k, i := range d.fixed {
		u[i] = fixedValues[k]
	}
	return u
}

func (d *Partition) Unknowns(field []float64) []float64 {
	out := make([]float64, len(d.free))
	for k, i := range d.free {
		out[k] = field[i]
	}
	return out
}

func (d *Partition) FixedValues(field []float64) []float64 {
	out := make([]float64, len(d.fixed))
	for k, i := range d.fixed {
		out[k] = field[i]
	}
	return out
}

// FreeBlock extracts the unknown-unknown block of a full stiffness.
func (d *Partition) FreeBlock(k *mat.SymDense) *mat.SymDense {
	n := len(d.free)
	out := mat.NewSymDense(n, nil)
	for a, i := range d.free {
		for b := a; b < n; b++ {
			out.SetSym(a, b, k.At(i, d.free[b]))
		}
	}
	return out
}
