package geogrid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Normalizable is the set of operations Normalize needs from an array type
type Normalizable[T any] interface {
	Min() float64
	Max() float64
	SubScalar(v float64) T
	DivScalar(v float64) T
}

// Normalize rescales a to [0, 1] using its own minimum and maximum. A
// constant input has max == min, so every value becomes 0/0 = NaN. That
// result is returned as is, not reported as an error.
func Normalize[T Normalizable[T]](a T) T {
	lo, hi := a.Min(), a.Max()
	return a.SubScalar(lo).DivScalar(hi - lo)
}

// Min returns the smallest value, skipping NaN. An empty or all-NaN grid
// reduces to NaN.
func (g *Grid) Min() float64 {
	if len(g.Data) == 0 {
		return math.NaN()
	}
	return floats.Min(g.Data)
}

// Max returns the largest value, skipping NaN. An empty or all-NaN grid
// reduces to NaN.
func (g *Grid) Max() float64 {
	if len(g.Data) == 0 {
		return math.NaN()
	}
	return floats.Max(g.Data)
}

// SubScalar returns a copy of g with v subtracted from every value
func (g *Grid) SubScalar(v float64) *Grid {
	out := g.Copy()
	for i := range out.Data {
		out.Data[i] -= v
	}
	return out
}

// DivScalar returns a copy of g with every value divided by v
func (g *Grid) DivScalar(v float64) *Grid {
	out := g.Copy()
	for i := range out.Data {
		out.Data[i] /= v
	}
	return out
}

// Values is an unlabeled numeric array. Unlike Grid, its reductions
// propagate NaN.
type Values []float64

func (v Values) Min() float64 {
	if len(v) == 0 || floats.HasNaN(v) {
		return math.NaN()
	}
	return floats.Min(v)
}

func (v Values) Max() float64 {
	if len(v) == 0 || floats.HasNaN(v) {
		return math.NaN()
	}
	return floats.Max(v)
}

func (v Values) SubScalar(s float64) Values {
	out := make(Values, len(v))
	for i, x := range v {
		out[i] = x - s
	}
	return out
}

func (v Values) DivScalar(s float64) Values {
	out := make(Values, len(v))
	for i, x := range v {
		out[i] = x / s
	}
	return out
}

// Matrix adapts a gonum dense matrix for Normalize
type Matrix struct {
	*mat.Dense
}

func (m Matrix) Min() float64 { return mat.Min(m.Dense) }
func (m Matrix) Max() float64 { return mat.Max(m.Dense) }

func (m Matrix) SubScalar(s float64) Matrix {
	var out mat.Dense
	out.Apply(func(_, _ int, x float64) float64 { return x - s }, m.Dense)
	return Matrix{&out}
}

func (m Matrix) DivScalar(s float64) Matrix {
	var out mat.Dense
	out.Apply(func(_, _ int, x float64) float64 { return x / s }, m.Dense)
	return Matrix{&out}
}

var (
	_ Normalizable[*Grid]  = (*Grid)(nil)
	_ Normalizable[Values] = Values(nil)
	_ Normalizable[Matrix] = Matrix{}
)
