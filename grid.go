// Package geogrid subsets, normalizes and selects bands from labeled
// latitude/longitude grids of satellite measurements.
package geogrid

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
)

var (
	// ErrNoCoordinate is returned when a grid lacks a latitude or longitude
	// dimension
	ErrNoCoordinate = errors.New("coordinate not found")
	// ErrShapeMismatch is returned when data, dimensions and coordinates
	// disagree on size
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNilGrid is returned when an operation is handed a nil grid
	ErrNilGrid = errors.New("nil grid")
)

var (
	latitudeNames  = []string{"latitude", "lat"}
	longitudeNames = []string{"longitude", "lon"}
)

// Attributes holds free-form metadata such as "units" and "long_name"
type Attributes map[string]interface{}

// String returns the attribute stored under key if it is a string
func (a Attributes) String(key string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return ""
}

func (a Attributes) copy() Attributes {
	if a == nil {
		return nil
	}
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Grid is a labeled numeric array. Data is stored row-major, with the last
// dimension varying fastest. Coords maps a dimension name to its coordinate
// axis. Masked positions hold NaN.
type Grid struct {
	Name   string
	Dims   []string
	Shape  []int
	Data   []float64
	Coords map[string][]float64
	Attrs  Attributes
}

// NewGrid constructs a grid, checking that data and coordinates agree with
// the shape
func NewGrid(name string, dims []string, shape []int, data []float64, coords map[string][]float64) (*Grid, error) {
	g := &Grid{
		Name:   name,
		Dims:   dims,
		Shape:  shape,
		Data:   data,
		Coords: coords,
		Attrs:  Attributes{},
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the grid's internal consistency
func (g *Grid) Validate() error {
	if len(g.Dims) != len(g.Shape) {
		return fmt.Errorf("%w: %d dims for %d-d shape", ErrShapeMismatch, len(g.Dims), len(g.Shape))
	}
	if n := size(g.Shape); n != len(g.Data) {
		return fmt.Errorf("%w: shape %v holds %d values, got %d", ErrShapeMismatch, g.Shape, n, len(g.Data))
	}
	for name, axis := range g.Coords {
		i := g.axis(name)
		if i < 0 {
			return fmt.Errorf("%w: coordinate %q is not a dimension", ErrShapeMismatch, name)
		}
		if len(axis) != g.Shape[i] {
			return fmt.Errorf("%w: coordinate %q has %d values, dimension has %d", ErrShapeMismatch, name, len(axis), g.Shape[i])
		}
	}
	return nil
}

// Size is the total number of elements
func (g *Grid) Size() int {
	return size(g.Shape)
}

// Copy returns a deep copy of g
func (g *Grid) Copy() *Grid {
	c := &Grid{
		Name:   g.Name,
		Dims:   append([]string(nil), g.Dims...),
		Shape:  append([]int(nil), g.Shape...),
		Data:   append([]float64(nil), g.Data...),
		Coords: make(map[string][]float64, len(g.Coords)),
		Attrs:  g.Attrs.copy(),
	}
	for k, v := range g.Coords {
		c.Coords[k] = append([]float64(nil), v...)
	}
	return c
}

// At returns the value at the given per-dimension index
func (g *Grid) At(idx ...int) float64 {
	if len(idx) != len(g.Shape) {
		panic(fmt.Sprintf("geogrid: %d indices for %d-d grid", len(idx), len(g.Shape)))
	}
	off := 0
	for i, n := range g.Shape {
		if idx[i] < 0 || idx[i] >= n {
			panic(fmt.Sprintf("geogrid: index %d out of range for dimension %q", idx[i], g.Dims[i]))
		}
		off = off*n + idx[i]
	}
	return g.Data[off]
}

// LatitudeDim returns the name of the latitude dimension
func (g *Grid) LatitudeDim() (string, error) {
	return g.findDim(latitudeNames)
}

// LongitudeDim returns the name of the longitude dimension
func (g *Grid) LongitudeDim() (string, error) {
	return g.findDim(longitudeNames)
}

// Latitude returns the latitude coordinate axis, or nil
func (g *Grid) Latitude() []float64 {
	name, err := g.LatitudeDim()
	if err != nil {
		return nil
	}
	return g.Coords[name]
}

// Longitude returns the longitude coordinate axis, or nil
func (g *Grid) Longitude() []float64 {
	name, err := g.LongitudeDim()
	if err != nil {
		return nil
	}
	return g.Coords[name]
}

func (g *Grid) findDim(names []string) (string, error) {
	if g == nil {
		return "", ErrNilGrid
	}
	for _, n := range names {
		if i := g.axis(n); i >= 0 {
			if _, ok := g.Coords[n]; !ok {
				return "", fmt.Errorf("%w: dimension %q has no coordinate values", ErrNoCoordinate, n)
			}
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: grid %q has none of %v", ErrNoCoordinate, g.Name, names)
}

func (g *Grid) axis(name string) int {
	for i, d := range g.Dims {
		if d == name {
			return i
		}
	}
	return -1
}

// Slice selects index i along the leading dimension of a grid with more
// than two dimensions, dropping that dimension
func (g *Grid) Slice(i int) (*Grid, error) {
	if len(g.Shape) < 3 {
		return nil, fmt.Errorf("%w: cannot slice a %d-d grid", ErrShapeMismatch, len(g.Shape))
	}
	if i < 0 || i >= g.Shape[0] {
		return nil, fmt.Errorf("index %d out of range for dimension %q of length %d", i, g.Dims[0], g.Shape[0])
	}
	inner := size(g.Shape[1:])
	out := &Grid{
		Name:   g.Name,
		Dims:   append([]string(nil), g.Dims[1:]...),
		Shape:  append([]int(nil), g.Shape[1:]...),
		Data:   append([]float64(nil), g.Data[i*inner:(i+1)*inner]...),
		Coords: map[string][]float64{},
		Attrs:  g.Attrs.copy(),
	}
	for _, d := range out.Dims {
		if c, ok := g.Coords[d]; ok {
			out.Coords[d] = append([]float64(nil), c...)
		}
	}
	return out, nil
}

// Bounds returns the coordinate extent of g with longitude as X and
// latitude as Y. Empty bounds are returned for an empty grid.
func (g *Grid) Bounds() (*geom.Bounds, error) {
	lat, err := g.LatitudeDim()
	if err != nil {
		return nil, err
	}
	lon, err := g.LongitudeDim()
	if err != nil {
		return nil, err
	}
	b := geom.NewBounds()
	for _, y := range g.Coords[lat] {
		for _, x := range g.Coords[lon] {
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
		}
	}
	return b, nil
}

// take returns a copy of g keeping only idx along axis
func (g *Grid) take(axis int, idx []int) *Grid {
	outer := size(g.Shape[:axis])
	inner := size(g.Shape[axis+1:])
	n := g.Shape[axis]

	out := &Grid{
		Name:   g.Name,
		Dims:   append([]string(nil), g.Dims...),
		Shape:  append([]int(nil), g.Shape...),
		Data:   make([]float64, outer*len(idx)*inner),
		Coords: make(map[string][]float64, len(g.Coords)),
		Attrs:  g.Attrs.copy(),
	}
	out.Shape[axis] = len(idx)

	for o := 0; o < outer; o++ {
		for j, k := range idx {
			src := (o*n + k) * inner
			dst := (o*len(idx) + j) * inner
			copy(out.Data[dst:dst+inner], g.Data[src:src+inner])
		}
	}

	for name, c := range g.Coords {
		if name != g.Dims[axis] {
			out.Coords[name] = append([]float64(nil), c...)
			continue
		}
		sel := make([]float64, len(idx))
		for j, k := range idx {
			sel[j] = c[k]
		}
		out.Coords[name] = sel
	}
	return out
}

// SortByCoords returns a copy of g with latitude and longitude ascending.
// Reassigned longitudes are otherwise left in source order.
func SortByCoords(g *Grid) (*Grid, error) {
	lat, err := g.LatitudeDim()
	if err != nil {
		return nil, err
	}
	lon, err := g.LongitudeDim()
	if err != nil {
		return nil, err
	}
	out := g.take(g.axis(lat), ascending(g.Coords[lat]))
	return out.take(out.axis(lon), ascending(out.Coords[lon])), nil
}

func ascending(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] < vals[idx[b]]
	})
	return idx
}

func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
