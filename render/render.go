// Package render draws geogrid grids as PNG maps using gonum/plot: single
// bands as heat maps with a color bar, and three bands as an RGB composite.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/qri-io/geogrid"
)

const (
	// DefaultDPI is the resolution figures are written at when none is given
	DefaultDPI = 300
	// DefaultWidth and DefaultHeight size figures when none is given
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch

	paletteSize      = 255
	colorBarFraction = 0.14
	dirPermission    = 0755
)

var (
	// ErrEmptyGrid is returned when there is nothing to draw
	ErrEmptyGrid = errors.New("empty grid")
	// ErrInvalidRange is returned when the color range is NaN or not
	// increasing
	ErrInvalidRange = errors.New("invalid color range")
)

// SingleOptions configure RenderSingle. The zero value renders with
// PlateCarree, the default color scale and the data range, writing nothing.
type SingleOptions struct {
	Projection Projection
	// ColorScale names a color map, see ColorMap
	ColorScale string
	// Unit and LongName label the color bar. They default to the grid's
	// "units" and "long_name" attributes.
	Unit     string
	LongName string
	// VMin and VMax fix the color range. Nil uses the data range.
	VMin, VMax *float64
	// Global draws the whole projected world. Otherwise a non-nil Extent
	// limits the axes to that box.
	Global bool
	Extent *geogrid.BoundingBox
	// Output is the PNG path to write. Nothing is written when empty.
	Output        string
	Width, Height vg.Length
	DPI           int
}

func (o *SingleOptions) defaults() {
	if o.Projection == nil {
		o.Projection = PlateCarree{}
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
}

// Figure is a map beside its color bar
type Figure struct {
	Map      *plot.Plot
	ColorBar *plot.Plot
	Width    vg.Length
	Height   vg.Length
	DPI      int
}

// Draw lays the map and color bar out side by side on c
func (f *Figure) Draw(c draw.Canvas) {
	bar := (c.Max.X - c.Min.X) * colorBarFraction
	f.Map.Draw(draw.Crop(c, 0, -bar, 0, 0))
	f.ColorBar.Draw(draw.Crop(c, c.Max.X-c.Min.X-bar, 0, 0, 0))
}

// WriteTo encodes the figure as PNG at f.DPI
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	return writePNG(w, f.Width, f.Height, f.DPI, f.Draw)
}

// Save writes the figure as a PNG file at the given resolution
func (f *Figure) Save(path string, dpi int) error {
	return savePNG(path, f.Width, f.Height, dpi, f.Draw)
}

// RenderSingle draws g as a heat map with a labeled color bar and
// graticule. A grid with more than two dimensions is drawn from its first
// slice along the leading dimension. The figure is written to opts.Output
// when set.
func RenderSingle(g *geogrid.Grid, opts SingleOptions) (*Figure, error) {
	opts.defaults()
	cm, err := ColorMap(opts.ColorScale)
	if err != nil {
		return nil, err
	}
	m, err := newMapGrid(g)
	if err != nil {
		return nil, err
	}

	lo, hi := m.g.Min(), m.g.Max()
	if opts.VMin != nil {
		lo = *opts.VMin
	}
	if opts.VMax != nil {
		hi = *opts.VMax
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || lo >= hi {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, lo, hi)
	}

	hg, err := newHeatGrid(m, opts.Projection)
	if err != nil {
		return nil, err
	}

	cm.SetMax(hi)
	cm.SetMin(lo)
	pal := cm.Palette(paletteSize)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(hg, pal)
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	hm.Rasterized = hg.regular()

	name, unit := opts.LongName, opts.Unit
	if name == "" {
		name = g.Attrs.String("long_name")
	}
	if name == "" {
		name = g.Name
	}
	if unit == "" {
		unit = g.Attrs.String("units")
	}
	label := name
	if unit != "" {
		label = fmt.Sprintf("%s [%s]", name, unit)
	}

	p := plot.New()
	p.Title.Text = name
	p.Add(hm, plotter.NewGrid())
	if _, ok := opts.Projection.(PlateCarree); ok {
		p.X.Label.Text = "longitude"
		p.Y.Label.Text = "latitude"
	} else {
		p.X.Label.Text = fmt.Sprintf("x (%s)", opts.Projection.Name())
		p.Y.Label.Text = fmt.Sprintf("y (%s)", opts.Projection.Name())
	}

	switch {
	case opts.Global:
		b, err := opts.Projection.World()
		if err != nil {
			return nil, err
		}
		p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = b.Min.X, b.Max.X, b.Min.Y, b.Max.Y
	case opts.Extent != nil:
		b, err := projectBox(opts.Projection, *opts.Extent)
		if err != nil {
			return nil, fmt.Errorf("projecting extent: %w", err)
		}
		p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = b.Min.X, b.Max.X, b.Min.Y, b.Max.Y
	}

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Label.Text = label

	fig := &Figure{Map: p, ColorBar: bar, Width: opts.Width, Height: opts.Height, DPI: opts.DPI}
	if opts.Output != "" {
		if err := fig.Save(opts.Output, opts.DPI); err != nil {
			return nil, err
		}
	}
	return fig, nil
}

// mapGrid views a 2D grid by latitude row and longitude column, both
// ascending
type mapGrid struct {
	g        *geogrid.Grid
	lat, lon []float64
	latFirst bool
}

func newMapGrid(g *geogrid.Grid) (*mapGrid, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrEmptyGrid)
	}
	var err error
	if len(g.Shape) > 2 {
		if g, err = g.Slice(0); err != nil {
			return nil, err
		}
	}
	if len(g.Shape) != 2 {
		return nil, fmt.Errorf("%w: cannot map a %d-d grid", geogrid.ErrShapeMismatch, len(g.Shape))
	}
	sorted, err := geogrid.SortByCoords(g)
	if err != nil {
		return nil, err
	}
	if sorted.Size() == 0 {
		return nil, fmt.Errorf("%w: %q has shape %v", ErrEmptyGrid, g.Name, g.Shape)
	}
	latDim, err := sorted.LatitudeDim()
	if err != nil {
		return nil, err
	}
	return &mapGrid{
		g:        sorted,
		lat:      sorted.Latitude(),
		lon:      sorted.Longitude(),
		latFirst: sorted.Dims[0] == latDim,
	}, nil
}

// at returns the value at latitude index i and longitude index j
func (m *mapGrid) at(i, j int) float64 {
	if m.latFirst {
		return m.g.At(i, j)
	}
	return m.g.At(j, i)
}

// extent is the region covered by the cells, half a cell beyond the outer
// coordinates
func (m *mapGrid) extent() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = cellEdges(m.lon)
	ymin, ymax = cellEdges(m.lat)
	return xmin, xmax, ymin, ymax
}

func cellEdges(axis []float64) (lo, hi float64) {
	n := len(axis)
	if n == 1 {
		return axis[0] - 0.5, axis[0] + 0.5
	}
	return axis[0] - (axis[1]-axis[0])/2, axis[n-1] + (axis[n-1]-axis[n-2])/2
}

// heatGrid is the plotter.GridXYZ of a projected mapGrid. Cells whose
// coordinate cannot be projected are dropped.
type heatGrid struct {
	m      *mapGrid
	xs, ys []float64
	// source longitude and latitude index of each column and row
	cols, rows []int
}

func newHeatGrid(m *mapGrid, p Projection) (*heatGrid, error) {
	h := &heatGrid{m: m}
	var err error
	h.xs, h.cols, err = projectAxis(m.lon, func(v float64) (float64, error) {
		x, _, err := p.Project(v, 0)
		return x, err
	})
	if err != nil {
		return nil, err
	}
	h.ys, h.rows, err = projectAxis(m.lat, func(v float64) (float64, error) {
		_, y, err := p.Project(0, v)
		return y, err
	})
	if err != nil {
		return nil, err
	}
	if len(h.xs) == 0 || len(h.ys) == 0 {
		return nil, fmt.Errorf("%w: no cells of %q can be projected with %s", ErrEmptyGrid, m.g.Name, p.Name())
	}
	return h, nil
}

// projectAxis projects every coordinate, skipping NaN coordinates and those
// outside the projection's domain, and orders the result ascending. It fails
// only when nothing along the axis projects.
func projectAxis(axis []float64, project func(float64) (float64, error)) ([]float64, []int, error) {
	type cell struct {
		v   float64
		src int
	}
	cells := make([]cell, 0, len(axis))
	var lastErr error
	for i, c := range axis {
		if math.IsNaN(c) {
			continue
		}
		v, err := project(c)
		if err != nil {
			lastErr = err
			continue
		}
		cells = append(cells, cell{v: v, src: i})
	}
	if len(cells) == 0 && lastErr != nil {
		return nil, nil, lastErr
	}
	sort.SliceStable(cells, func(a, b int) bool { return cells[a].v < cells[b].v })

	vals := make([]float64, len(cells))
	src := make([]int, len(cells))
	for i, c := range cells {
		vals[i], src[i] = c.v, c.src
	}
	return vals, src, nil
}

func (h *heatGrid) Dims() (c, r int) { return len(h.xs), len(h.ys) }
func (h *heatGrid) Z(c, r int) float64 { return h.m.at(h.rows[r], h.cols[c]) }
func (h *heatGrid) X(c int) float64    { return h.xs[c] }
func (h *heatGrid) Y(r int) float64    { return h.ys[r] }

// regular reports whether both axes are evenly spaced, so the heat map can
// be drawn as one raster image
func (h *heatGrid) regular() bool {
	return evenlySpaced(h.xs) && evenlySpaced(h.ys)
}

func evenlySpaced(axis []float64) bool {
	if len(axis) < 3 {
		return true
	}
	step := axis[1] - axis[0]
	for i := 2; i < len(axis); i++ {
		if !scalar.EqualWithinAbsOrRel(axis[i]-axis[i-1], step, 1e-9, 1e-6) {
			return false
		}
	}
	return true
}

func writePNG(w io.Writer, width, height vg.Length, dpi int, drawFn func(draw.Canvas)) (int64, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	drawFn(draw.New(c))
	return vgimg.PngCanvas{Canvas: c}.WriteTo(w)
}

func savePNG(path string, width, height vg.Length, dpi int, drawFn func(draw.Canvas)) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermission); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()

	if _, err = writePNG(f, width, height, dpi, drawFn); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logrus.Debugf("render: wrote %s at %d dpi", path, dpi)
	return nil
}
