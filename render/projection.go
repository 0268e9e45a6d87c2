package render

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"github.com/qri-io/geogrid"
)

// Projection maps longitude and latitude in degrees onto plot coordinates.
// Maps are drawn axis by axis, so x must depend on longitude alone and y on
// latitude alone: only cylindrical projections render correctly.
type Projection interface {
	Name() string
	Project(lon, lat float64) (x, y float64, err error)
	// World is the projected extent of the whole globe
	World() (*geom.Bounds, error)
}

// PlateCarree is the equirectangular projection, plotting degrees directly
type PlateCarree struct{}

func (PlateCarree) Name() string { return "PlateCarree" }

func (PlateCarree) Project(lon, lat float64) (float64, float64, error) {
	return lon, lat, nil
}

func (PlateCarree) World() (*geom.Bounds, error) {
	return &geom.Bounds{
		Min: geom.Point{X: -180, Y: -90},
		Max: geom.Point{X: 180, Y: 90},
	}, nil
}

// webMercatorLimit is the latitude at which EPSG:3857 becomes square
const webMercatorLimit = 85.0511287798

// edge keeps the antimeridian inside projections that reject |lon| > 180
const edge = 1e-9

// Proj4 projects with a proj4 or WKT definition
type Proj4 struct {
	def string
	t   proj.Transformer
}

// NewProj4 parses def, a proj4 string, WKT or a known code such as
// "EPSG:3857", and prepares a transform from WGS84 longitude/latitude
func NewProj4(def string) (*Proj4, error) {
	src, err := proj.Parse("EPSG:4326")
	if err != nil {
		return nil, err
	}
	dst, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parsing projection %q: %w", def, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("projection %q: %w", def, err)
	}
	return &Proj4{def: def, t: t}, nil
}

// Mercator is the spherical web mercator projection
func Mercator() (*Proj4, error) {
	return NewProj4("EPSG:3857")
}

func (p *Proj4) Name() string { return p.def }

// Project wraps lon into [-180, 180] before transforming it
func (p *Proj4) Project(lon, lat float64) (float64, float64, error) {
	if lon < -180 || lon > 180 {
		lon = geogrid.WrapLongitude(lon)
	}
	return p.transform(math.Max(-180+edge, math.Min(180-edge, lon)), lat)
}

func (p *Proj4) transform(lon, lat float64) (float64, float64, error) {
	if p.t == nil {
		// the definition is WGS84 itself
		return lon, lat, nil
	}
	x, y, err := p.t(lon, lat)
	if err != nil {
		return x, y, err
	}
	if !finite(x) || !finite(y) {
		return x, y, fmt.Errorf("projecting (%g, %g) with %q gave (%g, %g)", lon, lat, p.def, x, y)
	}
	return x, y, nil
}

// World projects the antimeridian and the poles, falling back to the web
// mercator latitude limit when a pole cannot be projected
func (p *Proj4) World() (*geom.Bounds, error) {
	lat := 90.0
	if _, _, err := p.transform(0, lat); err != nil {
		lat = webMercatorLimit
	}
	b := geom.NewBounds()
	for _, pt := range [][2]float64{{-180 + edge, -lat}, {180 - edge, lat}} {
		x, y, err := p.transform(pt[0], pt[1])
		if err != nil {
			return nil, fmt.Errorf("world extent of %q: %w", p.def, err)
		}
		b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
	}
	return b, nil
}

// projectBox returns the projected corners of box
func projectBox(p Projection, box geogrid.BoundingBox) (*geom.Bounds, error) {
	b := geom.NewBounds()
	for _, lon := range []float64{box.LonMin, box.LonMax} {
		for _, lat := range []float64{box.LatMin, box.LatMax} {
			x, y, err := p.Project(lon, lat)
			if err != nil {
				return nil, err
			}
			b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
		}
	}
	return b, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
