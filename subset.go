package geogrid

import (
	"math"

	"github.com/ctessum/geom"
)

// BoundingBox is a geographic rectangle in degrees. Bounds are exclusive on
// every side. LatMin < LatMax and LonMin < LonMax are expected but not
// checked.
type BoundingBox struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Contains reports whether the point lies strictly inside the box
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.containsLat(lat) && b.containsLon(lon)
}

func (b BoundingBox) containsLat(lat float64) bool { return lat > b.LatMin && lat < b.LatMax }
func (b BoundingBox) containsLon(lon float64) bool { return lon > b.LonMin && lon < b.LonMax }

// Bounds converts the box to geom bounds, longitude as X and latitude as Y
func (b BoundingBox) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.LonMin, Y: b.LatMin},
		Max: geom.Point{X: b.LonMax, Y: b.LatMax},
	}
}

// WrapLongitude maps a longitude onto [-180, 180) using
// ((lon + 180) mod 360) - 180. Values already in range are returned as is.
func WrapLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	m := math.Mod(lon+180, 360)
	if m < 0 {
		m += 360
	}
	return m - 180
}

// ReassignLongitude returns a copy of g with its longitude axis converted
// from the [0, 360) convention to [-180, 180). Axis order is unchanged.
func ReassignLongitude(g *Grid) (*Grid, error) {
	lon, err := g.LongitudeDim()
	if err != nil {
		return nil, err
	}
	out := g.Copy()
	for i, v := range out.Coords[lon] {
		out.Coords[lon][i] = WrapLongitude(v)
	}
	return out, nil
}

// Subset returns the part of g whose coordinates fall strictly inside box.
// Rows and columns outside the box are dropped from the result, so an empty
// grid is a valid outcome. When reassign is set, longitudes are wrapped to
// [-180, 180) before filtering. g itself is never modified.
func Subset(g *Grid, box BoundingBox, reassign bool) (*Grid, error) {
	lat, err := g.LatitudeDim()
	if err != nil {
		return nil, err
	}
	lon, err := g.LongitudeDim()
	if err != nil {
		return nil, err
	}

	src := g
	if reassign {
		if src, err = ReassignLongitude(g); err != nil {
			return nil, err
		}
	}

	var latIdx, lonIdx []int
	for i, v := range src.Coords[lat] {
		if box.containsLat(v) {
			latIdx = append(latIdx, i)
		}
	}
	for i, v := range src.Coords[lon] {
		if box.containsLon(v) {
			lonIdx = append(lonIdx, i)
		}
	}

	out := src.take(src.axis(lat), latIdx)
	return out.take(out.axis(lon), lonIdx), nil
}
