package geogrid

import (
	"errors"
	"fmt"
	"sort"
)

// ErrBandNotFound is returned when a band name is absent from a BandSet
var ErrBandNotFound = errors.New("band not found")

// BandSet maps channel names to grids registered on the same coordinates
type BandSet map[string]*Grid

// Band looks up a single channel
func (bs BandSet) Band(name string) (*Grid, error) {
	g, ok := bs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBandNotFound, name)
	}
	return g, nil
}

// Names returns the channel names in sorted order
func (bs BandSet) Names() []string {
	names := make([]string, 0, len(bs))
	for n := range bs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SelectRGB returns the grids stored under the red, green and blue keys.
// The stored grids are returned as is, not copied.
func SelectRGB(bs BandSet, red, green, blue string) (r, g, b *Grid, err error) {
	if r, err = bs.Band(red); err != nil {
		return nil, nil, nil, err
	}
	if g, err = bs.Band(green); err != nil {
		return nil, nil, nil, err
	}
	if b, err = bs.Band(blue); err != nil {
		return nil, nil, nil, err
	}
	return r, g, b, nil
}

// SubsetBandSet applies Subset to every band in bs
func SubsetBandSet(bs BandSet, box BoundingBox, reassign bool) (BandSet, error) {
	out := make(BandSet, len(bs))
	for _, name := range bs.Names() {
		g, err := Subset(bs[name], box, reassign)
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", name, err)
		}
		out[name] = g
	}
	return out, nil
}
