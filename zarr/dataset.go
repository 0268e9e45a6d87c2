package zarr

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/qri-io/geogrid"
)

// DimensionsAttr is the attribute xarray uses to name an array's dimensions
const DimensionsAttr = "_ARRAY_DIMENSIONS"

// WriteOptions control how WriteBandSet encodes bands. Coordinates are
// always written as little-endian float64.
type WriteOptions struct {
	// Compressor applied to every chunk, nil stores chunks raw
	Compressor *CompressionMeta
	// Dtype for band values, defaults to Float64
	Dtype Dtype
	// ChunkLength caps the chunk length along every dimension. Zero stores
	// each array as a single chunk.
	ChunkLength int
}

// ReadGrid reads the array name within group as a labeled grid. Any
// sibling array named after one of its dimensions becomes that dimension's
// coordinate axis.
func ReadGrid(store Store, group, name string) (*geogrid.Grid, error) {
	root := NewPath(group)
	a, err := Open(store, root.Join(name).String(), ModeRead)
	if err != nil {
		return nil, err
	}
	attrs, err := a.Attributes()
	if err != nil {
		return nil, err
	}
	shape := a.meta.Shape
	dims := dimensionNames(attrs, len(shape))

	data, err := a.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}

	coords := map[string][]float64{}
	for i, d := range dims {
		if d == name {
			coords[d] = data
			continue
		}
		c, err := Open(store, root.Join(d).String(), ModeRead)
		if errors.Is(err, ErrNotfound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(c.meta.Shape) != 1 || c.meta.Shape[0] != shape[i] {
			return nil, fmt.Errorf("%w: coordinate %q has shape %v, dimension %d of %q has length %d",
				geogrid.ErrShapeMismatch, d, c.meta.Shape, i, name, shape[i])
		}
		if coords[d], err = c.ReadFloat64(); err != nil {
			return nil, fmt.Errorf("reading coordinate %q: %w", d, err)
		}
	}

	g, err := geogrid.NewGrid(name, dims, append([]int(nil), shape...), data, coords)
	if err != nil {
		return nil, err
	}
	for k, v := range attrs {
		if k != DimensionsAttr {
			g.Attrs[k] = v
		}
	}
	return g, nil
}

// ReadBandSet reads every data variable of the group described by its
// consolidated ".zmetadata". Coordinate arrays, those whose only dimension
// is themselves, are attached to the bands rather than returned.
func ReadBandSet(store Store, group string) (geogrid.BandSet, error) {
	cm := &ConsolidatedMetadata{}
	if err := getJSON(store, NewPath(group).Join(string(MTMetadata)).String(), cm); err != nil {
		return nil, fmt.Errorf("reading consolidated metadata of %q: %w", group, err)
	}

	arrays := cm.Arrays()
	names := make([]string, 0, len(arrays))
	for name, meta := range arrays {
		if len(NewPath(name)) != 1 {
			// nested groups are not band sets
			continue
		}
		dims := dimensionNames(cm.AttributesOf(name), len(meta.Shape))
		if len(dims) == 1 && dims[0] == name {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	bs := geogrid.BandSet{}
	for _, name := range names {
		g, err := ReadGrid(store, group, name)
		if err != nil {
			return nil, err
		}
		bs[name] = g
	}
	logrus.Debugf("zarr: read %d bands from %q", len(bs), group)
	return bs, nil
}

// WriteBandSet writes every band of bs, their shared coordinates, a
// ".zgroup" and a consolidated ".zmetadata" below group. Bands that disagree
// on a coordinate axis are rejected.
func WriteBandSet(store Store, group string, bs geogrid.BandSet, opts WriteOptions) error {
	if opts.Dtype == (Dtype{}) {
		opts.Dtype = Float64
	}
	root := NewPath(group)

	coords := map[string][]float64{}
	for _, name := range bs.Names() {
		g := bs[name]
		if err := g.Validate(); err != nil {
			return fmt.Errorf("band %q: %w", name, err)
		}
		for d, c := range g.Coords {
			if prev, ok := coords[d]; ok && !floats.Same(prev, c) {
				return fmt.Errorf("%w: coordinate %q differs between bands", geogrid.ErrShapeMismatch, d)
			}
			coords[d] = c
		}
	}

	cm := &ConsolidatedMetadata{
		ConsolidatedFormat: 1,
		Metadata: map[string]MetaTyper{
			string(MTGroup): Group{ZarrFormat: Version},
		},
	}
	if err := putJSON(store, root.Join(string(MTGroup)).String(), Group{ZarrFormat: Version}); err != nil {
		return err
	}

	write := func(name string, dims []string, shape []int, data []float64, dt Dtype, attrs Attributes) error {
		meta := &ArrayMeta{
			ZarrFormat: Version,
			Shape:      shape,
			Chunks:     chunkShape(shape, opts.ChunkLength),
			Dtype:      dt,
			Compressor: opts.Compressor,
			FillValue:  fillValueFor(0),
			Order:      "C",
		}
		if dt.BasicType == BTFloatingPoint {
			meta.FillValue = FillValueNaN
		}
		a, err := Create(store, root.Join(name).String(), meta, ModeWrite)
		if err != nil {
			return err
		}
		if err := a.WriteFloat64(data); err != nil {
			return fmt.Errorf("writing %q: %w", name, err)
		}
		attrs[DimensionsAttr] = dims
		if err := a.SetAttributes(attrs); err != nil {
			return err
		}
		cm.Metadata[NewPath(name).Join(string(MTArray)).String()] = meta
		cm.Metadata[NewPath(name).Join(string(MTAttributes)).String()] = attrs
		return nil
	}

	coordNames := make([]string, 0, len(coords))
	for d := range coords {
		coordNames = append(coordNames, d)
	}
	sort.Strings(coordNames)
	for _, d := range coordNames {
		c := coords[d]
		if err := write(d, []string{d}, []int{len(c)}, c, Float64, Attributes{}); err != nil {
			return err
		}
	}

	for _, name := range bs.Names() {
		if _, ok := coords[name]; ok {
			return fmt.Errorf("band %q has the same name as a coordinate", name)
		}
		g := bs[name]
		attrs := Attributes{}
		for k, v := range g.Attrs {
			attrs[k] = v
		}
		if err := write(name, g.Dims, g.Shape, g.Data, opts.Dtype, attrs); err != nil {
			return err
		}
	}

	if err := putJSON(store, root.Join(string(MTMetadata)).String(), cm); err != nil {
		return err
	}
	logrus.Debugf("zarr: wrote %d bands to %q", len(bs), group)
	return nil
}

func dimensionNames(attrs Attributes, n int) []string {
	dims := make([]string, n)
	raw, _ := attrs[DimensionsAttr].([]interface{})
	for i := range dims {
		if i < len(raw) {
			if s, ok := raw[i].(string); ok && len(raw) == n {
				dims[i] = s
				continue
			}
		}
		dims[i] = fmt.Sprintf("dim_%d", i)
	}
	return dims
}

func chunkShape(shape []int, limit int) []int {
	chunks := make([]int, len(shape))
	for i, s := range shape {
		c := s
		if limit > 0 && c > limit {
			c = limit
		}
		if c < 1 {
			c = 1
		}
		chunks[i] = c
	}
	return chunks
}
