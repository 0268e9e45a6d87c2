package geogrid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridValidation(t *testing.T) {
	tests := []struct {
		name   string
		dims   []string
		shape  []int
		data   []float64
		coords map[string][]float64
	}{
		{"dims shape mismatch", []string{"lat"}, []int{1, 1}, []float64{1}, nil},
		{"short data", []string{"lat", "lon"}, []int{2, 2}, []float64{1, 2, 3}, nil},
		{"coordinate length", []string{"lat", "lon"}, []int{1, 2}, []float64{1, 2}, map[string][]float64{"lon": {1}}},
		{"unknown coordinate", []string{"lat", "lon"}, []int{1, 1}, []float64{1}, map[string][]float64{"time": {1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid("x", tt.dims, tt.shape, tt.data, tt.coords)
			assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
		})
	}
}

func TestGridAt(t *testing.T) {
	g := makeGrid(t, []float64{0, 1, 2}, []float64{0, 1})
	assert.Equal(t, 201.0, g.At(2, 1))
	assert.Panics(t, func() { g.At(3, 0) })
	assert.Panics(t, func() { g.At(0) })
}

func TestGridCopyIsDeep(t *testing.T) {
	g := makeGrid(t, []float64{0}, []float64{0, 1})
	g.Attrs["long_name"] = "aerosol optical depth"

	c := g.Copy()
	c.Data[0] = -1
	c.Coords["longitude"][0] = -1
	c.Attrs["long_name"] = "changed"

	assert.Equal(t, 0.0, g.Data[0])
	assert.Equal(t, 0.0, g.Coords["longitude"][0])
	assert.Equal(t, "aerosol optical depth", g.Attrs.String("long_name"))
}

func TestGridSlice(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	g, err := NewGrid("t2m", []string{"time", "latitude", "longitude"}, []int{2, 2, 2}, data, map[string][]float64{
		"time":      {0, 6},
		"latitude":  {10, 20},
		"longitude": {30, 40},
	})
	require.NoError(t, err)

	s, err := g.Slice(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"latitude", "longitude"}, s.Dims)
	assert.Equal(t, []float64{5, 6, 7, 8}, s.Data)
	assert.NotContains(t, s.Coords, "time")

	_, err = g.Slice(2)
	assert.Error(t, err)
	_, err = s.Slice(0)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestGridBounds(t *testing.T) {
	g := makeGrid(t, []float64{40, 30}, []float64{-120, -110, -100})
	b, err := g.Bounds()
	require.NoError(t, err)
	assert.Equal(t, -120.0, b.Min.X)
	assert.Equal(t, -100.0, b.Max.X)
	assert.Equal(t, 30.0, b.Min.Y)
	assert.Equal(t, 40.0, b.Max.Y)

	empty, err := makeGrid(t, nil, nil).Bounds()
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestCoordinateAliases(t *testing.T) {
	g, err := NewGrid("x", []string{"lat", "lon"}, []int{1, 1}, []float64{1}, map[string][]float64{
		"lat": {5},
		"lon": {6},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, g.Latitude())
	assert.Equal(t, []float64{6}, g.Longitude())

	noCoords, err := NewGrid("x", []string{"lat", "lon"}, []int{1, 1}, []float64{1}, nil)
	require.NoError(t, err)
	_, err = noCoords.LatitudeDim()
	assert.True(t, errors.Is(err, ErrNoCoordinate))
}
