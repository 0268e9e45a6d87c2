package render

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qri-io/geogrid"
)

const earthRadius = 6378137.0

func TestPlateCarree(t *testing.T) {
	x, y, err := PlateCarree{}.Project(370, -45)
	require.NoError(t, err)
	assert.Equal(t, 370.0, x)
	assert.Equal(t, -45.0, y)

	b, err := PlateCarree{}.World()
	require.NoError(t, err)
	assert.Equal(t, -180.0, b.Min.X)
	assert.Equal(t, 90.0, b.Max.Y)
}

func TestMercator(t *testing.T) {
	m, err := Mercator()
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", m.Name())

	x, y, err := m.Project(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	x, _, err = m.Project(10, 0)
	require.NoError(t, err)
	assert.InDelta(t, earthRadius*10*math.Pi/180, x, 1)

	wrapped, _, err := m.Project(370, 0)
	require.NoError(t, err)
	assert.InDelta(t, x, wrapped, 1e-6)

	_, _, err = m.Project(0, 90)
	assert.Error(t, err, "the pole is at infinity")

	world, err := m.World()
	require.NoError(t, err)
	half := earthRadius * math.Pi
	assert.InDelta(t, -half, world.Min.X, 1)
	assert.InDelta(t, half, world.Max.X, 1)
	assert.InDelta(t, -half, world.Min.Y, 100)
	assert.InDelta(t, half, world.Max.Y, 100)
}

func TestNewProj4(t *testing.T) {
	_, err := NewProj4("not a projection")
	assert.Error(t, err)

	ll, err := NewProj4("EPSG:4326")
	require.NoError(t, err)
	x, y, err := ll.Project(12.5, 40)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, x, 1e-9)
	assert.InDelta(t, 40, y, 1e-9)
}

func TestProjectBox(t *testing.T) {
	b, err := projectBox(PlateCarree{}, geogrid.BoundingBox{LatMin: -10, LatMax: 20, LonMin: 100, LonMax: 140})
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Min.X)
	assert.Equal(t, 140.0, b.Max.X)
	assert.Equal(t, -10.0, b.Min.Y)
	assert.Equal(t, 20.0, b.Max.Y)
}

func TestProjectAxis(t *testing.T) {
	errPole := errors.New("pole")
	project := func(v float64) (float64, error) {
		if math.Abs(v) >= 90 {
			return 0, errPole
		}
		return -v, nil
	}

	vals, src, err := projectAxis([]float64{-90, -30, math.NaN(), 30, 90}, project)
	require.NoError(t, err)
	assert.Equal(t, []float64{-30, 30}, vals)
	assert.Equal(t, []int{3, 1}, src)

	_, _, err = projectAxis([]float64{90, -90}, project)
	assert.ErrorIs(t, err, errPole)
}

func TestEvenlySpaced(t *testing.T) {
	assert.True(t, evenlySpaced([]float64{1}))
	assert.True(t, evenlySpaced([]float64{0, 0.25, 0.5, 0.75}))
	assert.False(t, evenlySpaced([]float64{0, 1, 3}))
	// rounding noise in the step is tolerated
	assert.True(t, evenlySpaced([]float64{0.1, 0.2, 0.30000000000000004, 0.4}))
	assert.False(t, evenlySpaced([]float64{0, 0.1, 0.2001}))
}
