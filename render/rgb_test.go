package render

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/qri-io/geogrid"
)

func TestComposite(t *testing.T) {
	r := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	g := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	b := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	for i := range b.Data {
		b.Data[i] = 3 - b.Data[i]
	}

	img, err := Composite(r, g, b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	// top row is the northern latitude
	assert.Equal(t, color.NRGBA{R: 170, G: 170, B: 85, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 0, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 255, A: 255}, img.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{R: 85, G: 85, B: 170, A: 255}, img.NRGBAAt(1, 1))

	// inputs are left untouched
	assert.Equal(t, []float64{0, 1, 2, 3}, r.Data)
}

func TestCompositeDescendingLatitude(t *testing.T) {
	r := makeGrid(t, []float64{1, 0}, []float64{0, 1})
	img, err := Composite(r, r, r)
	require.NoError(t, err)
	// data row 0 sits at latitude 1, the top of the image
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 1).R)
}

func TestCompositeNaN(t *testing.T) {
	r := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	g := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	g.Data[0] = math.NaN()

	img, err := Composite(r, g, r)
	require.NoError(t, err)
	// lat 0, lon 0 is the bottom left pixel
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 1).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 1).A)

	constant := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	for i := range constant.Data {
		constant.Data[i] = 4
	}
	img, err = Composite(r, r, constant)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, uint8(0), img.NRGBAAt(x, y).A)
		}
	}
}

func TestComposite3D(t *testing.T) {
	data := []float64{0, 1, 2, 3, 100, 101, 102, 103}
	g, err := geogrid.NewGrid("aod", []string{"time", "lat", "lon"}, []int{2, 2, 2}, data, map[string][]float64{
		"lat": {0, 1},
		"lon": {0, 1},
	})
	require.NoError(t, err)

	img, err := Composite(g, g, g)
	require.NoError(t, err)
	// the first time step alone spans the full range
	assert.Equal(t, uint8(170), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 0).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 1).R)
	assert.Equal(t, uint8(85), img.NRGBAAt(1, 1).R)
	assert.Len(t, g.Data, 8)
}

func TestCompositeErrors(t *testing.T) {
	r := makeGrid(t, []float64{0, 1}, []float64{0, 1})
	wide := makeGrid(t, []float64{0, 1}, []float64{0, 1, 2})

	_, err := Composite(r, wide, r)
	assert.ErrorIs(t, err, geogrid.ErrShapeMismatch)

	_, err = Composite(r, nil, r)
	assert.ErrorIs(t, err, ErrEmptyGrid)

	north := makeGrid(t, []float64{40, 41}, []float64{0, 1})
	_, err = Composite(r, north, r)
	assert.ErrorIs(t, err, geogrid.ErrShapeMismatch)
	east := makeGrid(t, []float64{0, 1}, []float64{0, 2})
	_, err = Composite(r, r, east)
	assert.ErrorIs(t, err, geogrid.ErrShapeMismatch)

	bs := geogrid.BandSet{"C01": r, "C02": r}
	_, _, _, err = geogrid.SelectRGB(bs, "C01", "C02", "C03")
	assert.ErrorIs(t, err, geogrid.ErrBandNotFound)
}

func TestRenderRGB(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rgb", "true_color.png")
	r := makeGrid(t, []float64{10, 20, 30}, []float64{100, 110, 120, 130})

	p, err := RenderRGB(r, r, r, RGBOptions{Title: "true color", Output: out, Width: 3 * vg.Inch, Height: 2 * vg.Inch, DPI: 40})
	require.NoError(t, err)
	assert.Equal(t, "true color", p.Title.Text)
	assert.Equal(t, 95.0, p.X.Min)
	assert.Equal(t, 135.0, p.X.Max)
	assert.Equal(t, 5.0, p.Y.Min)
	assert.Equal(t, 35.0, p.Y.Max)

	w, h := decodeSize(t, out)
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
}

func TestThumbnail(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	th := Thumbnail(src, 20)
	assert.Equal(t, image.Rect(0, 0, 20, 10), th.Bounds())
	px := th.NRGBAAt(10, 5)
	assert.InDelta(t, 200, px.R, 1)
	assert.InDelta(t, 100, px.G, 1)
	assert.InDelta(t, 50, px.B, 1)
	assert.Equal(t, uint8(255), px.A)

	assert.True(t, Thumbnail(src, 0).Bounds().Empty())
	assert.Equal(t, 1, Thumbnail(image.NewNRGBA(image.Rect(0, 0, 1000, 1)), 10).Bounds().Dy())
}
