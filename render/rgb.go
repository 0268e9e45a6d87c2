package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/qri-io/geogrid"
)

// RGBOptions configure RenderRGB
type RGBOptions struct {
	Title string
	// Output is the PNG path to write. Nothing is written when empty.
	Output        string
	Width, Height vg.Length
	DPI           int
}

// Composite stacks three bands into an image, each normalized to [0, 1]
// independently. North is up and longitude increases to the right. Pixels
// where any band is NaN are transparent, which includes every pixel of a
// constant band.
func Composite(r, g, b *geogrid.Grid) (*image.NRGBA, error) {
	img, _, err := composite(r, g, b)
	return img, err
}

func composite(r, g, b *geogrid.Grid) (*image.NRGBA, *mapGrid, error) {
	var bands [3]*mapGrid
	for i, band := range []*geogrid.Grid{r, g, b} {
		if band == nil {
			return nil, nil, fmt.Errorf("%w: nil band %d", ErrEmptyGrid, i)
		}
		if len(band.Shape) > 2 {
			var err error
			if band, err = band.Slice(0); err != nil {
				return nil, nil, err
			}
		}
		m, err := newMapGrid(geogrid.Normalize(band))
		if err != nil {
			return nil, nil, fmt.Errorf("band %q: %w", band.Name, err)
		}
		bands[i] = m
	}

	nlat, nlon := len(bands[0].lat), len(bands[0].lon)
	for _, m := range bands[1:] {
		if len(m.lat) != nlat || len(m.lon) != nlon {
			return nil, nil, fmt.Errorf("%w: bands are %dx%d and %dx%d",
				geogrid.ErrShapeMismatch, nlat, nlon, len(m.lat), len(m.lon))
		}
		if !floats.Same(m.lat, bands[0].lat) || !floats.Same(m.lon, bands[0].lon) {
			return nil, nil, fmt.Errorf("%w: %q and %q lie on different coordinates",
				geogrid.ErrShapeMismatch, bands[0].g.Name, m.g.Name)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, nlon, nlat))
	for i := 0; i < nlat; i++ {
		y := nlat - 1 - i
	pixels:
		for j := 0; j < nlon; j++ {
			var px [3]uint8
			for k, m := range bands {
				v := m.at(i, j)
				if math.IsNaN(v) {
					continue pixels
				}
				px[k] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
			}
			img.SetNRGBA(j, y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img, bands[0], nil
}

// RenderRGB draws the composite of r, g and b over its longitude and
// latitude extent, writing opts.Output when set
func RenderRGB(r, g, b *geogrid.Grid, opts RGBOptions) (*plot.Plot, error) {
	img, m, err := composite(r, g, b)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	xmin, xmax, ymin, ymax := m.extent()
	p := plot.New()
	p.Title.Text = opts.Title
	p.Add(plotter.NewImage(img, xmin, ymin, xmax, ymax))
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	if opts.Output != "" {
		if err := savePNG(opts.Output, opts.Width, opts.Height, opts.DPI, p.Draw); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Thumbnail scales img to width pixels wide, keeping its aspect ratio
func Thumbnail(img image.Image, width int) *image.NRGBA {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return image.NewNRGBA(image.Rectangle{})
	}
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Rect, img, b, xdraw.Src, nil)
	return dst
}
