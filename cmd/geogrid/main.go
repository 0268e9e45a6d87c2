package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qri-io/geogrid"
	"github.com/qri-io/geogrid/internal/config"
	"github.com/qri-io/geogrid/render"
	"github.com/qri-io/geogrid/zarr"
)

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:], cfg, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n", err)
			printUsage()
			os.Exit(2)
		}
		logrus.Fatal(err)
	}
}

func run(command string, args []string, cfg config.Config, out io.Writer) error {
	switch command {
	case "info":
		return handleInfo(args, cfg, out)
	case "subset":
		return handleSubset(args, cfg)
	case "render":
		return handleRender(args, cfg)
	case "rgb":
		return handleRGB(args, cfg)
	case "help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage() {
	fmt.Println(`geogrid - subset, normalize and render gridded satellite data

Usage: geogrid <command> [options]

Commands:
  info      List the bands of a zarr dataset
  subset    Cut a dataset to a bounding box and write it as a new dataset
  render    Draw one band as a map with a color bar
  rgb       Draw three bands as a true color composite
  help      Show this help message

Boxes are given as "latmin,latmax,lonmin,lonmax"; bounds are exclusive.

Environment:
  GEOGRID_STORE        dataset directory used when -store is not given
  GEOGRID_OUTPUT_DIR   directory for figures without an explicit -o (default .)
  GEOGRID_DPI          figure resolution (default 300)
  GEOGRID_COLOR_SCALE  color scale for render (default extended_blackbody)
  GEOGRID_LOG_LEVEL    logrus level (default info)

Examples:
  geogrid info -store goes.zarr
  geogrid subset -store goes.zarr -box 30,45,-125,-110 -reassign -out west.zarr
  geogrid render -store west.zarr -band aod -projection mercator -o aod.png
  geogrid rgb -store west.zarr -red C02 -green C03 -blue C01 -thumbnail 256`)
}

// datasetFlags registers the flags every command reading a dataset shares
type datasetFlags struct {
	store    *string
	group    *string
	box      *string
	reassign *bool
}

func addDatasetFlags(fs *flag.FlagSet, cfg config.Config) datasetFlags {
	return datasetFlags{
		store:    fs.String("store", cfg.Store, "zarr dataset directory"),
		group:    fs.String("group", "", "group within the dataset"),
		box:      fs.String("box", "", "subset to latmin,latmax,lonmin,lonmax before use"),
		reassign: fs.Bool("reassign", false, "remap longitudes to [-180, 180) when subsetting"),
	}
}

func (d datasetFlags) open() (zarr.Store, error) {
	if *d.store == "" {
		return nil, fmt.Errorf("%w: no dataset, pass -store or set GEOGRID_STORE", errUsage)
	}
	if _, err := os.Stat(*d.store); err != nil {
		return nil, err
	}
	return zarr.NewLocalStore(*d.store)
}

func (d datasetFlags) bandSet() (geogrid.BandSet, error) {
	s, err := d.open()
	if err != nil {
		return nil, err
	}
	bs, err := zarr.ReadBandSet(s, *d.group)
	if err != nil {
		return nil, err
	}
	box, err := parseBox(*d.box)
	if err != nil || box == nil {
		return bs, err
	}
	return geogrid.SubsetBandSet(bs, *box, *d.reassign)
}

func (d datasetFlags) grid(name string) (*geogrid.Grid, error) {
	s, err := d.open()
	if err != nil {
		return nil, err
	}
	g, err := zarr.ReadGrid(s, *d.group, name)
	if err != nil {
		return nil, err
	}
	box, err := parseBox(*d.box)
	if err != nil || box == nil {
		return g, err
	}
	return geogrid.Subset(g, *box, *d.reassign)
}

func handleInfo(args []string, cfg config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	ds := addDatasetFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	bs, err := ds.bandSet()
	if err != nil {
		return err
	}
	for _, name := range bs.Names() {
		g := bs[name]
		fmt.Fprintf(out, "%s\tdims=%v shape=%v units=%q min=%g max=%g\n",
			name, g.Dims, g.Shape, g.Attrs.String("units"), g.Min(), g.Max())
	}
	return nil
}

func handleSubset(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("subset", flag.ContinueOnError)
	ds := addDatasetFlags(fs, cfg)
	outPath := fs.String("out", "", "destination dataset directory (required)")
	outGroup := fs.String("out-group", "", "group within the destination")
	compressor := fs.String("compressor", "zstd", "chunk compressor: none, gzip or zstd")
	chunk := fs.Int("chunk", 0, "maximum chunk length per dimension, 0 for one chunk")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *outPath == "" || *ds.box == "" {
		return fmt.Errorf("%w: subset needs -box and -out", errUsage)
	}

	var opts zarr.WriteOptions
	switch *compressor {
	case "none":
	case "gzip":
		opts.Compressor = zarr.Gzip
	case "zstd":
		opts.Compressor = zarr.Zstd
	default:
		return fmt.Errorf("%w: unknown compressor %q", errUsage, *compressor)
	}
	opts.ChunkLength = *chunk

	bs, err := ds.bandSet()
	if err != nil {
		return err
	}
	dst, err := zarr.NewLocalStore(*outPath)
	if err != nil {
		return err
	}
	if err := zarr.WriteBandSet(dst, *outGroup, bs, opts); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"bands": len(bs), "out": *outPath}).Info("wrote subset")
	return nil
}

func handleRender(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	ds := addDatasetFlags(fs, cfg)
	band := fs.String("band", "", "band to draw (required)")
	projection := fs.String("projection", "platecarree", "platecarree, mercator, or a proj4 definition")
	colorScale := fs.String("color-scale", cfg.ColorScale, "color scale, append _r to reverse")
	unit := fs.String("unit", "", "color bar unit, defaults to the band's units attribute")
	longName := fs.String("long-name", "", "color bar label, defaults to the band's long_name attribute")
	global := fs.Bool("global", false, "draw the whole globe")
	extent := fs.String("extent", "", "fix the axes to latmin,latmax,lonmin,lonmax")
	output := fs.String("o", "", "PNG to write, defaults to <band>.png in GEOGRID_OUTPUT_DIR")
	dpi := fs.Int("dpi", cfg.DPI, "figure resolution")
	var vmin, vmax optionalFloat
	fs.Var(&vmin, "vmin", "lower end of the color range")
	fs.Var(&vmax, "vmax", "upper end of the color range")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *band == "" {
		return fmt.Errorf("%w: render needs -band", errUsage)
	}

	proj, err := parseProjection(*projection)
	if err != nil {
		return err
	}
	ext, err := parseBox(*extent)
	if err != nil {
		return err
	}
	g, err := ds.grid(*band)
	if err != nil {
		return err
	}

	path := *output
	if path == "" {
		path = filepath.Join(cfg.OutputDir, *band+".png")
	}
	_, err = render.RenderSingle(g, render.SingleOptions{
		Projection: proj,
		ColorScale: *colorScale,
		Unit:       *unit,
		LongName:   *longName,
		VMin:       vmin.value,
		VMax:       vmax.value,
		Global:     *global,
		Extent:     ext,
		Output:     path,
		DPI:        *dpi,
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"band": *band, "output": path}).Info("rendered")
	return nil
}

func handleRGB(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("rgb", flag.ContinueOnError)
	ds := addDatasetFlags(fs, cfg)
	red := fs.String("red", "C02", "band for the red channel")
	green := fs.String("green", "C03", "band for the green channel")
	blue := fs.String("blue", "C01", "band for the blue channel")
	title := fs.String("title", "", "figure title")
	output := fs.String("o", "", "PNG to write, defaults to rgb.png in GEOGRID_OUTPUT_DIR")
	dpi := fs.Int("dpi", cfg.DPI, "figure resolution")
	thumb := fs.Int("thumbnail", 0, "also write a composite this many pixels wide next to the figure")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	bs, err := ds.bandSet()
	if err != nil {
		return err
	}
	r, g, b, err := geogrid.SelectRGB(bs, *red, *green, *blue)
	if err != nil {
		return err
	}

	path := *output
	if path == "" {
		path = filepath.Join(cfg.OutputDir, "rgb.png")
	}
	if _, err := render.RenderRGB(r, g, b, render.RGBOptions{Title: *title, Output: path, DPI: *dpi}); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"red": *red, "green": *green, "blue": *blue, "output": path}).Info("rendered composite")

	if *thumb > 0 {
		img, err := render.Composite(r, g, b)
		if err != nil {
			return err
		}
		thumbPath := strings.TrimSuffix(path, filepath.Ext(path)) + "_thumb.png"
		if err := writeImage(thumbPath, render.Thumbnail(img, *thumb)); err != nil {
			return err
		}
		logrus.WithField("output", thumbPath).Info("wrote thumbnail")
	}
	return nil
}

func writeImage(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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
	return png.Encode(f, img)
}

// parseBox reads "latmin,latmax,lonmin,lonmax". An empty string is no box.
func parseBox(s string) (*geogrid.BoundingBox, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: box %q needs 4 comma separated values", errUsage, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: box %q: %v", errUsage, s, err)
		}
		v[i] = f
	}
	return &geogrid.BoundingBox{LatMin: v[0], LatMax: v[1], LonMin: v[2], LonMax: v[3]}, nil
}

func parseProjection(s string) (render.Projection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "platecarree", "plate_carree":
		return render.PlateCarree{}, nil
	case "mercator":
		m, err := render.Mercator()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	p, err := render.NewProj4(s)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// optionalFloat is a float flag that records whether it was set
type optionalFloat struct {
	value *float64
}

func (f *optionalFloat) String() string {
	if f.value == nil {
		return ""
	}
	return strconv.FormatFloat(*f.value, 'g', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value = &v
	return nil
}
