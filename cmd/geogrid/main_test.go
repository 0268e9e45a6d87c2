package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qri-io/geogrid"
	"github.com/qri-io/geogrid/internal/config"
	"github.com/qri-io/geogrid/zarr"
)

// writeDataset stores three bands over longitudes 350..10 and returns the
// dataset directory
func writeDataset(t *testing.T) string {
	t.Helper()
	lat := []float64{-10, -5, 0, 5, 10}
	lon := []float64{350, 355, 0, 5, 10}
	bs := geogrid.BandSet{}
	for k, name := range []string{"C01", "C02", "C03"} {
		data := make([]float64, len(lat)*len(lon))
		for i := range data {
			data[i] = float64(i * (k + 1))
		}
		g, err := geogrid.NewGrid(name, []string{"lat", "lon"}, []int{len(lat), len(lon)}, data, map[string][]float64{
			"lat": lat,
			"lon": lon,
		})
		require.NoError(t, err)
		g.Attrs["units"] = "1"
		bs[name] = g
	}

	dir := filepath.Join(t.TempDir(), "goes.zarr")
	s, err := zarr.NewLocalStore(dir)
	require.NoError(t, err)
	require.NoError(t, zarr.WriteBandSet(s, "", bs, zarr.WriteOptions{Compressor: zarr.Gzip}))
	return dir
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		OutputDir:  t.TempDir(),
		DPI:        30,
		ColorScale: "kindlmann",
		LogLevel:   logrus.InfoLevel,
	}
}

func TestInfo(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = writeDataset(t)

	out := &bytes.Buffer{}
	require.NoError(t, run("info", nil, cfg, out))
	assert.Contains(t, out.String(), "C01\tdims=[lat lon] shape=[5 5]")
	assert.Contains(t, out.String(), "C03\t")
	assert.NotContains(t, out.String(), "lat\t")
}

func TestSubset(t *testing.T) {
	cfg := testConfig(t)
	src := writeDataset(t)
	dst := filepath.Join(t.TempDir(), "west.zarr")

	err := run("subset", []string{"-store", src, "-box", "-10,10,-10,10", "-reassign", "-out", dst, "-chunk", "2"}, cfg, nil)
	require.NoError(t, err)

	s, err := zarr.NewLocalStore(dst)
	require.NoError(t, err)
	bs, err := zarr.ReadBandSet(s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"C01", "C02", "C03"}, bs.Names())
	assert.Equal(t, []float64{-5, 0, 5}, bs["C01"].Coords["lat"])
	assert.Equal(t, []float64{-5, 0, 5}, bs["C01"].Coords["lon"])
}

func TestRender(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = writeDataset(t)

	require.NoError(t, run("render", []string{"-band", "C02", "-box", "-20,20,-20,20", "-reassign", "-vmin", "0", "-vmax", "40"}, cfg, nil))
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "C02.png"))
	assert.NoError(t, err)

	out := filepath.Join(t.TempDir(), "merc.png")
	require.NoError(t, run("render", []string{"-band", "C01", "-projection", "mercator", "-global", "-o", out}, cfg, nil))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRGB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = writeDataset(t)
	out := filepath.Join(t.TempDir(), "true_color.png")

	require.NoError(t, run("rgb", []string{"-red", "C03", "-green", "C02", "-blue", "C01", "-title", "test", "-o", out, "-thumbnail", "10"}, cfg, nil))
	_, err := os.Stat(out)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(out), "true_color_thumb.png"))
	assert.NoError(t, err)

	err = run("rgb", []string{"-red", "C09"}, cfg, nil)
	assert.ErrorIs(t, err, geogrid.ErrBandNotFound)
}

func TestUsageErrors(t *testing.T) {
	cfg := testConfig(t)
	cases := []struct {
		command string
		args    []string
	}{
		{"bogus", nil},
		{"info", nil},
		{"info", []string{"-nope"}},
		{"subset", []string{"-store", "x"}},
		{"render", []string{"-store", "x"}},
		{"render", []string{"-store", "x", "-band", "b", "-vmin", "low"}},
	}
	for _, c := range cases {
		err := run(c.command, c.args, cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, errUsage, "%s %v", c.command, c.args)
	}
}

func TestParseBox(t *testing.T) {
	box, err := parseBox(" 30, 45,-125 ,-110")
	require.NoError(t, err)
	assert.Equal(t, &geogrid.BoundingBox{LatMin: 30, LatMax: 45, LonMin: -125, LonMax: -110}, box)

	box, err = parseBox("")
	require.NoError(t, err)
	assert.Nil(t, box)

	_, err = parseBox("1,2,3")
	assert.ErrorIs(t, err, errUsage)
	_, err = parseBox("1,2,3,x")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseProjection(t *testing.T) {
	p, err := parseProjection("")
	require.NoError(t, err)
	assert.Equal(t, "PlateCarree", p.Name())

	p, err = parseProjection("Mercator")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", p.Name())

	_, err = parseProjection("nonsense")
	assert.Error(t, err)
}
