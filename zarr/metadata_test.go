package zarr

import (
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the .zarray document from the zarr v2 format docs
const formatDocArray = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"filters": [
			{"id": "delta", "dtype": "<f8", "astype": "<f4"}
	],
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	require.NoError(t, json.Unmarshal([]byte(formatDocArray), m))

	assert.Equal(t, []int{10000, 10000}, m.Shape)
	assert.Equal(t, []int{1000, 1000}, m.Chunks)
	assert.Equal(t, Float64, m.Dtype)
	assert.Equal(t, &CompressionMeta{ID: "blosc", Cname: "lz4", Clevel: 5, Shuffle: 1}, m.Compressor)
	require.Len(t, m.Filters, 1)
	assert.Equal(t, "delta", m.Filters[0].ID())

	fill, err := m.fill()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fill))

	// filters are decoded but cannot be applied
	assert.Error(t, m.Validate())
	m.Filters = nil
	assert.NoError(t, m.Validate())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	back := &ArrayMeta{}
	require.NoError(t, json.Unmarshal(data, back))
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayMetaValidate(t *testing.T) {
	valid := func() *ArrayMeta {
		return &ArrayMeta{ZarrFormat: Version, Shape: []int{4, 4}, Chunks: []int{2, 2}, Dtype: Float64, Order: "C"}
	}
	cases := []struct {
		name   string
		modify func(m *ArrayMeta)
	}{
		{"version", func(m *ArrayMeta) { m.ZarrFormat = 3 }},
		{"scalar", func(m *ArrayMeta) { m.Shape, m.Chunks = nil, nil }},
		{"chunk rank", func(m *ArrayMeta) { m.Chunks = []int{2} }},
		{"zero chunk", func(m *ArrayMeta) { m.Chunks = []int{2, 0} }},
		{"negative shape", func(m *ArrayMeta) { m.Shape = []int{-1, 4} }},
		{"fortran order", func(m *ArrayMeta) { m.Order = "F" }},
		{"separator", func(m *ArrayMeta) { m.DimensionSeparator = "-" }},
		{"string dtype", func(m *ArrayMeta) { m.Dtype = Dtype{ByteOrder: BONotRelevant, BasicType: BTString, ByteSize: 8} }},
		{"half float", func(m *ArrayMeta) { m.Dtype = Dtype{ByteOrder: BOLittleEndian, BasicType: BTFloatingPoint, ByteSize: 2} }},
	}

	require.NoError(t, valid().Validate())
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := valid()
			c.modify(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestFillValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{nil, math.NaN()},
		{"NaN", math.NaN()},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{float64(-9999), -9999},
		{true, 1},
		{false, 0},
	}
	for _, c := range cases {
		m := &ArrayMeta{FillValue: c.in}
		got, err := m.fill()
		require.NoError(t, err)
		if math.IsNaN(c.want) {
			assert.True(t, math.IsNaN(got), "fill %v", c.in)
			continue
		}
		assert.Equal(t, c.want, got, "fill %v", c.in)
	}

	_, err := (&ArrayMeta{FillValue: "bad"}).fill()
	assert.Error(t, err)

	assert.Equal(t, FillValueNaN, fillValueFor(math.NaN()))
	assert.Equal(t, FillValueNegativeInfinity, fillValueFor(math.Inf(-1)))
	assert.Equal(t, 2.5, fillValueFor(2.5))
}

func TestKeyMetaType(t *testing.T) {
	mt, ok := KeyMetaType("foo/bar/.zarray")
	assert.True(t, ok)
	assert.Equal(t, MTArray, mt)

	mt, ok = KeyMetaType(".zattrs")
	assert.True(t, ok)
	assert.Equal(t, MTAttributes, mt)

	_, ok = KeyMetaType("foo/0.0")
	assert.False(t, ok)
	_, ok = KeyMetaType("a")
	assert.False(t, ok)
}

func TestConsolidatedMetadata(t *testing.T) {
	cm := &ConsolidatedMetadata{}
	f, err := os.Open("./testdata/sst.zarr/.zmetadata")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, json.NewDecoder(f).Decode(cm))

	assert.Equal(t, 1, cm.ConsolidatedFormat)
	assert.Equal(t, Group{ZarrFormat: 2}, cm.Metadata[".zgroup"])

	arrays := cm.Arrays()
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"ice", "lat", "lon", "sst"}, names)
	assert.Equal(t, "<f4", arrays["sst"].Dtype.String())
	assert.Equal(t, "K", cm.AttributesOf("sst")["units"])
	assert.Equal(t, "hand written fixture", cm.AttributesOf("")["title"])
	assert.Nil(t, cm.AttributesOf("missing"))

	bad := &ConsolidatedMetadata{}
	assert.Error(t, json.Unmarshal([]byte(`{"metadata":{"sst/0.0":{}}}`), bad))
}
