package zarr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions on an array store
	MTGroup MetaType = ".zgroup"
	// MTMetadata is the key for composite metadata
	MTMetadata MetaType = ".zmetadata"
)

type MetaTyper interface {
	MetaType() MetaType
}

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
	MTGroup:      {},
}

// every metadata key name is 7 bytes
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

type Attributes map[string]interface{}

func (Attributes) MetaType() MetaType { return MTAttributes }

// Arrays can be organized into groups which can also contain other groups.
// A group exists at logical path "foo/bar" if the "foo/bar/.zgroup" key
// exists in the store.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

func (Group) MetaType() MetaType { return MTGroup }

// ConsolidatedMetadata gathers every metadata document of a hierarchy under
// one ".zmetadata" key, keyed by path relative to the group, so a reader can
// discover arrays without listing the store
type ConsolidatedMetadata struct {
	ConsolidatedFormat int                  `json:"zarr_consolidated_format"`
	Metadata           map[string]MetaTyper `json:"metadata"`
}

type consolidatedMetaDecoder struct {
	ConsolidatedFormat int                        `json:"zarr_consolidated_format"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
}

func (m *ConsolidatedMetadata) UnmarshalJSON(d []byte) error {
	cd := consolidatedMetaDecoder{}
	if err := json.Unmarshal(d, &cd); err != nil {
		return err
	}
	cm := ConsolidatedMetadata{
		ConsolidatedFormat: cd.ConsolidatedFormat,
		Metadata:           map[string]MetaTyper{},
	}

	for key, data := range cd.Metadata {
		kt, ok := KeyMetaType(key)
		if !ok {
			return fmt.Errorf("invalid consolidated metadata key: %q", key)
		}

		switch kt {
		case MTArray:
			arr := &ArrayMeta{}
			if err := json.Unmarshal(data, arr); err != nil {
				return fmt.Errorf("reading %q metadata: %w", key, err)
			}
			cm.Metadata[key] = arr
		case MTAttributes:
			attr := Attributes{}
			if err := json.Unmarshal(data, &attr); err != nil {
				return fmt.Errorf("reading %q attributes: %w", key, err)
			}
			cm.Metadata[key] = attr
		case MTGroup:
			grp := Group{}
			if err := json.Unmarshal(data, &grp); err != nil {
				return fmt.Errorf("reading %q group: %w", key, err)
			}
			cm.Metadata[key] = grp
		}
	}

	*m = cm
	return nil
}

// Arrays returns the paths of every array listed, relative to the group
func (m *ConsolidatedMetadata) Arrays() map[string]*ArrayMeta {
	arrays := map[string]*ArrayMeta{}
	for key, mt := range m.Metadata {
		if a, ok := mt.(*ArrayMeta); ok {
			arrays[strings.TrimSuffix(strings.TrimSuffix(key, string(MTArray)), "/")] = a
		}
	}
	return arrays
}

// AttributesOf returns the attributes stored for the array or group at
// path, or nil
func (m *ConsolidatedMetadata) AttributesOf(path string) Attributes {
	a, _ := m.Metadata[NewPath(path).Join(string(MTAttributes)).String()].(Attributes)
	return a
}

// ArrayMeta is the JSON document stored under an array's ".zarray" key
type ArrayMeta struct {
	ZarrFormat int `json:"zarr_format"`
	// array length per dimension
	Shape []int `json:"shape"`
	// chunk length per dimension, identical for every chunk
	Chunks []int `json:"chunks"`
	// structured types are rejected
	Dtype      Dtype            `json:"dtype"`
	Compressor *CompressionMeta `json:"compressor"`
	// value for cells whose chunk was never written; null reads as NaN
	FillValue interface{} `json:"fill_value"`
	// only "C" (row-major) is supported
	Order   string   `json:"order"`
	Filters []Filter `json:"filters"`
	// "." (the default when empty) or "/", joining chunk indices in keys
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// Validate checks the metadata describes an array this package can read
func (a *ArrayMeta) Validate() error {
	if a.ZarrFormat != Version {
		return fmt.Errorf("unsupported zarr_format %d", a.ZarrFormat)
	}
	if len(a.Shape) == 0 {
		return fmt.Errorf("zero-dimensional arrays are not supported")
	}
	if len(a.Chunks) != len(a.Shape) {
		return fmt.Errorf("chunks %v do not match shape %v", a.Chunks, a.Shape)
	}
	for i, c := range a.Chunks {
		if c <= 0 {
			return fmt.Errorf("invalid chunk length %d on dimension %d", c, i)
		}
		if a.Shape[i] < 0 {
			return fmt.Errorf("invalid shape %v", a.Shape)
		}
	}
	if a.Order != "" && a.Order != "C" {
		return fmt.Errorf("unsupported order %q", a.Order)
	}
	if len(a.Filters) > 0 {
		return fmt.Errorf("filters are not supported, got %d", len(a.Filters))
	}
	switch a.DimensionSeparator {
	case "", ".", "/":
	default:
		return fmt.Errorf("invalid dimension_separator %q", a.DimensionSeparator)
	}
	return a.Dtype.numeric()
}

func (a *ArrayMeta) separator() string {
	if a.DimensionSeparator == "" {
		return "."
	}
	return a.DimensionSeparator
}

// fill returns the fill value as a float64. A null fill value reads as NaN.
func (a *ArrayMeta) fill() (float64, error) {
	switch v := a.FillValue.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		switch v {
		case FillValueNaN:
			return math.NaN(), nil
		case FillValueInfinity:
			return math.Inf(1), nil
		case FillValueNegativeInfinity:
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("unsupported fill_value %v", a.FillValue)
}

// fillValueFor encodes v the way zarr stores float fill values in JSON
func fillValueFor(v float64) interface{} {
	switch {
	case math.IsNaN(v):
		return FillValueNaN
	case math.IsInf(v, 1):
		return FillValueInfinity
	case math.IsInf(v, -1):
		return FillValueNegativeInfinity
	}
	return v
}

// Filter is a codec configuration; every filter carries an "id" key
type Filter map[string]interface{}

func (f Filter) ID() string {
	id, _ := f["id"].(string)
	return id
}

const (
	// Not a Number
	FillValueNaN = "NaN"
	// Infinity
	FillValueInfinity = "Infinity"
	// -Infinity
	FillValueNegativeInfinity = "-Infinity"
)
