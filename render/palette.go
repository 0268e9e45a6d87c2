package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// ErrUnknownColorScale is returned for color scale names ColorMap does not
// know
var ErrUnknownColorScale = errors.New("unknown color scale")

// DefaultColorScale is used when no color scale is named
const DefaultColorScale = "extended_blackbody"

var colorScales = map[string]func() palette.ColorMap{
	"blackbody":          moreland.BlackBody,
	"extended_blackbody": moreland.ExtendedBlackBody,
	"kindlmann":          moreland.Kindlmann,
	"extended_kindlmann": moreland.ExtendedKindlmann,
	"blue_red":           func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"blue_tan":           func() palette.ColorMap { return moreland.SmoothBlueTan() },
	"green_purple":       func() palette.ColorMap { return moreland.SmoothGreenPurple() },
	"green_red":          func() palette.ColorMap { return moreland.SmoothGreenRed() },
	"purple_orange":      func() palette.ColorMap { return moreland.SmoothPurpleOrange() },
}

// ColorMap returns a fresh color map for name. A "_r" suffix reverses it.
func ColorMap(name string) (palette.ColorMap, error) {
	if name == "" {
		name = DefaultColorScale
	}
	base := strings.TrimSuffix(name, "_r")
	fn, ok := colorScales[base]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColorScale, name)
	}
	cm := fn()
	if base != name {
		cm = palette.Reverse(cm)
	}
	return cm, nil
}

// ColorScales lists the names ColorMap accepts, without reversed variants
func ColorScales() []string {
	names := make([]string, 0, len(colorScales))
	for n := range colorScales {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
