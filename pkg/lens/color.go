package lens

import (
	"fmt"
	"math"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Fixed palette.
const (
	AmberRing      = "#ff9f43"
	AccentOutgoing = "#e8453c"
	AccentIncoming = "#4c88cc"

	dimNodeFill   = "#222831"
	dimNodeStroke = "#283241"
	dimLink       = "#111317"
	neutralStroke = "#222"
	transparent   = "transparent"
)

// Ramp interpolates between two colors in CIE L*a*b* space.
type Ramp struct {
	low, high colorful.Color
}

// NewRamp builds a Ramp from two hex colors. Invalid hex values become
// black, which only affects a misconfigured palette.
func NewRamp(low, high string) Ramp {
	l, _ := colorful.Hex(low)
	h, _ := colorful.Hex(high)
	return Ramp{low: l, high: h}
}

// At returns the hex color at t, with t clamped to [0, 1].
func (r Ramp) At(t float64) string {
	return r.low.BlendLab(r.high, clamp01(t)).Clamped().Hex()
}

var (
	// NodeRamp colors nodes by default-lens score.
	NodeRamp = NewRamp("#35597d", "#e8453c")
	// LinkRamp colors links by weight intensity.
	LinkRamp = NewRamp("#1f2f41", "#e8453c")
)

// RGBA renders hex with the given alpha as a CSS rgba() color. Values that
// are not six-digit hex colors fall back to the accent red.
func RGBA(hex string, alpha float64) string {
	a := strconv.FormatFloat(math.Round(alpha*1000)/1000, 'f', -1, 64)
	c, err := colorful.Hex(hex)
	if len(hex) != 7 || err != nil {
		return fmt.Sprintf("rgba(232,69,60,%s)", a)
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, a)
}

// TierColor is the neutral fill of a country by GDP tier.
func TierColor(gdp float64) string {
	switch {
	case gdp >= 10e12:
		return "#e8453c"
	case gdp >= 1e12:
		return "#ff9800"
	case gdp >= 100e9:
		return "#4caf50"
	}
	return "#4488cc"
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}
