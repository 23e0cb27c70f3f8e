package chart

import (
	"fmt"
	"math"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HeatmapNeutral is used for empty cells instead of the first ramp stop.
var HeatmapNeutral = RGB{249, 250, 251}

// heatmapRamp runs light green, green, teal, purple, magenta, red with the
// stops evenly spaced over [0, 1].
var heatmapRamp = []RGB{
	{220, 252, 231},
	{134, 239, 172},
	{34, 197, 94},
	{20, 184, 166},
	{147, 51, 234},
	{219, 39, 119},
	{220, 38, 38},
}

// contrastThreshold is the intensity above which cell text turns white.
const contrastThreshold = 0.5

// HeatmapColor maps a normalized intensity to the ramp. Values are clamped
// to [0, 1]; 0 (and NaN) yields HeatmapNeutral.
func HeatmapColor(intensity float64) RGB {
	if math.IsNaN(intensity) || intensity <= 0 {
		return HeatmapNeutral
	}
	if intensity >= 1 {
		return heatmapRamp[len(heatmapRamp)-1]
	}

	pos := intensity * float64(len(heatmapRamp)-1)
	i := int(pos)
	t := pos - float64(i)
	a, b := heatmapRamp[i], heatmapRamp[i+1]
	return RGB{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Intensity normalizes count by maxCount, 0 when maxCount is 0.
func Intensity(count, maxCount int) float64 {
	if maxCount <= 0 || count <= 0 {
		return 0
	}
	return min(1, float64(count)/float64(maxCount))
}

// CellTextColor picks white text on dark cells and gray otherwise.
func CellTextColor(intensity float64) string {
	if intensity > contrastThreshold {
		return ColorCellLight
	}
	return ColorLabel
}
