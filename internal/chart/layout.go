package chart

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultWidth is the canvas width when Options.Width is unset.
	DefaultWidth = 600
	// DefaultLabelEvery keeps every third axis label on dense axes.
	DefaultLabelEvery = 3

	// denseSlot is the slot width below which axis labels are decimated.
	denseSlot = 24.0
	// rotateSlot is the slot width below which axis labels are rotated.
	rotateSlot = 40.0
	// rotateAngle tilts crowded axis labels.
	rotateAngle = -45.0
)

// Options tune layout for every renderer.
type Options struct {
	Width      float64
	LabelEvery int
	// Printer formats count labels; English grouping when nil.
	Printer *message.Printer
	// Daylight shades sunrise to sunset on the hourly chart when set.
	Daylight *DaylightBand
}

// DaylightBand is a span of local hours, e.g. 5.9 to 20.6.
type DaylightBand struct {
	Sunrise float64
	Sunset  float64
}

func (o Options) width() float64 {
	if o.Width <= 0 {
		return DefaultWidth
	}
	return o.Width
}

func (o Options) labelEvery() int {
	if o.LabelEvery < 1 {
		return DefaultLabelEvery
	}
	return o.LabelEvery
}

var englishPrinter = message.NewPrinter(language.English)

// FormatCount renders n with thousands grouping, e.g. 1,234.
func (o Options) FormatCount(n int) string {
	p := o.Printer
	if p == nil {
		p = englishPrinter
	}
	return p.Sprintf("%d", n)
}

// ShowLabel reports whether the i-th of n axis labels is drawn. Sparse axes
// show every label; dense axes show every nth plus always the last.
func ShowLabel(i, n, every int, dense bool) bool {
	if !dense || every <= 1 {
		return true
	}
	return i%every == 0 || i == n-1
}

// scale maps value onto span relative to maxValue, 0 when maxValue is 0.
func scale(value, maxValue int, span float64) float64 {
	if maxValue <= 0 || value <= 0 {
		return 0
	}
	return float64(value) / float64(maxValue) * span
}

func maxOf[T any](items []T, value func(T) int) int {
	m := 0
	for _, it := range items {
		m = max(m, value(it))
	}
	return m
}

// ShortDate turns YYYY-MM-DD into MM/DD and leaves anything else untouched.
func ShortDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) == 3 {
		return parts[1] + "/" + parts[2]
	}
	return date
}

func axes(s *Scene) {
	bottom := s.Height - s.Padding.Bottom
	s.add(
		Line{X1: s.Padding.Left, Y1: s.Padding.Top, X2: s.Padding.Left, Y2: bottom, Stroke: ColorAxis, StrokeWidth: 1},
		Line{X1: s.Padding.Left, Y1: bottom, X2: s.Width - s.Padding.Right, Y2: bottom, Stroke: ColorAxis, StrokeWidth: 1},
	)
}

// verticalBar is one column of a vertical bar chart.
type verticalBar struct {
	label string
	value int
	title string
}

// verticalBars lays out columns with 80% bars, count labels above non-zero
// bars and category labels under the axis.
func verticalBars(s *Scene, bars []verticalBar, fill string, opts Options) {
	axes(s)
	n := len(bars)
	if n == 0 {
		return
	}

	plotW, plotH := s.PlotWidth(), s.PlotHeight()
	slot := plotW / float64(n)
	barW := slot * 0.8
	maxValue := maxOf(bars, func(b verticalBar) int { return b.value })
	baseline := s.Height - s.Padding.Bottom
	dense := slot < denseSlot
	rotate := slot < rotateSlot
	every := opts.labelEvery()

	for i, b := range bars {
		barH := scale(b.value, maxValue, plotH)
		x := s.Padding.Left + float64(i)*slot + slot*0.1
		y := baseline - barH
		cx := x + barW/2

		s.add(Rect{X: x, Y: y, Width: barW, Height: barH, Fill: fill, RX: 2, Title: b.title})

		if b.value > 0 {
			s.add(Text{X: cx, Y: y - 5, Content: opts.FormatCount(b.value), Size: 12, Fill: ColorLabel, Anchor: AnchorMiddle})
		}

		if !ShowLabel(i, n, every, dense) {
			continue
		}
		label := Text{X: cx, Y: baseline + 15, Content: b.label, Size: 10, Fill: ColorMutedLabel, Anchor: AnchorMiddle}
		if rotate {
			label.Rotate = rotateAngle
		}
		s.add(label)
	}
}
