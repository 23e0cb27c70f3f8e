// Package chart maps aggregates to declarative scenes of rectangles, lines
// and text with explicit geometry. Scenes carry no rendering state; the
// svgwriter package paints them.
package chart

// Anchor is the horizontal text alignment.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// BaselineMiddle centers text vertically on its Y coordinate.
const BaselineMiddle = "middle"

// Palette used across charts.
const (
	ColorAxis       = "#e5e7eb"
	ColorLabel      = "#374151"
	ColorMutedLabel = "#6b7280"
	ColorDailyBar   = "#4A7C2C"
	ColorSpeciesBar = "#7BB3E8"
	ColorHourlyBar  = "#4A7C2C"
	ColorWeekdayBar = "#7BB3E8"
	ColorDaylight   = "#FEF3C7"
	ColorCellLight  = "#ffffff"

	FontFamily = "Inter, sans-serif"
)

// Padding is the fixed inset between the canvas edge and the plot area.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Shape is one of Rect, Line or Text.
type Shape interface {
	shape()
}

// Rect is a bar, heatmap cell or background band.
type Rect struct {
	X, Y, Width, Height float64
	Fill                string
	RX                  float64
	// Title is rendered as a tooltip.
	Title string
}

// Line is an axis or guide.
type Line struct {
	X1, Y1, X2, Y2 float64
	Stroke         string
	StrokeWidth    float64
}

// Text is a label. Rotate is in degrees around (X, Y).
type Text struct {
	X, Y     float64
	Content  string
	Size     float64
	Fill     string
	Anchor   Anchor
	Baseline string
	Rotate   float64
}

func (Rect) shape() {}
func (Line) shape() {}
func (Text) shape() {}

// Scene is a complete chart. Shapes are painted in order.
type Scene struct {
	Name    string
	Label   string
	Width   float64
	Height  float64
	Padding Padding
	Shapes  []Shape
}

// PlotWidth is the width inside the padding, never negative.
func (s *Scene) PlotWidth() float64 {
	return max(0, s.Width-s.Padding.Left-s.Padding.Right)
}

// PlotHeight is the height inside the padding, never negative.
func (s *Scene) PlotHeight() float64 {
	return max(0, s.Height-s.Padding.Top-s.Padding.Bottom)
}

func (s *Scene) add(shapes ...Shape) {
	s.Shapes = append(s.Shapes, shapes...)
}

// Rects returns the scene's rectangles in paint order.
func (s *Scene) Rects() []Rect { return shapesOf[Rect](s) }

// Lines returns the scene's lines in paint order.
func (s *Scene) Lines() []Line { return shapesOf[Line](s) }

// Texts returns the scene's text labels in paint order.
func (s *Scene) Texts() []Text { return shapesOf[Text](s) }

func shapesOf[T Shape](s *Scene) []T {
	var out []T
	for _, sh := range s.Shapes {
		if v, ok := sh.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
