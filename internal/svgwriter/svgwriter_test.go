package svgwriter

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/aggregate"
	"github.com/wasatchbitworks/birdworks-live/internal/chart"
)

func TestEncodeShapes(t *testing.T) {
	t.Parallel()

	s := &chart.Scene{
		Name:   "daily",
		Label:  "Daily detections bar chart",
		Width:  600,
		Height: 300,
		Shapes: []chart.Shape{
			chart.Line{X1: 40, Y1: 20, X2: 40, Y2: 240, Stroke: chart.ColorAxis, StrokeWidth: 1},
			chart.Rect{X: 58, Y: 130.333333, Width: 144, Height: 109.666667, Fill: chart.ColorDailyBar, RX: 2},
			chart.Text{X: 130, Y: 255, Content: "07/01", Size: 10, Fill: chart.ColorMutedLabel, Anchor: chart.AnchorMiddle, Rotate: -45},
		},
	}

	out, err := String(s)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 600 300"`))
	assert.Contains(t, out, `aria-label="Daily detections bar chart"`)
	assert.Contains(t, out, `<line x1="40" y1="20" x2="40" y2="240" stroke="#e5e7eb" stroke-width="1"/>`)
	assert.Contains(t, out, `<rect x="58" y="130.33" width="144" height="109.67" fill="#4A7C2C" rx="2"/>`)
	assert.Contains(t, out, `transform="rotate(-45 130 255)">07/01</text>`)
	assert.True(t, strings.HasSuffix(out, "</svg>"))
}

func TestEncodeEscapesContent(t *testing.T) {
	t.Parallel()

	s := &chart.Scene{
		Name:  "species",
		Label: `Top "species"`,
		Shapes: []chart.Shape{
			chart.Text{Content: `<script>alert("x")</script> & Co`},
			chart.Rect{Title: "Wilson's Warbler at 6a: 3"},
		},
	}

	out, err := String(s)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&amp; Co")
	assert.Contains(t, out, `aria-label="Top &#34;species&#34;"`)
	assert.Contains(t, out, "<title>Wilson&#39;s Warbler at 6a: 3</title>")
}

func TestEncodedChartsAreWellFormedXML(t *testing.T) {
	t.Parallel()

	var h aggregate.Hourly
	for i := range h.Buckets {
		h.Buckets[i] = aggregate.HourBucket{Hour: i, Label: aggregate.HourLabel(i), Count: i}
	}
	scenes := []chart.Scene{
		chart.Daily([]aggregate.LabeledValue{{Label: "2024-07-01", Value: 1234}}, chart.Options{}),
		chart.Hourly(h, chart.Options{Daylight: &chart.DaylightBand{Sunrise: 6, Sunset: 20}}),
		chart.Heatmap(aggregate.SpeciesHourMatrix{
			Species:   []aggregate.SpeciesHours{{Name: "Steller's Jay", Total: 2, Hourly: [24]int{9: 2}}},
			MaxHourly: 2,
		}, chart.Options{}),
	}

	for _, s := range scenes {
		out, err := String(&s)
		require.NoError(t, err)

		dec := xml.NewDecoder(strings.NewReader(out))
		for {
			_, err := dec.Token()
			if err != nil {
				assert.ErrorIs(t, err, io.EOF, s.Name)
				break
			}
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeReportsWriteErrors(t *testing.T) {
	t.Parallel()

	s := chart.Daily(make([]aggregate.LabeledValue, 400), chart.Options{})
	err := Encode(failingWriter{}, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "12.5", num(12.5))
	assert.Equal(t, "1.23", num(1.2345))
}
