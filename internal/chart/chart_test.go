package chart

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/aggregate"
)

func TestHeatmapColorEndpoints(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HeatmapNeutral, HeatmapColor(0))
	assert.Equal(t, "#f9fafb", HeatmapColor(0).Hex())
	assert.Equal(t, heatmapRamp[len(heatmapRamp)-1], HeatmapColor(1))
	assert.Equal(t, "#dc2626", HeatmapColor(1).Hex())

	// clamped
	assert.Equal(t, HeatmapNeutral, HeatmapColor(-0.3))
	assert.Equal(t, HeatmapColor(1), HeatmapColor(7))
}

func TestHeatmapColorHitsStops(t *testing.T) {
	t.Parallel()

	segments := float64(len(heatmapRamp) - 1)
	for k := 1; k < len(heatmapRamp); k++ {
		assert.Equal(t, heatmapRamp[k], HeatmapColor(float64(k)/segments), "stop %d", k)
	}
}

func TestHeatmapColorMonotonicBetweenStops(t *testing.T) {
	t.Parallel()

	segments := len(heatmapRamp) - 1
	channel := func(c RGB, i int) int { return int([]uint8{c.R, c.G, c.B}[i]) }

	for seg := range segments {
		a, b := heatmapRamp[seg], heatmapRamp[seg+1]
		for ch := range 3 {
			dir := channel(b, ch) - channel(a, ch)
			prev := channel(a, ch)
			for step := 1; step <= 50; step++ {
				intensity := (float64(seg) + float64(step)/50) / float64(segments)
				cur := channel(HeatmapColor(intensity), ch)
				switch {
				case dir > 0:
					assert.GreaterOrEqual(t, cur, prev, "segment %d channel %d step %d", seg, ch, step)
				case dir < 0:
					assert.LessOrEqual(t, cur, prev, "segment %d channel %d step %d", seg, ch, step)
				default:
					assert.Equal(t, prev, cur)
				}
				prev = cur
			}
		}
	}
}

func TestCellTextColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ColorLabel, CellTextColor(0.2))
	assert.Equal(t, ColorLabel, CellTextColor(0.5))
	assert.Equal(t, ColorCellLight, CellTextColor(0.51))
	assert.InDelta(t, 0.5, Intensity(2, 4), 1e-9)
	assert.Zero(t, Intensity(3, 0))
}

func TestShowLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		i, n, every int
		dense       bool
		want        bool
	}{
		{5, 30, 3, false, true},
		{0, 30, 3, true, true},
		{1, 30, 3, true, false},
		{27, 30, 3, true, true},
		{28, 30, 3, true, false},
		{29, 30, 3, true, true},
		{7, 30, 1, true, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d_every_%d_dense_%v", tt.i, tt.n, tt.every, tt.dense), func(t *testing.T) {
			assert.Equal(t, tt.want, ShowLabel(tt.i, tt.n, tt.every, tt.dense))
		})
	}
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234", Options{}.FormatCount(1234))
	assert.Equal(t, "7", Options{}.FormatCount(7))
	assert.Equal(t, "05/04", ShortDate("2024-05-04"))
	assert.Equal(t, "today", ShortDate("today"))
}

func TestDailyLayout(t *testing.T) {
	t.Parallel()

	s := Daily([]aggregate.LabeledValue{
		{Label: "2024-07-01", Value: 2},
		{Label: "2024-07-02", Value: 0},
		{Label: "2024-07-03", Value: 4},
	}, Options{})

	assert.InDelta(t, 600, s.Width, 0)
	assert.InDelta(t, 300, s.Height, 0)

	// plot area 540x220, slot 180, bar 144
	want := []Rect{
		{X: 58, Y: 130, Width: 144, Height: 110, Fill: ColorDailyBar, RX: 2, Title: "2024-07-01: 2 detections"},
		{X: 238, Y: 240, Width: 144, Height: 0, Fill: ColorDailyBar, RX: 2, Title: "2024-07-02: 0 detections"},
		{X: 418, Y: 20, Width: 144, Height: 220, Fill: ColorDailyBar, RX: 2, Title: "2024-07-03: 4 detections"},
	}
	if diff := cmp.Diff(want, s.Rects()); diff != "" {
		t.Errorf("daily bars mismatch (-want +got):\n%s", diff)
	}

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, Line{X1: 40, Y1: 20, X2: 40, Y2: 240, Stroke: ColorAxis, StrokeWidth: 1}, lines[0])

	var counts, dates []string
	for _, tx := range s.Texts() {
		if tx.Size == 12 {
			counts = append(counts, tx.Content)
		} else {
			dates = append(dates, tx.Content)
			assert.Zero(t, tx.Rotate, "wide slots are not rotated")
		}
	}
	assert.Equal(t, []string{"2", "4"}, counts, "zero bars get no count label")
	assert.Equal(t, []string{"07/01", "07/02", "07/03"}, dates)
}

func TestDailyDenseLabels(t *testing.T) {
	t.Parallel()

	days := make([]aggregate.LabeledValue, 30)
	for i := range days {
		days[i] = aggregate.LabeledValue{Label: fmt.Sprintf("2024-06-%02d", i+1), Value: i}
	}
	s := Daily(days, Options{LabelEvery: 3})

	var dates []string
	for _, tx := range s.Texts() {
		if tx.Size == 10 {
			dates = append(dates, tx.Content)
			assert.InDelta(t, -45, tx.Rotate, 0)
		}
	}
	assert.Equal(t, []string{
		"06/01", "06/04", "06/07", "06/10", "06/13",
		"06/16", "06/19", "06/22", "06/25", "06/28", "06/30",
	}, dates)
}

func TestDegenerateScenesDoNotPanic(t *testing.T) {
	t.Parallel()

	zeros := []aggregate.LabeledValue{{Label: "2024-07-01", Value: 0}, {Label: "2024-07-02", Value: 0}}

	scenes := []Scene{
		Daily(nil, Options{}),
		Daily(zeros, Options{}),
		Daily(zeros[:1], Options{Width: 30}),
		Species(nil, Options{}),
		Species(zeros, Options{Width: 100}),
		Hourly(aggregate.Hourly{}, Options{}),
		Heatmap(aggregate.SpeciesHourMatrix{}, Options{}),
		Heatmap(aggregate.SpeciesHourMatrix{Species: []aggregate.SpeciesHours{{Name: "x"}}}, Options{Width: 10}),
		Weekday(aggregate.Weekly{}, Options{}),
	}
	for _, s := range scenes {
		for _, r := range s.Rects() {
			assert.GreaterOrEqual(t, r.Width, 0.0, s.Name)
			assert.GreaterOrEqual(t, r.Height, 0.0, s.Name)
		}
		assert.GreaterOrEqual(t, s.PlotWidth(), 0.0)
	}
}

func TestSpeciesLayout(t *testing.T) {
	t.Parallel()

	species := make([]aggregate.LabeledValue, 15)
	for i := range species {
		species[i] = aggregate.LabeledValue{Label: fmt.Sprintf("Species %d", i), Value: 1500 - i*100}
	}
	s := Species(species, Options{})

	assert.InDelta(t, 450, s.Height, 0)
	rects := s.Rects()
	require.Len(t, rects, 15)
	assert.InDelta(t, 390, rects[0].Width, 1e-9, "largest bar spans the plot width")
	assert.InDelta(t, 150, rects[0].X, 0)

	texts := s.Texts()
	require.Len(t, texts, 30)
	assert.Equal(t, Text{X: 140, Y: rects[0].Y + rects[0].Height/2, Content: "Species 0", Size: 12, Fill: ColorLabel, Anchor: AnchorEnd, Baseline: BaselineMiddle}, texts[0])
	assert.Equal(t, "1,500", texts[1].Content)
	assert.InDelta(t, 150+390+5, texts[1].X, 1e-9)

	small := Species(species[:2], Options{})
	assert.InDelta(t, 300, small.Height, 0)
}

func TestHourlyLabelsAndDaylight(t *testing.T) {
	t.Parallel()

	var h aggregate.Hourly
	for i := range h.Buckets {
		h.Buckets[i] = aggregate.HourBucket{Hour: i, Label: aggregate.HourLabel(i), Count: i % 4}
	}

	s := Hourly(h, Options{Daylight: &DaylightBand{Sunrise: 6, Sunset: 20.5}})

	rects := s.Rects()
	require.Len(t, rects, 25)
	assert.Equal(t, ColorDaylight, rects[0].Fill)
	assert.InDelta(t, 40+6*22.5, rects[0].X, 1e-9)
	assert.InDelta(t, 14.5*22.5, rects[0].Width, 1e-9)

	var hourLabels []string
	for _, tx := range s.Texts() {
		if tx.Size == 10 {
			hourLabels = append(hourLabels, tx.Content)
		}
	}
	assert.Equal(t, []string{"12a", "3a", "6a", "9a", "12p", "3p", "6p", "9p", "11p"}, hourLabels)

	plain := Hourly(h, Options{})
	assert.Len(t, plain.Rects(), 24)
}

func TestHeatmapCells(t *testing.T) {
	t.Parallel()

	m := aggregate.SpeciesHourMatrix{
		Species: []aggregate.SpeciesHours{
			{Name: "American Robin", Total: 6, Hourly: [24]int{6: 4, 7: 2}},
			{Name: "House Finch", Total: 1, Hourly: [24]int{12: 1}},
		},
		MaxHourly: 4,
	}
	s := Heatmap(m, Options{})

	assert.InDelta(t, 30+2*20+10, s.Height, 0)
	rects := s.Rects()
	require.Len(t, rects, 48)

	assert.Equal(t, "#dc2626", rects[6].Fill)
	assert.Equal(t, "American Robin at 6a: 4", rects[6].Title)
	assert.Equal(t, HeatmapColor(0.5).Hex(), rects[7].Fill)
	assert.Equal(t, "#f9fafb", rects[0].Fill)
	assert.Equal(t, HeatmapColor(0.25).Hex(), rects[24+12].Fill)

	var cellTexts []Text
	for _, tx := range s.Texts() {
		if tx.Size == 9 {
			cellTexts = append(cellTexts, tx)
		}
	}
	require.Len(t, cellTexts, 3)
	assert.Equal(t, ColorCellLight, cellTexts[0].Fill, "busiest cell gets white text")
	assert.Equal(t, ColorLabel, cellTexts[1].Fill, "half intensity stays dark")
}

func TestWeekdayLabels(t *testing.T) {
	t.Parallel()

	w := aggregate.Weekly{}
	for d, label := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		w.Days[d] = aggregate.LabeledValue{Label: label, Value: d * 2}
	}
	s := Weekday(w, Options{})

	var labels []string
	for _, tx := range s.Texts() {
		if tx.Size == 10 {
			labels = append(labels, tx.Content)
			assert.Zero(t, tx.Rotate)
		}
	}
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, labels)
	assert.Len(t, s.Rects(), 7)
}
