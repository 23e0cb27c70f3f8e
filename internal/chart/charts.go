package chart

import (
	"fmt"

	"github.com/wasatchbitworks/birdworks-live/internal/aggregate"
)

// Chart names, also used in URLs and file names.
const (
	NameDaily   = "daily"
	NameSpecies = "species"
	NameHourly  = "hourly"
	NameHeatmap = "heatmap"
	NameWeekday = "weekday"
)

// Names lists every chart in page order.
var Names = []string{NameDaily, NameSpecies, NameHourly, NameHeatmap, NameWeekday}

// Daily draws one vertical bar per day, labeled MM/DD.
func Daily(days []aggregate.LabeledValue, opts Options) Scene {
	s := Scene{
		Name:    NameDaily,
		Label:   "Daily detections bar chart",
		Width:   opts.width(),
		Height:  300,
		Padding: Padding{Top: 20, Right: 20, Bottom: 60, Left: 40},
	}
	bars := make([]verticalBar, len(days))
	for i, d := range days {
		bars[i] = verticalBar{
			label: ShortDate(d.Label),
			value: d.Value,
			title: fmt.Sprintf("%s: %s detections", d.Label, opts.FormatCount(d.Value)),
		}
	}
	verticalBars(&s, bars, ColorDailyBar, opts)
	return s
}

// Species draws horizontal bars with the name left of the axis and the
// count after the bar. Height grows by 30 per species, 300 minimum.
func Species(species []aggregate.LabeledValue, opts Options) Scene {
	s := Scene{
		Name:    NameSpecies,
		Label:   "Top species bar chart",
		Width:   opts.width(),
		Height:  max(300, float64(len(species))*30),
		Padding: Padding{Top: 10, Right: 60, Bottom: 10, Left: 150},
	}
	n := len(species)
	if n == 0 {
		return s
	}

	plotW, plotH := s.PlotWidth(), s.PlotHeight()
	spacing := plotH / float64(n)
	barH := spacing * 0.8
	maxValue := maxOf(species, func(v aggregate.LabeledValue) int { return v.Value })

	for i, sp := range species {
		barW := scale(sp.Value, maxValue, plotW)
		x := s.Padding.Left
		y := s.Padding.Top + float64(i)*spacing + (spacing-barH)/2
		mid := y + barH/2

		s.add(
			Rect{X: x, Y: y, Width: barW, Height: barH, Fill: ColorSpeciesBar, RX: 2},
			Text{X: s.Padding.Left - 10, Y: mid, Content: sp.Label, Size: 12, Fill: ColorLabel, Anchor: AnchorEnd, Baseline: BaselineMiddle},
			Text{X: x + barW + 5, Y: mid, Content: opts.FormatCount(sp.Value), Size: 12, Fill: ColorLabel, Anchor: AnchorStart, Baseline: BaselineMiddle},
		)
	}
	return s
}

// Hourly draws 24 bars, 12a through 11p, over an optional daylight band.
func Hourly(h aggregate.Hourly, opts Options) Scene {
	s := Scene{
		Name:    NameHourly,
		Label:   "Detections by hour bar chart",
		Width:   opts.width(),
		Height:  260,
		Padding: Padding{Top: 20, Right: 20, Bottom: 40, Left: 40},
	}

	if band := opts.Daylight; band != nil && band.Sunset > band.Sunrise {
		slot := s.PlotWidth() / aggregate.HoursPerDay
		start := max(0, band.Sunrise)
		end := min(aggregate.HoursPerDay, band.Sunset)
		s.add(Rect{
			X:      s.Padding.Left + start*slot,
			Y:      s.Padding.Top,
			Width:  (end - start) * slot,
			Height: s.PlotHeight(),
			Fill:   ColorDaylight,
			Title:  "Daylight",
		})
	}

	bars := make([]verticalBar, 0, aggregate.HoursPerDay)
	for _, b := range h.Buckets {
		bars = append(bars, verticalBar{
			label: b.Label,
			value: b.Count,
			title: fmt.Sprintf("%s: %s detections", b.Label, opts.FormatCount(b.Count)),
		})
	}
	verticalBars(&s, bars, ColorHourlyBar, opts)
	return s
}

// Weekday draws the average daily count for Sunday through Saturday.
func Weekday(w aggregate.Weekly, opts Options) Scene {
	s := Scene{
		Name:    NameWeekday,
		Label:   "Average detections by day of week bar chart",
		Width:   opts.width(),
		Height:  240,
		Padding: Padding{Top: 20, Right: 20, Bottom: 40, Left: 40},
	}
	bars := make([]verticalBar, 0, len(w.Days))
	for _, d := range w.Days {
		bars = append(bars, verticalBar{
			label: d.Label,
			value: d.Value,
			title: fmt.Sprintf("%s: %s per day on average", d.Label, opts.FormatCount(d.Value)),
		})
	}
	verticalBars(&s, bars, ColorWeekdayBar, opts)
	return s
}

const (
	heatmapCellHeight = 20.0
	heatmapHeader     = 30.0
	heatmapCellGap    = 1.0
)

// Heatmap draws one row per species and one column per hour, colored by
// count relative to the busiest cell.
func Heatmap(m aggregate.SpeciesHourMatrix, opts Options) Scene {
	rows := len(m.Species)
	s := Scene{
		Name:    NameHeatmap,
		Label:   "Species activity by hour heatmap",
		Width:   opts.width(),
		Height:  heatmapHeader + float64(rows)*heatmapCellHeight + 10,
		Padding: Padding{Top: heatmapHeader, Right: 10, Bottom: 10, Left: 150},
	}

	cellW := s.PlotWidth() / aggregate.HoursPerDay
	dense := cellW < denseSlot
	every := opts.labelEvery()

	for h := range aggregate.HoursPerDay {
		if !ShowLabel(h, aggregate.HoursPerDay, every, dense) {
			continue
		}
		s.add(Text{
			X:       s.Padding.Left + float64(h)*cellW + cellW/2,
			Y:       heatmapHeader - 10,
			Content: aggregate.HourLabel(h),
			Size:    10,
			Fill:    ColorMutedLabel,
			Anchor:  AnchorMiddle,
		})
	}

	cellInnerW := max(0, cellW-heatmapCellGap)
	for r, sp := range m.Species {
		y := s.Padding.Top + float64(r)*heatmapCellHeight
		s.add(Text{
			X:        s.Padding.Left - 8,
			Y:        y + heatmapCellHeight/2,
			Content:  sp.Name,
			Size:     11,
			Fill:     ColorLabel,
			Anchor:   AnchorEnd,
			Baseline: BaselineMiddle,
		})

		for h, count := range sp.Hourly {
			intensity := Intensity(count, m.MaxHourly)
			x := s.Padding.Left + float64(h)*cellW
			s.add(Rect{
				X:      x,
				Y:      y,
				Width:  cellInnerW,
				Height: heatmapCellHeight - heatmapCellGap,
				Fill:   HeatmapColor(intensity).Hex(),
				RX:     2,
				Title:  fmt.Sprintf("%s at %s: %s", sp.Name, aggregate.HourLabel(h), opts.FormatCount(count)),
			})
			if count > 0 {
				s.add(Text{
					X:        x + cellInnerW/2,
					Y:        y + (heatmapCellHeight-heatmapCellGap)/2,
					Content:  opts.FormatCount(count),
					Size:     9,
					Fill:     CellTextColor(intensity),
					Anchor:   AnchorMiddle,
					Baseline: BaselineMiddle,
				})
			}
		}
	}
	return s
}
