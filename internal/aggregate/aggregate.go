// Package aggregate turns flat detection and daily-count records into
// chart-ready summaries. Every function is pure and total: records that fail
// to parse are counted in Skipped and otherwise ignored.
package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

const (
	// HoursPerDay is the fixed width of every hourly histogram.
	HoursPerDay = 24
	// DefaultTopN caps species lists.
	DefaultTopN = 15
)

// LabeledValue is a single labeled scalar, e.g. one day or one species.
type LabeledValue struct {
	Label string
	Value int
}

// HourBucket is the count for one local hour.
type HourBucket struct {
	Hour  int
	Label string
	Count int
}

// Hourly is the byHour aggregate. Buckets are always ordered 0..23.
type Hourly struct {
	Buckets [HoursPerDay]HourBucket
	Skipped int
}

// Total is the sum of all buckets.
func (h *Hourly) Total() int {
	total := 0
	for i := range h.Buckets {
		total += h.Buckets[i].Count
	}
	return total
}

// Empty reports whether no detection was bucketed.
func (h *Hourly) Empty() bool { return h.Total() == 0 }

// Max is the largest bucket count.
func (h *Hourly) Max() int {
	m := 0
	for i := range h.Buckets {
		m = max(m, h.Buckets[i].Count)
	}
	return m
}

// SpeciesHours is one species' total with its 24-wide histogram.
// sum(Hourly) == Total always holds.
type SpeciesHours struct {
	Name   string
	Total  int
	Hourly [HoursPerDay]int
}

// SpeciesHourMatrix is the bySpeciesAndHour aggregate.
type SpeciesHourMatrix struct {
	Species   []SpeciesHours
	MaxHourly int
	Skipped   int
}

// Empty reports whether the matrix has no species.
func (m *SpeciesHourMatrix) Empty() bool { return len(m.Species) == 0 }

// Weekly is the byDayOfWeek aggregate, ordered Sunday..Saturday.
type Weekly struct {
	Days    [7]LabeledValue
	Skipped int
}

// Empty reports whether every weekday averages to zero.
func (w *Weekly) Empty() bool {
	for i := range w.Days {
		if w.Days[i].Value != 0 {
			return false
		}
	}
	return true
}

// HourLabel renders an hour as a compact 12-hour label: 12a, 1a ... 11p.
func HourLabel(hour int) string {
	suffix := "a"
	if hour >= 12 {
		suffix = "p"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// WeekdayLabel is the three letter English weekday name.
func WeekdayLabel(d time.Weekday) string {
	return d.String()[:3]
}

// ByHour counts detections per local hour.
func ByHour(ds []detection.Detection, zone timebucket.Zone) Hourly {
	var out Hourly
	for h := range HoursPerDay {
		out.Buckets[h] = HourBucket{Hour: h, Label: HourLabel(h)}
	}
	for i := range ds {
		b, err := zone.BucketString(ds[i].DetectedAt)
		if err != nil {
			out.Skipped++
			continue
		}
		out.Buckets[b.Hour].Count++
	}
	return out
}

// BySpeciesAndHour groups detections by species name and keeps the limit
// species with the highest totals. Ties keep encounter order. A limit of 0
// or less means DefaultTopN.
func BySpeciesAndHour(ds []detection.Detection, zone timebucket.Zone, limit int) SpeciesHourMatrix {
	if limit <= 0 {
		limit = DefaultTopN
	}

	var out SpeciesHourMatrix
	index := make(map[string]int)
	var groups []SpeciesHours

	for i := range ds {
		b, err := zone.BucketString(ds[i].DetectedAt)
		if err != nil {
			out.Skipped++
			continue
		}
		name := ds[i].DisplayName()
		idx, ok := index[name]
		if !ok {
			idx = len(groups)
			index[name] = idx
			groups = append(groups, SpeciesHours{Name: name})
		}
		groups[idx].Total++
		groups[idx].Hourly[b.Hour]++
	}

	slices.SortStableFunc(groups, func(a, b SpeciesHours) int {
		return cmp.Compare(b.Total, a.Total)
	})
	if len(groups) > limit {
		groups = groups[:limit]
	}

	for i := range groups {
		for _, c := range groups[i].Hourly {
			out.MaxHourly = max(out.MaxHourly, c)
		}
	}
	out.Species = groups
	return out
}

// ByDayOfWeek averages daily counts per weekday, rounding to the nearest
// integer. Weekdays without any day report 0. Dates are calendar days in
// zone; malformed dates and negative counts are skipped.
func ByDayOfWeek(daily []detection.DailyCount, zone timebucket.Zone) Weekly {
	var out Weekly
	var sums, days [7]int

	for i := range daily {
		wd, err := zone.Weekday(daily[i].Date)
		if err != nil || daily[i].Count < 0 {
			out.Skipped++
			continue
		}
		sums[wd] += daily[i].Count
		days[wd]++
	}

	for d := range 7 {
		avg := 0
		if days[d] > 0 {
			// counts are non-negative, so half-up rounding matches math.Round
			avg = (2*sums[d] + days[d]) / (2 * days[d])
		}
		out.Days[d] = LabeledValue{Label: WeekdayLabel(time.Weekday(d)), Value: avg}
	}
	return out
}

// TopN returns the n records with the highest value, descending, stable on
// ties. The input is not modified. n <= 0 means DefaultTopN.
func TopN[T any](records []T, n int, value func(T) int) []T {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(value(b), value(a))
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// DailySeries keeps the received chronological order and drops records with
// negative counts or an empty date.
func DailySeries(daily []detection.DailyCount) []LabeledValue {
	out := make([]LabeledValue, 0, len(daily))
	for i := range daily {
		if daily[i].Date == "" || daily[i].Count < 0 {
			continue
		}
		out = append(out, LabeledValue{Label: daily[i].Date, Value: daily[i].Count})
	}
	return out
}

// SpeciesSeries returns the top n species by count as labeled values.
func SpeciesSeries(species []detection.SpeciesCount, n int) []LabeledValue {
	top := TopN(species, n, func(s detection.SpeciesCount) int { return s.Count })
	out := make([]LabeledValue, 0, len(top))
	for i := range top {
		if top[i].Count < 0 {
			continue
		}
		out = append(out, LabeledValue{Label: top[i].DisplayName(), Value: top[i].Count})
	}
	return out
}
