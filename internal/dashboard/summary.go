package dashboard

import (
	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
)

// Summary is the headline numbers shown above the charts.
type Summary struct {
	TodayDetections string
	TodaySpecies    string
	PeriodTotal     string
	PeriodDays      int
	TopSpecies      string
}

// Summarize computes the headline numbers of a snapshot.
func (b *Builder) Summarize(snap *birdsapi.Snapshot) Summary {
	opts := b.chartOptions()
	if snap == nil {
		snap = &birdsapi.Snapshot{}
	}

	names := make(map[string]struct{}, len(snap.Today))
	for i := range snap.Today {
		names[snap.Today[i].DisplayName()] = struct{}{}
	}

	total, days := 0, 0
	for _, d := range snap.Daily {
		if d.Date == "" || d.Count < 0 {
			continue
		}
		total += d.Count
		days++
	}

	var top string
	best := -1
	for i := range snap.Species {
		if snap.Species[i].Count > best {
			best = snap.Species[i].Count
			top = snap.Species[i].DisplayName()
		}
	}

	return Summary{
		TodayDetections: opts.FormatCount(len(snap.Today)),
		TodaySpecies:    opts.FormatCount(len(names)),
		PeriodTotal:     opts.FormatCount(total),
		PeriodDays:      days,
		TopSpecies:      top,
	}
}
