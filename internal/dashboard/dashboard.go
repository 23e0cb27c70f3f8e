// Package dashboard decides which charts a snapshot yields and builds their
// scenes. Charts whose aggregate is empty are left out rather than drawn
// with zero data.
package dashboard

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wasatchbitworks/birdworks-live/internal/aggregate"
	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/chart"
	"github.com/wasatchbitworks/birdworks-live/internal/conf"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
	"github.com/wasatchbitworks/birdworks-live/internal/suncalc"
	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

const componentName = "dashboard"

// Sun computes the daylight span of a day as fractional local hours.
type Sun interface {
	DaylightHours(date time.Time) (sunrise, sunset float64, err error)
}

// Options configure a Builder. Only Zone is required.
type Options struct {
	Zone       timebucket.Zone
	Width      float64
	LabelEvery int
	TopSpecies int
	Printer    *message.Printer
	// Sun enables the daylight band on the hourly chart.
	Sun     Sun
	Now     func() time.Time
	Metrics *metrics.ChartMetrics
	Logger  logger.Logger
}

// OptionsFromSettings derives builder options from the chart, location and
// site settings. The daylight band is enabled when a location is set.
func OptionsFromSettings(s *conf.Settings, loc *time.Location) Options {
	opts := Options{
		Zone:       timebucket.FromLocation(loc),
		Width:      float64(s.Charts.Width),
		LabelEvery: s.Charts.LabelEvery,
		TopSpecies: s.Charts.TopSpecies,
		Printer:    message.NewPrinter(language.English),
	}
	if s.Location.Enabled() {
		opts.Sun = suncalc.NewSunCalc(s.Location.Latitude, s.Location.Longitude, loc)
	}
	return opts
}

// Builder turns snapshots into chart scenes.
type Builder struct {
	opts Options
	log  logger.Logger
}

// New creates a Builder.
func New(opts Options) *Builder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TopSpecies <= 0 {
		opts.TopSpecies = aggregate.DefaultTopN
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Builder{opts: opts, log: log.Module(componentName)}
}

// Charts holds the rendered scenes by name. Skipped charts are absent.
type Charts map[string]*chart.Scene

// Ordered returns the scenes present in page order.
func (c Charts) Ordered() []*chart.Scene {
	out := make([]*chart.Scene, 0, len(c))
	for _, name := range chart.Names {
		if s, ok := c[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Build renders every chart the snapshot has data for.
func (b *Builder) Build(snap *birdsapi.Snapshot) Charts {
	out := make(Charts, len(chart.Names))
	for _, name := range chart.Names {
		s, ok := b.build(snap, name)
		if ok {
			out[name] = s
		}
	}
	return out
}

// Chart renders a single chart. ok is false when its aggregate is empty.
// Unknown names return a not-found error.
func (b *Builder) Chart(snap *birdsapi.Snapshot, name string) (scene *chart.Scene, ok bool, err error) {
	if !Known(name) {
		return nil, false, errors.Newf("unknown chart %q", name).
			Component(componentName).
			Category(errors.CategoryNotFound).
			Context("chart", name).
			Build()
	}
	scene, ok = b.build(snap, name)
	return scene, ok, nil
}

// Known reports whether name is a chart this package draws.
func Known(name string) bool {
	for _, n := range chart.Names {
		if n == name {
			return true
		}
	}
	return false
}

func (b *Builder) build(snap *birdsapi.Snapshot, name string) (*chart.Scene, bool) {
	if snap == nil {
		snap = &birdsapi.Snapshot{}
	}
	opts := b.chartOptions()

	var s chart.Scene
	empty := false
	switch name {
	case chart.NameDaily:
		series := aggregate.DailySeries(snap.Daily)
		empty = len(series) == 0
		s = chart.Daily(series, opts)
	case chart.NameSpecies:
		series := aggregate.SpeciesSeries(snap.Species, b.opts.TopSpecies)
		empty = len(series) == 0
		s = chart.Species(series, opts)
	case chart.NameHourly:
		h := aggregate.ByHour(snap.Today, b.opts.Zone)
		b.logSkipped(name, h.Skipped)
		empty = h.Empty()
		if !empty {
			opts.Daylight = b.daylight()
		}
		s = chart.Hourly(h, opts)
	case chart.NameHeatmap:
		m := aggregate.BySpeciesAndHour(snap.Today, b.opts.Zone, b.opts.TopSpecies)
		b.logSkipped(name, m.Skipped)
		empty = m.Empty()
		s = chart.Heatmap(m, opts)
	case chart.NameWeekday:
		w := aggregate.ByDayOfWeek(snap.Daily, b.opts.Zone)
		b.logSkipped(name, w.Skipped)
		empty = w.Empty()
		s = chart.Weekday(w, opts)
	default:
		return nil, false
	}

	if empty {
		b.opts.Metrics.RecordRender(name, metrics.ResultSkipped)
		return nil, false
	}
	b.opts.Metrics.RecordRender(name, metrics.ResultRendered)
	return &s, true
}

func (b *Builder) chartOptions() chart.Options {
	return chart.Options{
		Width:      b.opts.Width,
		LabelEvery: b.opts.LabelEvery,
		Printer:    b.opts.Printer,
	}
}

func (b *Builder) daylight() *chart.DaylightBand {
	if b.opts.Sun == nil {
		return nil
	}
	today := b.opts.Now().In(b.opts.Zone.Location())
	sunrise, sunset, err := b.opts.Sun.DaylightHours(today)
	if err != nil {
		b.log.Debug("no daylight band", logger.Error(err))
		return nil
	}
	return &chart.DaylightBand{Sunrise: sunrise, Sunset: sunset}
}

func (b *Builder) logSkipped(name string, n int) {
	if n > 0 {
		b.log.Debug("skipped malformed records", logger.String("chart", name), logger.Int("count", n))
	}
}
