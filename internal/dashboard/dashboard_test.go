package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/aggregate"
	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/chart"
	"github.com/wasatchbitworks/birdworks-live/internal/conf"
	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

type fixedSun struct {
	sunrise, sunset float64
	err             error
}

func (s fixedSun) DaylightHours(time.Time) (sunrise, sunset float64, err error) {
	return s.sunrise, s.sunset, s.err
}

func fullSnapshot() *birdsapi.Snapshot {
	return &birdsapi.Snapshot{
		Today: []detection.Detection{
			{ID: "1", CommonName: "American Robin", DetectedAt: "2024-05-01T06:10:00Z", Confidence: 0.95},
			{ID: "2", CommonName: "American Robin", DetectedAt: "2024-05-01T06:40:00Z", Confidence: 0.81},
			{ID: "3", CommonName: "Black-capped Chickadee", DetectedAt: "2024-05-01T14:03:00Z", Confidence: 0.72},
			{ID: "4", CommonName: "Broken", DetectedAt: "not a time"},
		},
		Species: []detection.SpeciesCount{
			{CommonName: "American Robin", Count: 1234},
			{CommonName: "Black-capped Chickadee", Count: 56},
		},
		Daily: []detection.DailyCount{
			{Date: "2024-04-29", Count: 10},
			{Date: "2024-04-30", Count: 20},
			{Date: "2024-05-01", Count: 3},
		},
	}
}

func utcOptions() Options {
	return Options{Zone: timebucket.FromLocation(time.UTC)}
}

func TestBuildRendersEveryChartWithData(t *testing.T) {
	t.Parallel()

	charts := New(utcOptions()).Build(fullSnapshot())

	var names []string
	for _, s := range charts.Ordered() {
		names = append(names, s.Name)
	}
	assert.Equal(t, chart.Names, names)
}

func TestBuildSkipsEmptyAggregates(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewChartMetrics(reg)
	require.NoError(t, err)

	opts := utcOptions()
	opts.Metrics = m
	b := New(opts)

	assert.Empty(t, b.Build(nil))
	assert.Empty(t, b.Build(&birdsapi.Snapshot{
		// unparseable timestamps are skipped, leaving nothing to draw
		Today: []detection.Detection{{ID: "1", CommonName: "Ghost", DetectedAt: "garbage"}},
	}))

	expected := `
# HELP birdworks_chart_renders_total Chart renders by chart name and result (rendered, skipped)
# TYPE birdworks_chart_renders_total counter
birdworks_chart_renders_total{chart="daily",result="skipped"} 2
birdworks_chart_renders_total{chart="heatmap",result="skipped"} 2
birdworks_chart_renders_total{chart="hourly",result="skipped"} 2
birdworks_chart_renders_total{chart="species",result="skipped"} 2
birdworks_chart_renders_total{chart="weekday",result="skipped"} 2
`
	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected)))
}

func TestAllZeroDailyStillDrawsDailyBars(t *testing.T) {
	t.Parallel()

	charts := New(utcOptions()).Build(&birdsapi.Snapshot{
		Daily: []detection.DailyCount{{Date: "2024-05-01", Count: 0}},
	})

	require.Contains(t, charts, chart.NameDaily)
	assert.NotContains(t, charts, chart.NameWeekday, "weekday averages are all zero")
	for _, r := range charts[chart.NameDaily].Rects() {
		assert.Zero(t, r.Height)
	}
}

func TestChartMatchesRenderer(t *testing.T) {
	t.Parallel()

	snap := fullSnapshot()
	scene, ok, err := New(utcOptions()).Chart(snap, chart.NameDaily)
	require.NoError(t, err)
	require.True(t, ok)

	want := chart.Daily(aggregate.DailySeries(snap.Daily), chart.Options{})
	if diff := cmp.Diff(&want, scene); diff != "" {
		t.Errorf("daily scene mismatch (-want +got):\n%s", diff)
	}
}

func TestChartUnknownName(t *testing.T) {
	t.Parallel()

	_, ok, err := New(utcOptions()).Chart(fullSnapshot(), "radar")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, Known("radar"))
	assert.True(t, Known(chart.NameHeatmap))
}

func TestHourlyDaylightBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sun  Sun
		want bool
	}{
		{"no location", nil, false},
		{"band", fixedSun{sunrise: 6, sunset: 20}, true},
		{"sun error", fixedSun{err: errors.NewStd("polar night")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := utcOptions()
			opts.Sun = tt.sun
			scene, ok, err := New(opts).Chart(fullSnapshot(), chart.NameHourly)
			require.NoError(t, err)
			require.True(t, ok)

			found := false
			for _, r := range scene.Rects() {
				if r.Title == "Daylight" {
					found = true
					assert.Equal(t, chart.ColorDaylight, r.Fill)
				}
			}
			assert.Equal(t, tt.want, found)
		})
	}
}

func TestHourlyCountsUseZone(t *testing.T) {
	t.Parallel()

	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	opts := Options{Zone: timebucket.FromLocation(denver)}
	scene, ok, err := New(opts).Chart(fullSnapshot(), chart.NameHourly)
	require.NoError(t, err)
	require.True(t, ok)

	// 06:10Z and 06:40Z are midnight in Denver (MDT, UTC-6)
	var titles []string
	for _, r := range scene.Rects() {
		titles = append(titles, r.Title)
	}
	assert.Contains(t, titles, "12a: 2 detections")
	assert.Contains(t, titles, "8a: 1 detections")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	sum := New(utcOptions()).Summarize(fullSnapshot())
	assert.Equal(t, Summary{
		TodayDetections: "4",
		TodaySpecies:    "3",
		PeriodTotal:     "33",
		PeriodDays:      3,
		TopSpecies:      "American Robin",
	}, sum)

	assert.Equal(t, Summary{TodayDetections: "0", TodaySpecies: "0", PeriodTotal: "0"}, New(utcOptions()).Summarize(nil))
}

func TestOptionsFromSettings(t *testing.T) {
	t.Parallel()

	s := &conf.Settings{
		Charts:   conf.ChartSettings{Width: 800, TopSpecies: 10, LabelEvery: 2},
		Location: conf.LocationSettings{Latitude: 40.76, Longitude: -111.89},
	}
	opts := OptionsFromSettings(s, time.UTC)
	assert.InDelta(t, 800.0, opts.Width, 0)
	assert.Equal(t, 10, opts.TopSpecies)
	assert.Equal(t, 2, opts.LabelEvery)
	assert.NotNil(t, opts.Sun)
	assert.NotNil(t, opts.Printer)

	s.Location = conf.LocationSettings{}
	assert.Nil(t, OptionsFromSettings(s, time.UTC).Sun)
}
