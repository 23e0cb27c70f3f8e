package livetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
)

func denver(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	return loc
}

func TestConfidenceTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		confidence float64
		tier       Tier
		pct        int
	}{
		{0.95, TierHigh, 95},
		{0.9, TierHigh, 90},
		{0.89, TierMedium, 89},
		{0.7, TierMedium, 70},
		{0.69, TierLow, 69},
		{0.5, TierLow, 50},
		{0, TierLow, 0},
		{1, TierHigh, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, ConfidenceTier(tt.confidence), "tier for %v", tt.confidence)
		assert.Equal(t, tt.pct, ConfidencePercent(tt.confidence), "percent for %v", tt.confidence)
	}
}

func TestFormatDetectionTime(t *testing.T) {
	t.Parallel()
	loc := denver(t)

	assert.Equal(t, "May 1, 2024, 8:03 AM", FormatDetectionTime("2024-05-01T14:03:00Z", loc))
	assert.Equal(t, "Jan 15, 2024, 11:30 PM", FormatDetectionTime("2024-01-16T06:30:00Z", loc))
	assert.Equal(t, "yesterday", FormatDetectionTime("yesterday", loc))
	assert.Empty(t, FormatDetectionTime("", loc))
}

func TestFormatLastUpdated(t *testing.T) {
	t.Parallel()
	loc := denver(t)

	winter := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "Jan 15, 2024, 1:00 PM MT", FormatLastUpdated(winter, loc))

	summer := time.Date(2024, 7, 4, 18, 45, 0, 0, time.UTC)
	assert.Equal(t, "Jul 4, 2024, 12:45 PM MT", FormatLastUpdated(summer, loc))

	assert.Empty(t, FormatLastUpdated(time.Time{}, loc))
	assert.Equal(t, "UTC", shortZone("UTC"))
}

func TestNewRow(t *testing.T) {
	t.Parallel()

	d := detection.Detection{
		ID:             "7",
		ScientificName: " Turdus migratorius ",
		DetectedAt:     "2024-05-01T14:03:00Z",
		Confidence:     0.934,
		AudioURL:       "clips/7.wav",
	}
	row := NewRow(&d, denver(t))

	assert.Equal(t, detection.UnknownSpecies, row.CommonName)
	assert.Equal(t, "Turdus migratorius", row.ScientificName)
	assert.Equal(t, 93, row.ConfidencePct)
	assert.Equal(t, TierHigh, row.Tier)
	assert.True(t, row.HighConfidence())
	assert.True(t, row.HasAudio)
	assert.Equal(t, "May 1, 2024, 8:03 AM", row.DetectedAt)
	assert.JSONEq(t, `{"id":7,"common_name":"","scientific_name":" Turdus migratorius ","detected_at":"2024-05-01T14:03:00Z","confidence":0.934,"audio_url":"clips/7.wav"}`, row.Record)
}
