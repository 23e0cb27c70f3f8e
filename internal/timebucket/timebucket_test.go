package timebucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func denver(t *testing.T) Zone {
	t.Helper()
	z, err := NewZone(DefaultZoneName)
	require.NoError(t, err)
	return z
}

func TestBucketString(t *testing.T) {
	t.Parallel()
	z := denver(t)

	tests := []struct {
		name    string
		in      string
		hour    int
		weekday time.Weekday
	}{
		// 2024-07-15 is a Monday; MDT is UTC-6
		{"utc morning is previous local evening", "2024-07-15T03:30:00Z", 21, time.Sunday},
		{"utc noon", "2024-07-15T12:00:00Z", 6, time.Monday},
		{"explicit offset", "2024-07-15T06:00:00-06:00", 6, time.Monday},
		{"no offset means utc", "2024-07-15T18:45:00", 12, time.Monday},
		{"fractional seconds", "2024-07-15T18:45:00.123456Z", 12, time.Monday},
		// MST is UTC-7
		{"winter offset", "2024-01-10T07:00:00Z", 0, time.Wednesday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := z.BucketString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.hour, b.Hour)
			assert.Equal(t, tt.weekday, b.Weekday)
		})
	}
}

func TestParseInstantRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "yesterday", "2024-13-45T00:00:00Z", "1720000000"} {
		_, err := ParseInstant(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrMalformed)
	}
}

func TestWeekdayOfCalendarDate(t *testing.T) {
	t.Parallel()
	z := denver(t)

	wd, err := z.Weekday("2024-07-14")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, wd)

	// a calendar day keeps its weekday regardless of zone
	utc := FromLocation(nil)
	wd2, err := utc.Weekday("2024-07-14")
	require.NoError(t, err)
	assert.Equal(t, wd, wd2)

	_, err = z.Weekday("07/14/2024")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestToday(t *testing.T) {
	t.Parallel()
	z := denver(t)

	now := time.Date(2024, 7, 15, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-07-14", z.Today(now))
	assert.Equal(t, "America/Denver", z.String())
	assert.Equal(t, "UTC", Zone{}.String())
}

func TestNewZoneUnknown(t *testing.T) {
	t.Parallel()
	_, err := NewZone("Atlantis/Central")
	require.Error(t, err)
}
