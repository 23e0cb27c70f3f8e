package livetable

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

// EmptyMessage is shown in place of rows when the buffer is empty.
const EmptyMessage = "No detections found"

// DetectionTimeLayout formats detection times in the operator zone.
const DetectionTimeLayout = "Jan 2, 2006, 3:04 PM"

// Tier is the confidence badge shown next to the percentage.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// ConfidenceTier maps a confidence in [0,1] onto a badge tier.
func ConfidenceTier(confidence float64) Tier {
	switch {
	case confidence >= 0.9:
		return TierHigh
	case confidence >= 0.7:
		return TierMedium
	default:
		return TierLow
	}
}

// ConfidencePercent rounds confidence to a whole percentage.
func ConfidencePercent(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	return int(math.Round(confidence * 100))
}

// Row is the presentation of one detection in the table.
type Row struct {
	ID             detection.ID `json:"id"`
	CommonName     string       `json:"common_name"`
	ScientificName string       `json:"scientific_name"`
	ConfidencePct  int          `json:"confidence_pct"`
	Tier           Tier         `json:"tier"`
	DetectedAt     string       `json:"detected_at"`
	HasAudio       bool         `json:"has_audio"`
	Audio          AudioStatus  `json:"audio"`

	// Record is the detection as JSON, carried on the row's data-record attribute.
	Record string `json:"-"`
}

// HighConfidence reports whether the row shows the check mark.
func (r *Row) HighConfidence() bool {
	return r.Tier == TierHigh
}

// NewRow builds the row for d. Times are shown in loc.
func NewRow(d *detection.Detection, loc *time.Location) Row {
	record, err := json.Marshal(d)
	if err != nil {
		record = []byte("{}")
	}
	return Row{
		ID:             d.ID,
		CommonName:     d.DisplayName(),
		ScientificName: strings.TrimSpace(d.ScientificName),
		ConfidencePct:  ConfidencePercent(d.Confidence),
		Tier:           ConfidenceTier(d.Confidence),
		DetectedAt:     FormatDetectionTime(d.DetectedAt, loc),
		HasAudio:       d.HasAudio(),
		Record:         string(record),
	}
}

// FormatDetectionTime renders a timestamp in loc. Unparseable input is
// returned unchanged.
func FormatDetectionTime(raw string, loc *time.Location) string {
	if raw == "" {
		return ""
	}
	t, err := timebucket.ParseInstant(raw)
	if err != nil {
		return raw
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DetectionTimeLayout)
}

// FormatLastUpdated renders t like FormatDetectionTime followed by a short
// zone name such as "MT".
func FormatLastUpdated(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	abbr, _ := local.Zone()
	return local.Format(DetectionTimeLayout) + " " + shortZone(abbr)
}

// shortZone drops the standard/daylight letter from US style abbreviations:
// MST and MDT both become MT.
func shortZone(abbr string) string {
	if len(abbr) == 3 && (abbr[1] == 'S' || abbr[1] == 'D') && abbr[2] == 'T' {
		return abbr[:1] + "T"
	}
	return abbr
}
