// Package detection holds the records served by the birds CMS.
package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

// UnknownSpecies is shown when a record carries no common name.
const UnknownSpecies = "Unknown"

// ID identifies a detection. The CMS sends numbers; strings are accepted too.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("detection id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integral ids as numbers, everything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Detection is one recognized-species event. Records are immutable once fetched.
type Detection struct {
	ID             ID      `json:"id"`
	CommonName     string  `json:"common_name"`
	ScientificName string  `json:"scientific_name"`
	DetectedAt     string  `json:"detected_at"`
	Confidence     float64 `json:"confidence"`
	AudioURL       string  `json:"audio_url,omitempty"`
	Preserved      bool    `json:"preserved,omitempty"`
}

// Instant parses DetectedAt.
func (d *Detection) Instant() (time.Time, error) {
	return timebucket.ParseInstant(d.DetectedAt)
}

// DisplayName is the common name, or UnknownSpecies.
func (d *Detection) DisplayName() string {
	if name := strings.TrimSpace(d.CommonName); name != "" {
		return name
	}
	return UnknownSpecies
}

// HasAudio reports whether the record links a recording.
func (d *Detection) HasAudio() bool {
	return d.AudioURL != ""
}

// DailyCount is the number of detections on one calendar day (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SpeciesCount is a per-species total from the species endpoint.
type SpeciesCount struct {
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name,omitempty"`
	Count          int    `json:"count"`
}

// DisplayName is the common name, or UnknownSpecies.
func (s *SpeciesCount) DisplayName() string {
	if name := strings.TrimSpace(s.CommonName); name != "" {
		return name
	}
	return UnknownSpecies
}
