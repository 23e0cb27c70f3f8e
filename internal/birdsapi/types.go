package birdsapi

import (
	"time"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
)

// Endpoint names used as cache keys and metric labels.
const (
	EndpointLatest    = "latest"
	EndpointToday     = "today"
	EndpointSpecies   = "species"
	EndpointDaily     = "daily"
	EndpointAudioSign = "audio_sign"
)

// Snapshot is the data set the dashboard renders from. A failed fetch yields
// an empty snapshot with Error set so the page can still render.
type Snapshot struct {
	Latest      []detection.Detection    `json:"latest"`
	Today       []detection.Detection    `json:"today"`
	Species     []detection.SpeciesCount `json:"species"`
	Daily       []detection.DailyCount   `json:"daily"`
	GeneratedAt time.Time                `json:"generated_at"`
	APIBase     string                   `json:"api_base"`
	Error       string                   `json:"error,omitempty"`
}

// emptySnapshot has non-nil lists so JSON renders [] rather than null.
func emptySnapshot(apiBase string, now time.Time) *Snapshot {
	return &Snapshot{
		Latest:      []detection.Detection{},
		Today:       []detection.Detection{},
		Species:     []detection.SpeciesCount{},
		Daily:       []detection.DailyCount{},
		GeneratedAt: now,
		APIBase:     apiBase,
	}
}

type detectionsResponse struct {
	Detections []detection.Detection `json:"detections"`
}

type speciesResponse struct {
	Species []detection.SpeciesCount `json:"species"`
}

// dailyResponse accepts both keys the CMS has used for daily counts.
type dailyResponse struct {
	Daily       []detection.DailyCount `json:"daily"`
	DailyCounts []detection.DailyCount `json:"daily_counts"`
}

func (r *dailyResponse) counts() []detection.DailyCount {
	if len(r.Daily) > 0 {
		return r.Daily
	}
	return r.DailyCounts
}

type signedURLResponse struct {
	URL string `json:"url"`
}
