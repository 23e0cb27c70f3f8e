// Package metrics provides the Prometheus collectors for each birdworks subsystem.
package metrics

// Namespace prefixes every metric name.
const Namespace = "birdworks"

// Refresh results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDropped = "dropped"
)

// Chart render results.
const (
	ResultRendered = "rendered"
	ResultSkipped  = "skipped"
)

// CMS request statuses that are not HTTP status codes.
const (
	StatusError = "error"
)

// Audio events.
const (
	AudioPlay     = "play"
	AudioPause    = "pause"
	AudioEnded    = "ended"
	AudioError    = "error"
	AudioPreempt  = "preempt"
	AudioResolved = "resolved"
)

// durationBuckets covers CMS round trips from 10ms to ~20s.
var durationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}
