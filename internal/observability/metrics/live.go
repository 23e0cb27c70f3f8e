package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LiveMetrics tracks the live detections table: refresh outcomes, buffer size
// and audio playback events.
type LiveMetrics struct {
	refreshTotal     *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	bufferDetections prometheus.Gauge
	audioEvents      *prometheus.CounterVec
}

// NewLiveMetrics creates the live table collectors and registers them.
func NewLiveMetrics(registry *prometheus.Registry) (*LiveMetrics, error) {
	m := &LiveMetrics{
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refresh_total",
			Help:      "Live table refresh attempts by result (success, failure, dropped)",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of admitted live table refreshes",
			Buckets:   durationBuckets,
		}),
		bufferDetections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "buffer_detections",
			Help:      "Detections currently held by the live table",
		}),
		audioEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "audio_events_total",
			Help:      "Audio playback events by type",
		}, []string{"event"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register live metrics: %w", err)
	}
	return m, nil
}

// RecordRefresh counts a refresh. The duration is observed only for admitted
// refreshes.
func (m *LiveMetrics) RecordRefresh(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	if result != ResultDropped {
		m.refreshDuration.Observe(duration.Seconds())
	}
}

// SetBufferDetections records the current buffer length.
func (m *LiveMetrics) SetBufferDetections(n int) {
	if m == nil {
		return
	}
	m.bufferDetections.Set(float64(n))
}

// RecordAudioEvent counts one audio playback event.
func (m *LiveMetrics) RecordAudioEvent(event string) {
	if m == nil {
		return
	}
	m.audioEvents.WithLabelValues(event).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *LiveMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.refreshTotal.Describe(ch)
	m.refreshDuration.Describe(ch)
	m.bufferDetections.Describe(ch)
	m.audioEvents.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *LiveMetrics) Collect(ch chan<- prometheus.Metric) {
	m.refreshTotal.Collect(ch)
	m.refreshDuration.Collect(ch)
	m.bufferDetections.Collect(ch)
	m.audioEvents.Collect(ch)
}
