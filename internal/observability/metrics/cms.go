package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CMSMetrics tracks requests made to the birds CMS.
type CMSMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
}

// NewCMSMetrics creates the CMS client collectors and registers them.
func NewCMSMetrics(registry *prometheus.Registry) (*CMSMetrics, error) {
	m := &CMSMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cms_requests_total",
			Help:      "Requests sent to the birds CMS by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cms_request_duration_seconds",
			Help:      "Round trip time of birds CMS requests",
			Buckets:   durationBuckets,
		}, []string{"endpoint"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cms_cache_hits_total",
			Help:      "CMS responses served from the local cache",
		}, []string{"endpoint"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register CMS metrics: %w", err)
	}
	return m, nil
}

// RecordRequest counts one request. status is the HTTP status code or
// StatusError when no response arrived.
func (m *CMSMetrics) RecordRequest(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit counts a response served from cache.
func (m *CMSMetrics) RecordCacheHit(endpoint string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(endpoint).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *CMSMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.cacheHits.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CMSMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.cacheHits.Collect(ch)
}
