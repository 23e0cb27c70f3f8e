// Package observability provides the Prometheus registry and the /metrics
// handler for birdworks.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Live     *metrics.LiveMetrics
	CMS      *metrics.CMSMetrics
	Charts   *metrics.ChartMetrics
	MQTT     *metrics.MQTTMetrics
}

// NewMetrics creates a private registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	liveMetrics, err := metrics.NewLiveMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create live metrics: %w", err)
	}

	cmsMetrics, err := metrics.NewCMSMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create CMS metrics: %w", err)
	}

	chartMetrics, err := metrics.NewChartMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Live:     liveMetrics,
		CMS:      cmsMetrics,
		Charts:   chartMetrics,
		MQTT:     mqttMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
