package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ChartMetrics counts chart renders.
type ChartMetrics struct {
	renders *prometheus.CounterVec
}

// NewChartMetrics creates the chart collectors and registers them.
func NewChartMetrics(registry *prometheus.Registry) (*ChartMetrics, error) {
	m := &ChartMetrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chart_renders_total",
			Help:      "Chart renders by chart name and result (rendered, skipped)",
		}, []string{"chart", "result"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register chart metrics: %w", err)
	}
	return m, nil
}

// RecordRender counts one chart outcome.
func (m *ChartMetrics) RecordRender(chart, result string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(chart, result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *ChartMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.renders.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ChartMetrics) Collect(ch chan<- prometheus.Metric) {
	m.renders.Collect(ch)
}
