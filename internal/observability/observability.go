// Package observability provides the Prometheus metrics surface of the daemon.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the daemon.
type Metrics struct {
	registry *prometheus.Registry
	MQTT     *metrics.MQTTMetrics
	Scan     *metrics.ScanMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	scanMetrics, err := metrics.NewScanMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		MQTT:     mqttMetrics,
		Scan:     scanMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
