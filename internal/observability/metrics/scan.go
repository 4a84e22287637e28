package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics contains all Prometheus metrics related to scan processing.
type ScanMetrics struct {
	ScansTotal       *prometheus.CounterVec
	DetectionsTotal  *prometheus.CounterVec
	WatchedPlateHits *prometheus.CounterVec
	EventsEmitted    *prometheus.CounterVec
	ImagesSaved      *prometheus.CounterVec
	ScanDuration     *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// NewScanMetrics creates a new instance of ScanMetrics registered on the
// given registry.
func NewScanMetrics(registry *prometheus.Registry) (*ScanMetrics, error) {
	m := &ScanMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize scan metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register scan metrics: %w", err)
	}
	return m, nil
}

func (m *ScanMetrics) initMetrics() error {
	m.ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpr_scans_total",
			Help: "Total number of scans processed, by camera and outcome",
		},
		[]string{"camera", "status"},
	)

	m.DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpr_detections_total",
			Help: "Total number of vehicles detected, by camera",
		},
		[]string{"camera"},
	)

	m.WatchedPlateHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpr_watched_plate_hits_total",
			Help: "Total number of watch-list matches, by camera",
		},
		[]string{"camera"},
	)

	m.EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpr_events_emitted_total",
			Help: "Total number of vehicle_detected events emitted, by camera",
		},
		[]string{"camera"},
	)

	m.ImagesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpr_images_saved_total",
			Help: "Total number of image files written, by camera",
		},
		[]string{"camera"},
	)

	m.ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alpr_scan_duration_seconds",
			Help:    "End to end duration of a scan, by camera",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"camera"},
	)

	return nil
}

// RecordScan increments the scan counter for the given outcome.
func (m *ScanMetrics) RecordScan(camera, status string) {
	m.ScansTotal.WithLabelValues(camera, status).Inc()
}

// RecordDetections adds the number of vehicles detected by one scan.
func (m *ScanMetrics) RecordDetections(camera string, count int) {
	m.DetectionsTotal.WithLabelValues(camera).Add(float64(count))
}

// RecordWatchedHits adds the number of watch entries matched by one scan.
func (m *ScanMetrics) RecordWatchedHits(camera string, count int) {
	m.WatchedPlateHits.WithLabelValues(camera).Add(float64(count))
}

// RecordEventsEmitted adds the number of events emitted by one scan.
func (m *ScanMetrics) RecordEventsEmitted(camera string, count int) {
	m.EventsEmitted.WithLabelValues(camera).Add(float64(count))
}

// RecordImagesSaved adds the number of files written by one scan.
func (m *ScanMetrics) RecordImagesSaved(camera string, count int) {
	m.ImagesSaved.WithLabelValues(camera).Add(float64(count))
}

// ObserveScanDuration records the duration of one scan in seconds.
func (m *ScanMetrics) ObserveScanDuration(camera string, seconds float64) {
	m.ScanDuration.WithLabelValues(camera).Observe(seconds)
}

// Collect implements the prometheus.Collector interface.
func (m *ScanMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ScansTotal.Collect(ch)
	m.DetectionsTotal.Collect(ch)
	m.WatchedPlateHits.Collect(ch)
	m.EventsEmitted.Collect(ch)
	m.ImagesSaved.Collect(ch)
	m.ScanDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ScanMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ScansTotal.Describe(ch)
	m.DetectionsTotal.Describe(ch)
	m.WatchedPlateHits.Describe(ch)
	m.EventsEmitted.Describe(ch)
	m.ImagesSaved.Describe(ch)
	m.ScanDuration.Describe(ch)
}
