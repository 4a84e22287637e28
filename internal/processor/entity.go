// entity.go: per-camera entity owning the scan pipeline and its state.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/camera"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/imagesaver"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability/metrics"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/plates"
)

// Phase is the entity scan lifecycle state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseScanning Phase = "scanning"
	PhaseError    Phase = "error"
)

// ErrScanInProgress is returned when a trigger arrives while a scan is
// already in flight. Overlapping triggers are rejected, not queued, so two
// in-flight results can never interleave into one entity state.
var ErrScanInProgress = errors.NewStd("scan already in progress")

// Entity is one camera-bound integration instance. Each entity owns its own
// watch list, save policy and state; nothing is shared across entities.
type Entity struct {
	name       string
	camera     camera.Source
	recognizer platerec.Interface
	watch      *plates.WatchList
	saver      *imagesaver.Saver
	sink       EventSink
	metrics    *metrics.ScanMetrics
	dedup      *gocache.Cache // nil when event deduplication is disabled

	scanMu sync.Mutex // serializes the scan pipeline

	stateMu       sync.RWMutex
	phase         Phase
	state         EntityState
	lastDetection string
	statistics    *platerec.Statistics
}

// NewEntity creates an entity for one camera. A zero dedupWindow disables
// event deduplication, every detection fires an event.
func NewEntity(cam camera.Source, recognizer platerec.Interface, watch *plates.WatchList,
	saver *imagesaver.Saver, sink EventSink, scanMetrics *metrics.ScanMetrics,
	dedupWindow time.Duration) *Entity {

	var dedup *gocache.Cache
	if dedupWindow > 0 {
		dedup = gocache.New(dedupWindow, dedupWindow)
	}
	return &Entity{
		name:       cam.Name(),
		camera:     cam,
		recognizer: recognizer,
		watch:      watch,
		saver:      saver,
		sink:       sink,
		metrics:    scanMetrics,
		dedup:      dedup,
		phase:      PhaseIdle,
		state: EntityState{
			Value:      0,
			Attributes: map[string]any{"vehicles": []map[string]any{}},
		},
	}
}

// Name returns the entity name.
func (e *Entity) Name() string {
	return e.name
}

// Scan runs one full scan: capture, recognize, aggregate, persist, emit,
// commit. Strictly sequential; a failure before aggregation leaves the
// previous state untouched and fires no events. Returns ErrScanInProgress
// when a scan is already running.
func (e *Entity) Scan(ctx context.Context) error {
	if !e.scanMu.TryLock() {
		procLogger.Warn("Scan rejected, another scan is in flight", "entity", e.name)
		return ErrScanInProgress
	}
	defer e.scanMu.Unlock()

	scanID := uuid.NewString()
	started := time.Now()
	e.setPhase(PhaseScanning)

	image, err := e.camera.Capture(ctx)
	if err != nil {
		procLogger.Error("Image capture failed", "entity", e.name, "scan_id", scanID, "error", err)
		e.recordScan("capture_error")
		e.setPhase(PhaseError)
		return err
	}

	result, err := e.recognizer.Recognize(ctx, image)
	if err != nil {
		procLogger.Error("Recognition failed", "entity", e.name, "scan_id", scanID,
			"outcome", recognitionOutcome(err), "error", err)
		e.recordScan(recognitionOutcome(err))
		e.setPhase(PhaseError)
		return err
	}

	newState := Aggregate(result, e.watch)
	hits := watchedHits(newState)
	e.recordScan("ok")
	if e.metrics != nil {
		e.metrics.RecordDetections(e.name, newState.Value)
		e.metrics.RecordWatchedHits(e.name, hits)
		e.metrics.ObserveScanDuration(e.name, time.Since(started).Seconds())
	}

	// Best effort: a failed write must not block state or events.
	saved, saveErr := e.saver.Save(e.name, image, newState.Value, result.Timestamp, scanID)
	if saveErr != nil {
		procLogger.Warn("Image persistence failed", "entity", e.name, "scan_id", scanID, "error", saveErr)
	}
	if e.metrics != nil {
		e.metrics.RecordImagesSaved(e.name, len(saved))
	}

	e.commit(newState)

	emitted := e.emitEvents(ctx, result, scanID)
	if e.metrics != nil {
		e.metrics.RecordEventsEmitted(e.name, emitted)
	}

	e.refreshStatistics(ctx)
	e.setPhase(PhaseIdle)

	procLogger.Info("Scan completed", "entity", e.name, "scan_id", scanID,
		"detections", newState.Value, "watched_hits", hits,
		"events_emitted", emitted, "files_written", len(saved),
		"duration_ms", time.Since(started).Milliseconds())
	return nil
}

// emitEvents fires one event per detection in response order. Delivery is
// fire-and-forget; failures are logged and do not abort the scan.
func (e *Entity) emitEvents(ctx context.Context, result *platerec.ScanResult, scanID string) int {
	emitted := 0
	for i := range result.Detections {
		det := &result.Detections[i]
		if e.dedup != nil {
			if _, seen := e.dedup.Get(det.Plate); seen {
				procLogger.Debug("Suppressing duplicate event", "entity", e.name, "plate", det.Plate)
				continue
			}
			e.dedup.SetDefault(det.Plate, true)
		}

		payload := det.Attributes()
		payload["entity_id"] = e.name
		payload["scan_id"] = scanID
		payload["timestamp"] = result.Timestamp.Format(imagesaver.TimestampFormat)

		if err := e.sink.Publish(ctx, EventVehicleDetected, payload); err != nil {
			procLogger.Warn("Event publish failed", "entity", e.name, "plate", det.Plate, "error", err)
			continue
		}
		emitted++
	}
	return emitted
}

// refreshStatistics fetches the recognizer usage report. Failures are logged
// and the previous report is kept.
func (e *Entity) refreshStatistics(ctx context.Context) {
	stats, err := e.recognizer.Statistics(ctx)
	if err != nil {
		if !errors.IsCategory(err, errors.CategoryConfiguration) {
			procLogger.Warn("Failed to fetch recognizer statistics", "entity", e.name, "error", err)
		}
		return
	}
	e.stateMu.Lock()
	e.statistics = stats
	e.stateMu.Unlock()
}

// Status returns the current phase and a copy of the observable state,
// including attributes that outlive a single scan (last detection stamp,
// recognizer statistics).
func (e *Entity) Status() (Phase, EntityState) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	attrs := make(map[string]any, len(e.state.Attributes)+2)
	for k, v := range e.state.Attributes {
		attrs[k] = v
	}
	if _, ok := attrs["last_detection"]; !ok && e.lastDetection != "" {
		attrs["last_detection"] = e.lastDetection
	}
	if e.statistics != nil {
		attrs["statistics"] = e.statistics.Raw
		attrs["calls_remaining"] = e.statistics.CallsRemaining
	}
	return e.phase, EntityState{Value: e.state.Value, Attributes: attrs}
}

func (e *Entity) setPhase(p Phase) {
	e.stateMu.Lock()
	e.phase = p
	e.stateMu.Unlock()
}

// commit replaces the entity state wholesale and carries the last detection
// stamp forward for the zero-detection scans that follow.
func (e *Entity) commit(state EntityState) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.state = state
	if stamp, ok := state.Attributes["last_detection"].(string); ok {
		e.lastDetection = stamp
	}
}

func (e *Entity) recordScan(status string) {
	if e.metrics != nil {
		e.metrics.RecordScan(e.name, status)
	}
}

// recognitionOutcome maps a recognition error to a metrics label.
func recognitionOutcome(err error) string {
	switch {
	case platerec.IsTransportError(err):
		return "transport_error"
	case platerec.IsServerError(err):
		return "server_error"
	case platerec.IsParseError(err):
		return "parse_error"
	default:
		return "error"
	}
}
