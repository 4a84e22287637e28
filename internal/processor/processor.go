// Package processor wires cameras, the recognition client, the watch list,
// image persistence and event emission into per-camera scan pipelines.
package processor

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/camera"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/imagesaver"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability/metrics"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/plates"
)

var procLogger *slog.Logger

func init() {
	var err error
	procLogger, _, err = logging.NewFileLogger(filepath.Join("logs", "processor.log"), "processor", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize processor file logger: %v. Falling back to discard.", err)
		procLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
}

// Processor owns one Entity per configured camera.
type Processor struct {
	Settings *conf.Settings
	entities map[string]*Entity
	names    []string
}

// New builds the processor from the loaded settings. The recognition client
// and event sink are shared across entities; watch list, save policy and
// state are per entity.
func New(settings *conf.Settings, recognizer platerec.Interface, sink EventSink,
	obs *observability.Metrics) *Processor {

	var scanMetrics *metrics.ScanMetrics
	if obs != nil {
		scanMetrics = obs.Scan
	}

	p := &Processor{
		Settings: settings,
		entities: make(map[string]*Entity, len(settings.Cameras)),
		names:    make([]string, 0, len(settings.Cameras)),
	}
	saver := imagesaver.New(&settings.Save)
	for i := range settings.Cameras {
		cam := camera.NewHTTPSource(&settings.Cameras[i])
		watch := plates.NewWatchList(settings.Watch.Plates, settings.Watch.Tolerance)
		entity := NewEntity(cam, recognizer, watch, saver, sink, scanMetrics, settings.EventDedupWindow())
		p.entities[cam.Name()] = entity
		p.names = append(p.names, cam.Name())
	}
	return p
}

// Entity returns the entity for a camera name.
func (p *Processor) Entity(name string) (*Entity, error) {
	entity, ok := p.entities[name]
	if !ok {
		return nil, errors.Newf("unknown camera %q", name).
			Component("processor").
			Category(errors.CategoryValidation).
			Build()
	}
	return entity, nil
}

// Names returns the configured camera names in configuration order.
func (p *Processor) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}
