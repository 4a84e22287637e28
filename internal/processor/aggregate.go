// aggregate.go: turns one scan result into the entity's observable state.
package processor

import (
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/imagesaver"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/plates"
)

// EntityState is the externally observable value and attributes of one camera
// entity after a scan. It is replaced wholesale, never merged.
type EntityState struct {
	Value      int            `json:"value"`
	Attributes map[string]any `json:"attributes"`
}

// Aggregate builds a fresh EntityState from a scan result. Pure: the same
// result and watch list always produce the same state.
//
// The state value is the detection count. Attributes carry the ordered
// per-vehicle maps, the watched-plate map when a watch list is configured
// (one boolean per entry even when nothing was detected), and the scan
// timestamp. A detection timestamp is set only when the scan saw vehicles.
func Aggregate(result *platerec.ScanResult, watch *plates.WatchList) EntityState {
	vehicles := make([]map[string]any, len(result.Detections))
	for i := range result.Detections {
		vehicles[i] = result.Detections[i].Attributes()
	}

	attrs := map[string]any{
		"vehicles":  vehicles,
		"last_scan": result.Timestamp.Format(imagesaver.TimestampFormat),
	}
	if !watch.Empty() {
		attrs["watched_plates"] = watch.MatchMap(result.Plates())
	}
	if len(result.Detections) > 0 {
		attrs["last_detection"] = result.Timestamp.Format(imagesaver.TimestampFormat)
	}

	return EntityState{
		Value:      len(result.Detections),
		Attributes: attrs,
	}
}

// watchedHits counts the watch entries matched in an aggregated state.
func watchedHits(state EntityState) int {
	matches, ok := state.Attributes["watched_plates"].(map[string]bool)
	if !ok {
		return 0
	}
	hits := 0
	for _, matched := range matches {
		if matched {
			hits++
		}
	}
	return hits
}
