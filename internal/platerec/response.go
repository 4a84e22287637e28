package platerec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/plates"
)

// parseDetections decodes a recognition server response body into detections.
// Both response dialects seen in the wild are accepted: a bare JSON array of
// detection objects, and an object wrapping the array under "results"
// (Plate Recognizer) or "predictions" (CodeProject.AI).
func parseDetections(body []byte) ([]Detection, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("malformed detection array: %w", err)
		}
	} else {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("malformed response object: %w", err)
		}
		raw, ok := envelope["results"]
		if !ok {
			raw, ok = envelope["predictions"]
		}
		if !ok {
			return nil, fmt.Errorf("response object carries neither results nor predictions")
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("malformed results array: %w", err)
		}
	}

	detections := make([]Detection, 0, len(items))
	for i, item := range items {
		det, err := parseDetection(item)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// parseDetection decodes one detection object. Fields this client models are
// lifted into struct fields, everything else lands in Extra unchanged.
func parseDetection(raw json.RawMessage) (Detection, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Detection{}, fmt.Errorf("malformed detection object: %w", err)
	}

	det := Detection{}

	if plate, ok := fields["plate"].(string); ok {
		det.Plate = plates.Normalize(plate)
	} else if label, ok := fields["label"].(string); ok {
		// CodeProject.AI reports "Plate: ABC123" labels.
		det.Plate = plates.Normalize(strings.TrimPrefix(label, "Plate: "))
	}
	if det.Plate == "" {
		return Detection{}, fmt.Errorf("detection object has no plate")
	}

	if v, ok := numberField(fields, "confidence"); ok {
		det.Confidence = &v
	} else if v, ok := numberField(fields, "score"); ok {
		det.Confidence = &v
	}

	switch region := fields["region"].(type) {
	case string:
		det.RegionCode = region
	case map[string]any:
		if code, ok := region["code"].(string); ok {
			det.RegionCode = code
		}
	}

	switch vehicle := fields["vehicle"].(type) {
	case map[string]any:
		if typ, ok := vehicle["type"].(string); ok {
			det.VehicleType = typ
		}
	}
	if det.VehicleType == "" {
		if typ, ok := fields["vehicle_type"].(string); ok {
			det.VehicleType = typ
		}
	}

	if box, ok := fields["box"].(map[string]any); ok {
		det.Box = parseBox(box)
	}

	for key, value := range fields {
		switch key {
		case "plate", "label", "confidence", "score", "region", "vehicle", "vehicle_type", "box":
			continue
		}
		if det.Extra == nil {
			det.Extra = make(map[string]any)
		}
		det.Extra[key] = value
	}

	return det, nil
}

func parseBox(fields map[string]any) *BoundingBox {
	xmin, ok1 := numberField(fields, "xmin")
	ymin, ok2 := numberField(fields, "ymin")
	xmax, ok3 := numberField(fields, "xmax")
	ymax, ok4 := numberField(fields, "ymax")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &BoundingBox{
		XMin: int(xmin),
		YMin: int(ymin),
		XMax: int(xmax),
		YMax: int(ymax),
	}
}

func numberField(fields map[string]any, key string) (float64, bool) {
	v, ok := fields[key].(float64)
	return v, ok
}

// parseStatistics decodes the usage statistics endpoint response and computes
// the remaining call budget from total_calls and usage.calls.
func parseStatistics(body []byte) (*Statistics, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("malformed statistics response: %w", err)
	}

	stats := &Statistics{Raw: fields}
	if total, ok := numberField(fields, "total_calls"); ok {
		stats.TotalCalls = int64(total)
	}
	if usage, ok := fields["usage"].(map[string]any); ok {
		if calls, ok := numberField(usage, "calls"); ok {
			stats.UsageCalls = int64(calls)
		}
	}
	stats.CallsRemaining = stats.TotalCalls - stats.UsageCalls
	return stats, nil
}
