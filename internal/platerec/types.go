// Package platerec implements the client for the license plate recognition server.
package platerec

import (
	"time"
)

// BoundingBox is the pixel rectangle of a recognized plate, when the server
// reports one.
type BoundingBox struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

// Detection is one recognized vehicle/plate instance from a single scan.
// Immutable once built. Confidence is nil when the server did not report one,
// it is never coerced to zero.
type Detection struct {
	Plate       string
	Confidence  *float64
	RegionCode  string
	VehicleType string
	Box         *BoundingBox

	// Extra carries vehicle metadata fields this client does not model,
	// passed through opaquely so server-side additions surface in entity
	// attributes without a client update.
	Extra map[string]any
}

// Attributes renders the detection as an open attribute map, the shape used
// for both entity attributes and emitted events.
func (d *Detection) Attributes() map[string]any {
	attrs := make(map[string]any, len(d.Extra)+5)
	for k, v := range d.Extra {
		attrs[k] = v
	}
	attrs["plate"] = d.Plate
	if d.Confidence != nil {
		attrs["confidence"] = *d.Confidence
	}
	if d.RegionCode != "" {
		attrs["region_code"] = d.RegionCode
	}
	if d.VehicleType != "" {
		attrs["vehicle_type"] = d.VehicleType
	}
	if d.Box != nil {
		attrs["box"] = map[string]any{
			"xmin": d.Box.XMin,
			"ymin": d.Box.YMin,
			"xmax": d.Box.XMax,
			"ymax": d.Box.YMax,
		}
	}
	return attrs
}

// ScanResult is the aggregate outcome of one recognition call. It replaces the
// previous result wholesale, results are never merged across scans.
type ScanResult struct {
	Detections []Detection
	Raw        []byte    // raw response body as returned by the server
	Image      []byte    // the image that was scanned
	Timestamp  time.Time // when the response was processed
}

// Plates returns the normalized plate strings in detection order.
func (r *ScanResult) Plates() []string {
	plates := make([]string, len(r.Detections))
	for i := range r.Detections {
		plates[i] = r.Detections[i].Plate
	}
	return plates
}

// Statistics is the recognition server usage report, passed through into
// entity attributes with a precomputed calls_remaining field.
type Statistics struct {
	TotalCalls     int64
	UsageCalls     int64
	CallsRemaining int64
	Raw            map[string]any
}
