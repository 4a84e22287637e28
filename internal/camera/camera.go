// Package camera abstracts the source of raw image bytes for a scan.
package camera

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
)

// Source supplies the current frame for one camera entity.
type Source interface {
	// Capture returns the current camera frame as raw image bytes.
	Capture(ctx context.Context) ([]byte, error)

	// Name returns the camera entity name.
	Name() string
}

// snapshotTimeout bounds a single snapshot fetch. Snapshots come from the
// local network, anything slower than this is effectively down.
const snapshotTimeout = 10 * time.Second

// HTTPSource fetches frames from a camera snapshot URL, the usual way a
// home-automation platform exposes camera stills.
type HTTPSource struct {
	name       string
	url        string
	HTTPClient *http.Client
}

// NewHTTPSource creates a snapshot source for one configured camera.
func NewHTTPSource(settings *conf.CameraSettings) *HTTPSource {
	return &HTTPSource{
		name:       settings.Name,
		url:        settings.SnapshotURL,
		HTTPClient: &http.Client{Timeout: snapshotTimeout},
	}
}

// Name returns the camera entity name.
func (s *HTTPSource) Name() string {
	return s.name
}

// Capture fetches the current frame. An empty body is an error, a scan with
// no image has nothing to recognize.
func (s *HTTPSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, errors.Newf("failed to create snapshot request: %w", err).
			Component("camera").
			Category(errors.CategoryValidation).
			Context("camera", s.name).
			Build()
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Newf("snapshot fetch failed: %w", err).
			Component("camera").
			Category(errors.CategoryImageFetch).
			Context("camera", s.name).
			NetworkContext(s.url, s.HTTPClient.Timeout).
			Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("snapshot endpoint returned status %d", resp.StatusCode).
			Component("camera").
			Category(errors.CategoryImageFetch).
			Context("camera", s.name).
			Context("status_code", resp.StatusCode).
			Build()
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Newf("failed to read snapshot body: %w", err).
			Component("camera").
			Category(errors.CategoryImageFetch).
			Context("camera", s.name).
			Build()
	}
	if len(image) == 0 {
		return nil, errors.Newf("snapshot endpoint returned an empty body").
			Component("camera").
			Category(errors.CategoryImageFetch).
			Context("camera", s.name).
			Build()
	}
	return image, nil
}

var _ Source = (*HTTPSource)(nil)
