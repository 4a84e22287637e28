package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/processor"
)

type stubRecognizer struct {
	mu         sync.Mutex
	detections []platerec.Detection
	err        error
	delay      time.Duration
}

func (s *stubRecognizer) Recognize(ctx context.Context, image []byte) (*platerec.ScanResult, error) {
	s.mu.Lock()
	err, detections, delay := s.err, s.detections, s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &platerec.ScanResult{
		Detections: detections,
		Image:      image,
		Timestamp:  time.Now(),
	}, nil
}

func (s *stubRecognizer) Statistics(ctx context.Context) (*platerec.Statistics, error) {
	return nil, errors.Newf("statistics endpoint not configured").
		Category(errors.CategoryConfiguration).Build()
}

func (s *stubRecognizer) Close() {}

func (s *stubRecognizer) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// newTestController serves a fake camera over httptest and wires the stub
// recognizer through a real processor.
func newTestController(t *testing.T, rec *stubRecognizer) *Controller {
	t.Helper()

	cameraSrv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpegdata"))
		}))
	t.Cleanup(cameraSrv.Close)

	settings := &conf.Settings{}
	settings.Recognizer = conf.RecognizerSettings{URL: "http://unused.local/", Timeout: 10}
	settings.Cameras = []conf.CameraSettings{
		{Name: "driveway", SnapshotURL: cameraSrv.URL},
	}
	settings.WebServer = conf.WebServerSettings{Enabled: true, Port: "8090"}

	proc := processor.New(settings, rec, &processor.NoopSink{}, nil)
	return New(settings, proc, nil)
}

func doRequest(c *Controller, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func TestListCameras(t *testing.T) {
	c := newTestController(t, &stubRecognizer{})

	resp := doRequest(c, http.MethodGet, "/api/v1/cameras")
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"driveway"}, body["cameras"])
}

func TestGetCameraNotFound(t *testing.T) {
	c := newTestController(t, &stubRecognizer{})

	resp := doRequest(c, http.MethodGet, "/api/v1/cameras/garage")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetCameraInitialState(t *testing.T) {
	c := newTestController(t, &stubRecognizer{})

	resp := doRequest(c, http.MethodGet, "/api/v1/cameras/driveway")
	require.Equal(t, http.StatusOK, resp.Code)

	var body entityResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "driveway", body.Entity)
	assert.Equal(t, "idle", body.Phase)
	assert.Equal(t, 0, body.State)
}

func TestTriggerScanSuccess(t *testing.T) {
	rec := &stubRecognizer{detections: []platerec.Detection{
		{Plate: "kbw46ba"},
		{Plate: "xx00xx"},
	}}
	c := newTestController(t, rec)

	resp := doRequest(c, http.MethodPost, "/api/v1/cameras/driveway/scan")
	require.Equal(t, http.StatusOK, resp.Code)

	var body entityResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.State)
	assert.Equal(t, "idle", body.Phase)
}

func TestTriggerScanUnknownCamera(t *testing.T) {
	c := newTestController(t, &stubRecognizer{})

	resp := doRequest(c, http.MethodPost, "/api/v1/cameras/garage/scan")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTriggerScanConflict(t *testing.T) {
	rec := &stubRecognizer{delay: 300 * time.Millisecond}
	c := newTestController(t, rec)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- doRequest(c, http.MethodPost, "/api/v1/cameras/driveway/scan")
	}()
	time.Sleep(50 * time.Millisecond)

	resp := doRequest(c, http.MethodPost, "/api/v1/cameras/driveway/scan")
	assert.Equal(t, http.StatusConflict, resp.Code)

	assert.Equal(t, http.StatusOK, (<-first).Code)
}

func TestTriggerScanServerError(t *testing.T) {
	rec := &stubRecognizer{}
	rec.fail(errors.Newf("recognition server returned status 403").
		Category(errors.CategoryHTTP).Build())
	c := newTestController(t, rec)

	resp := doRequest(c, http.MethodPost, "/api/v1/cameras/driveway/scan")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestTriggerScanTransportError(t *testing.T) {
	rec := &stubRecognizer{}
	rec.fail(errors.Newf("network error: connection refused").
		Category(errors.CategoryNetwork).Build())
	c := newTestController(t, rec)

	resp := doRequest(c, http.MethodPost, "/api/v1/cameras/driveway/scan")
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)
}

func TestHealth(t *testing.T) {
	c := newTestController(t, &stubRecognizer{})

	resp := doRequest(c, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
}
