package processor

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/imagesaver"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/plates"
)

type fakeCamera struct {
	name  string
	image []byte
	err   error
}

func (f *fakeCamera) Capture(ctx context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func (f *fakeCamera) Name() string { return f.name }

type fakeRecognizer struct {
	mu         sync.Mutex
	detections []platerec.Detection
	err        error
	stats      *platerec.Statistics
	delay      time.Duration
	calls      int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (*platerec.ScanResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &platerec.ScanResult{
		Detections: f.detections,
		Image:      image,
		Timestamp:  time.Now(),
	}, nil
}

func (f *fakeRecognizer) Statistics(ctx context.Context) (*platerec.Statistics, error) {
	if f.stats == nil {
		return nil, errors.Newf("statistics endpoint not configured").
			Category(errors.CategoryConfiguration).Build()
	}
	return f.stats, nil
}

func (f *fakeRecognizer) Close() {}

type recordedEvent struct {
	name    string
	payload map[string]any
}

type captureSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *captureSink) Publish(ctx context.Context, eventName string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{name: eventName, payload: payload})
	return nil
}

func (s *captureSink) recorded() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedEvent, len(s.events))
	copy(out, s.events)
	return out
}

func noSaver() *imagesaver.Saver {
	return imagesaver.New(&conf.SaveSettings{})
}

func newTestEntity(rec *fakeRecognizer, sink EventSink, saver *imagesaver.Saver, watch *plates.WatchList, dedup time.Duration) *Entity {
	cam := &fakeCamera{name: "driveway", image: []byte("jpegdata")}
	return NewEntity(cam, rec, watch, saver, sink, nil, dedup)
}

func TestScanEmitsOneEventPerDetection(t *testing.T) {
	sink := &captureSink{}
	rec := &fakeRecognizer{detections: []platerec.Detection{
		{Plate: "aa11aa", Confidence: floatPtr(0.9)},
		{Plate: "bb22bb", Confidence: floatPtr(0.8)},
		{Plate: "cc33cc"},
	}}
	entity := newTestEntity(rec, sink, noSaver(), nil, 0)

	require.NoError(t, entity.Scan(context.Background()))

	events := sink.recorded()
	require.Len(t, events, 3, "exactly one event per detection")
	// Emission order matches detection order.
	assert.Equal(t, "aa11aa", events[0].payload["plate"])
	assert.Equal(t, "bb22bb", events[1].payload["plate"])
	assert.Equal(t, "cc33cc", events[2].payload["plate"])
	for _, ev := range events {
		assert.Equal(t, EventVehicleDetected, ev.name)
		assert.Equal(t, "driveway", ev.payload["entity_id"])
	}

	phase, state := entity.Status()
	assert.Equal(t, PhaseIdle, phase)
	assert.Equal(t, 3, state.Value)
}

func TestScanZeroDetectionsEmitsNothing(t *testing.T) {
	sink := &captureSink{}
	watch := plates.NewWatchList([]string{"kbw46ba"}, 2)
	entity := newTestEntity(&fakeRecognizer{}, sink, noSaver(), watch, 0)

	require.NoError(t, entity.Scan(context.Background()))

	assert.Empty(t, sink.recorded())
	_, state := entity.Status()
	assert.Equal(t, 0, state.Value)
	assert.Equal(t, map[string]bool{"kbw46ba": false}, state.Attributes["watched_plates"])
}

func TestScanTransportErrorPreservesState(t *testing.T) {
	sink := &captureSink{}
	dir := t.TempDir()
	saver := imagesaver.New(&conf.SaveSettings{FileFolder: dir, AlwaysLatest: true})
	rec := &fakeRecognizer{detections: []platerec.Detection{{Plate: "kbw46ba"}}}
	entity := newTestEntity(rec, sink, saver, nil, 0)

	// First scan succeeds and commits state.
	require.NoError(t, entity.Scan(context.Background()))
	_, before := entity.Status()
	require.Equal(t, 1, before.Value)
	eventsBefore := len(sink.recorded())
	filesBefore, err := os.ReadDir(dir)
	require.NoError(t, err)

	// Server becomes unreachable.
	rec.err = errors.Newf("network error: connection refused").
		Category(errors.CategoryNetwork).Build()

	err = entity.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, platerec.IsTransportError(err))

	phase, after := entity.Status()
	assert.Equal(t, PhaseError, phase)
	assert.Equal(t, before.Value, after.Value, "state unchanged after failed scan")
	assert.Len(t, sink.recorded(), eventsBefore, "no events fired for failed scan")
	filesAfter, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, filesAfter, len(filesBefore), "no files written for failed scan")
}

func TestScanZeroDetectionsStillWritesLatest(t *testing.T) {
	sink := &captureSink{}
	dir := t.TempDir()
	saver := imagesaver.New(&conf.SaveSettings{FileFolder: dir, AlwaysLatest: true})
	entity := newTestEntity(&fakeRecognizer{}, sink, saver, nil, 0)

	require.NoError(t, entity.Scan(context.Background()))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "driveway_latest.jpg", files[0].Name())
	assert.Empty(t, sink.recorded())
	_, state := entity.Status()
	assert.Equal(t, 0, state.Value)
}

func TestScanRejectsOverlappingTrigger(t *testing.T) {
	rec := &fakeRecognizer{delay: 300 * time.Millisecond}
	entity := newTestEntity(rec, &captureSink{}, noSaver(), nil, 0)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- entity.Scan(context.Background())
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	err := entity.Scan(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)

	require.NoError(t, <-done)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.calls, "rejected trigger must not reach the recognizer")
}

func TestScanDedupSuppressesRepeatEvents(t *testing.T) {
	sink := &captureSink{}
	rec := &fakeRecognizer{detections: []platerec.Detection{{Plate: "kbw46ba"}}}
	entity := newTestEntity(rec, sink, noSaver(), nil, time.Minute)

	require.NoError(t, entity.Scan(context.Background()))
	require.NoError(t, entity.Scan(context.Background()))

	assert.Len(t, sink.recorded(), 1, "parked car announced once within the window")
	_, state := entity.Status()
	assert.Equal(t, 1, state.Value, "state still reflects every scan")
}

func TestScanCaptureErrorAbortsBeforeRecognition(t *testing.T) {
	rec := &fakeRecognizer{}
	entity := NewEntity(
		&fakeCamera{name: "driveway", err: errors.Newf("snapshot fetch failed").
			Category(errors.CategoryImageFetch).Build()},
		rec, nil, noSaver(), &captureSink{}, nil, 0)

	err := entity.Scan(context.Background())
	require.Error(t, err)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 0, rec.calls)
}

func TestStatusMergesStatisticsAndLastDetection(t *testing.T) {
	rec := &fakeRecognizer{
		detections: []platerec.Detection{{Plate: "kbw46ba"}},
		stats: &platerec.Statistics{
			TotalCalls:     2500,
			UsageCalls:     100,
			CallsRemaining: 2400,
			Raw:            map[string]any{"total_calls": float64(2500)},
		},
	}
	entity := newTestEntity(rec, &captureSink{}, noSaver(), nil, 0)

	require.NoError(t, entity.Scan(context.Background()))
	_, state := entity.Status()
	assert.Equal(t, int64(2400), state.Attributes["calls_remaining"])
	lastDetection := state.Attributes["last_detection"]
	require.NotNil(t, lastDetection)

	// A later empty scan keeps the last detection stamp.
	rec.detections = nil
	require.NoError(t, entity.Scan(context.Background()))
	_, state = entity.Status()
	assert.Equal(t, 0, state.Value)
	assert.Equal(t, lastDetection, state.Attributes["last_detection"])
}
