package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Main.Name = "alprd"
	s.Recognizer = RecognizerSettings{
		URL:     "http://recognizer.local:8080/v1/plate-reader/",
		Timeout: 10,
	}
	s.Cameras = []CameraSettings{
		{Name: "driveway", SnapshotURL: "http://camera.local/snapshot.jpg"},
	}
	s.Watch = WatchSettings{Plates: []string{"kbw46ba"}, Tolerance: 2}
	return s
}

func TestValidateSettingsOK(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"missing recognizer url", func(s *Settings) { s.Recognizer.URL = "" }},
		{"bad recognizer url scheme", func(s *Settings) { s.Recognizer.URL = "ftp://host/path" }},
		{"unparseable recognizer url", func(s *Settings) { s.Recognizer.URL = "://" }},
		{"zero timeout", func(s *Settings) { s.Recognizer.Timeout = 0 }},
		{"no cameras", func(s *Settings) { s.Cameras = nil }},
		{"camera without name", func(s *Settings) { s.Cameras[0].Name = "" }},
		{"camera without snapshot url", func(s *Settings) { s.Cameras[0].SnapshotURL = "" }},
		{"duplicate camera names", func(s *Settings) {
			s.Cameras = append(s.Cameras, s.Cameras[0])
		}},
		{"negative tolerance", func(s *Settings) { s.Watch.Tolerance = -1 }},
		{"mqtt enabled without broker", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.Broker = ""
		}},
		{"bad statistics url", func(s *Settings) { s.Recognizer.StatisticsURL = "not-a-url" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			assert.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration),
				"validation failures carry the configuration category")
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	s := validSettings()
	assert.Equal(t, 10*time.Second, s.RecognizerTimeout())

	s.EventDedupSeconds = 90
	assert.Equal(t, 90*time.Second, s.EventDedupWindow())
	s.EventDedupSeconds = 0
	assert.Equal(t, time.Duration(0), s.EventDedupWindow())
}
