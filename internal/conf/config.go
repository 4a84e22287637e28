// config.go: settings struct and loading for the ALPR home-assist daemon.
package conf

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
)

// CameraSettings describes one camera entity served by the daemon.
type CameraSettings struct {
	Name        string // entity name, also used in filenames and topics
	SnapshotURL string // HTTP endpoint returning the current camera frame
}

// RecognizerSettings contains the connection settings for the plate
// recognition server.
type RecognizerSettings struct {
	URL           string // plate reader endpoint, e.g. http://host:32168/v1/vision/alpr
	StatisticsURL string // optional usage statistics endpoint
	APIToken      string // optional token, sent as "Authorization: Token <value>"
	Timeout       int    // request timeout in seconds
}

// WatchSettings contains the watched plates configuration.
type WatchSettings struct {
	Plates    []string // plates of interest, normalized on load
	Tolerance int      // maximum character substitutions for a fuzzy match
}

// SaveSettings controls image persistence after each scan.
type SaveSettings struct {
	FileFolder      string // folder for saved images, empty disables saving
	TimestampedFile bool   // write a uniquely named copy when plates were detected
	AlwaysLatest    bool   // overwrite the "<entity>_latest.jpg" file on every scan
}

// MQTTSettings contains the event bus connection settings.
type MQTTSettings struct {
	Enabled   bool
	Broker    string // e.g. tcp://localhost:1883
	TopicBase string // base topic for emitted events
	Username  string
	Password  string
	Retain    bool
}

// WebServerSettings contains the inbound HTTP API settings.
type WebServerSettings struct {
	Enabled bool
	Port    string
}

// LogSettings contains file logging settings.
type LogSettings struct {
	Level string // debug, info, warn, error
	Path  string // directory for per-service log files
}

// Settings is the root configuration, loaded once at startup and immutable
// afterwards.
type Settings struct {
	Debug bool

	Main struct {
		Name string      // instance name, used as MQTT client ID
		Log  LogSettings //
	}

	Recognizer RecognizerSettings
	Cameras    []CameraSettings
	Watch      WatchSettings
	Save       SaveSettings
	MQTT       MQTTSettings
	WebServer  WebServerSettings

	// EventDedupSeconds suppresses repeated vehicle_detected events for the
	// same plate within the window. Zero disables deduplication.
	EventDedupSeconds int
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings struct.
// Validation failures are fatal for the daemon.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the loaded settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with defaults and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/alprd")
	viper.AddConfigPath("/etc/alprd")

	viper.SetEnvPrefix("alprd")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults plus environment are enough to run against a local server.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// ValidateSettings checks the loaded configuration for errors that would make
// the daemon misbehave at runtime. Returns a configuration category error.
func ValidateSettings(s *Settings) error {
	if s.Recognizer.URL == "" {
		return errors.Newf("recognizer.url is required").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := validateHTTPURL("recognizer.url", s.Recognizer.URL); err != nil {
		return err
	}
	if s.Recognizer.StatisticsURL != "" {
		if err := validateHTTPURL("recognizer.statisticsurl", s.Recognizer.StatisticsURL); err != nil {
			return err
		}
	}
	if s.Recognizer.Timeout <= 0 {
		return errors.Newf("recognizer.timeout must be positive, got %d", s.Recognizer.Timeout).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(s.Cameras) == 0 {
		return errors.Newf("at least one camera must be configured").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	seen := make(map[string]bool, len(s.Cameras))
	for i := range s.Cameras {
		cam := &s.Cameras[i]
		if cam.Name == "" {
			return errors.Newf("cameras[%d].name is required", i).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
		if seen[cam.Name] {
			return errors.Newf("duplicate camera name %q", cam.Name).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
		seen[cam.Name] = true
		if cam.SnapshotURL == "" {
			return errors.Newf("cameras[%d].snapshoturl is required", i).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
		if err := validateHTTPURL(fmt.Sprintf("cameras[%d].snapshoturl", i), cam.SnapshotURL); err != nil {
			return err
		}
	}
	if s.Watch.Tolerance < 0 {
		return errors.Newf("watch.tolerance must not be negative, got %d", s.Watch.Tolerance).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return errors.Newf("mqtt.broker is required when mqtt is enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Newf("%s is not a valid http(s) URL: %q", key, raw).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// RecognizerTimeout returns the recognizer timeout as a duration.
func (s *Settings) RecognizerTimeout() time.Duration {
	return time.Duration(s.Recognizer.Timeout) * time.Second
}

// EventDedupWindow returns the event deduplication window as a duration.
func (s *Settings) EventDedupWindow() time.Duration {
	return time.Duration(s.EventDedupSeconds) * time.Second
}
