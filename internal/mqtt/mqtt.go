// mqtt.go: Package mqtt provides an abstraction for MQTT client functionality.
package mqtt

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected returns true if the client is currently connected.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Retain            bool
	ReconnectCooldown time.Duration
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    1 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// Package-level logger for MQTT related events
var mqttLogger *slog.Logger

func init() {
	var err error
	mqttLogger, _, err = logging.NewFileLogger(filepath.Join("logs", "mqtt.log"), "mqtt", slog.LevelInfo)
	if err != nil {
		log.Printf("Failed to initialize MQTT file logger: %v. Falling back to discard.", err)
		mqttLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
}
