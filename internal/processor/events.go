// events.go: the event sink abstraction and its MQTT implementation.
package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/mqtt"
)

// EventVehicleDetected is the event name fired once per detected vehicle.
const EventVehicleDetected = "vehicle_detected"

// EventSink receives fire-and-forget events. The processor never blocks on
// or inspects delivery beyond logging the error.
type EventSink interface {
	Publish(ctx context.Context, eventName string, payload map[string]any) error
}

// MQTTSink publishes events as JSON messages under a base topic, the shape
// home-automation platforms consume directly.
type MQTTSink struct {
	client    mqtt.Client
	topicBase string
}

// NewMQTTSink creates an event sink backed by the given MQTT client.
func NewMQTTSink(client mqtt.Client, topicBase string) *MQTTSink {
	if topicBase == "" {
		topicBase = "alpr"
	}
	return &MQTTSink{client: client, topicBase: topicBase}
}

// Publish marshals the payload and publishes it to "<base>/<eventName>".
func (s *MQTTSink) Publish(ctx context.Context, eventName string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	topic := fmt.Sprintf("%s/%s", s.topicBase, eventName)
	return s.client.Publish(ctx, topic, string(data))
}

var _ EventSink = (*MQTTSink)(nil)

// NoopSink drops all events. Used when MQTT is disabled.
type NoopSink struct{}

// Publish discards the event.
func (NoopSink) Publish(ctx context.Context, eventName string, payload map[string]any) error {
	return nil
}

var _ EventSink = NoopSink{}
