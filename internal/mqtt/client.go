// client.go: paho-backed implementation of the Client interface.
package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability/metrics"
)

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	reconnectTimer  *time.Timer
	reconnectStop   chan struct{}
	metrics         *metrics.MQTTMetrics
}

// NewClient creates a new MQTT client from the loaded settings.
func NewClient(settings *conf.Settings, mqttMetrics *metrics.MQTTMetrics) (Client, error) {
	config := DefaultConfig()
	config.Broker = settings.MQTT.Broker
	config.ClientID = settings.Main.Name
	config.Username = settings.MQTT.Username
	config.Password = settings.MQTT.Password
	config.Retain = settings.MQTT.Retain

	return &client{
		config:        config,
		reconnectStop: make(chan struct{}),
		metrics:       mqttMetrics,
	}, nil
}

// Connect attempts to establish a connection to the MQTT broker. The broker
// hostname is resolved first so a misconfigured broker fails fast with a DNS
// error instead of a generic connect timeout.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", time.Since(c.lastConnAttempt)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.Newf("invalid broker URL: %w", err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.Newf("failed to resolve broker hostname %s: %w", host, err).
				Component("mqtt").
				Category(errors.CategoryMQTTConnection).
				Build()
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetConnectRetry(true)

	c.internalClient = pahomqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return errors.Newf("connection timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			NetworkContext(c.config.Broker, c.config.ConnectTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.Newf("connection error: %w", err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			NetworkContext(c.config.Broker, c.config.ConnectTimeout).
			Build()
	}

	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	if c.metrics != nil {
		timer := c.metrics.StartPublishTimer()
		defer timer.ObserveDuration()
	}

	mqttLogger.Debug("Publishing message", "topic", topic, "payload_bytes", len(payload))
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		mqttLogger.Error("Publish timeout", "topic", topic)
		return errors.Newf("publish timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.Newf("publish failed: %w", err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	if c.metrics != nil {
		c.metrics.IncrementMessagesDelivered()
		c.metrics.ObserveMessageSize(float64(len(payload)))
	}
	return nil
}

// IsConnected returns true if the client is currently connected to the broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		if c.metrics != nil {
			c.metrics.UpdateConnectionStatus(false)
		}
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	close(c.reconnectStop)
}

func (c *client) onConnect(client pahomqtt.Client) {
	mqttLogger.Info("Connected to MQTT broker", "broker", c.config.Broker)
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
}

func (c *client) onConnectionLost(client pahomqtt.Client, err error) {
	mqttLogger.Warn("Connection to MQTT broker lost", "broker", c.config.Broker, "error", err)
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
		c.metrics.IncrementErrors()
	}
	c.startReconnectTimer()
}

func (c *client) startReconnectTimer() {
	c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, func() {
		select {
		case <-c.reconnectStop:
			return
		default:
			c.reconnectWithBackoff()
		}
	})
}

func (c *client) reconnectWithBackoff() {
	backoff := time.Second
	maxBackoff := 5 * time.Minute

	for {
		if c.metrics != nil {
			c.metrics.IncrementReconnectAttempts()
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		err := c.Connect(ctx)
		cancel()

		if err == nil {
			mqttLogger.Info("Successfully reconnected to MQTT broker", "broker", c.config.Broker)
			return
		}

		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		mqttLogger.Warn("Failed to reconnect to MQTT broker", "broker", c.config.Broker, "error", err, "retry_in", backoff)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-c.reconnectStop:
			return
		}
	}
}
