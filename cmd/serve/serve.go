// Package serve implements the serve command running the daemon.
package serve

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/api"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/imagesaver"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/mqtt"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/observability"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/platerec"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/processor"
)

// Command returns the serve subcommand.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ALPR daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}

	logging.Init(logLevel(settings))
	logging.Info("Starting alprd", "cameras", len(settings.Cameras), "recognizer", settings.Recognizer.URL)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	recognizer := platerec.New(settings)
	defer recognizer.Close()
	defer imagesaver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := buildSink(ctx, settings, metrics)

	proc := processor.New(settings, recognizer, sink, metrics)

	if !settings.WebServer.Enabled {
		logging.Info("Web server disabled, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	}

	controller := api.New(settings, proc, metrics)
	logging.Info("HTTP API listening", "port", settings.WebServer.Port)
	return controller.Start(ctx)
}

// buildSink connects the MQTT event sink in the background. Events are
// dropped until the broker is reachable; the daemon stays up either way.
func buildSink(ctx context.Context, settings *conf.Settings, metrics *observability.Metrics) processor.EventSink {
	if !settings.MQTT.Enabled {
		return processor.NoopSink{}
	}

	client, err := mqtt.NewClient(settings, metrics.MQTT)
	if err != nil {
		logging.Error("Failed to create MQTT client, events disabled", "error", err)
		return processor.NoopSink{}
	}

	go connectWithRetries(ctx, client)
	return processor.NewMQTTSink(client, settings.MQTT.TopicBase)
}

// connectWithRetries attempts the initial broker connection with exponential
// backoff; paho's auto-reconnect takes over afterwards.
func connectWithRetries(ctx context.Context, client mqtt.Client) {
	const maxRetries = 5
	retryDelay := time.Second

	for i := 0; i < maxRetries; i++ {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := client.Connect(connectCtx)
		cancel()

		if err == nil {
			logging.Info("Connected to MQTT broker")
			return
		}
		logging.Warn("Failed to connect to MQTT broker", "attempt", i+1, "max_attempts", maxRetries, "error", err)

		select {
		case <-time.After(retryDelay):
			retryDelay *= 2
		case <-ctx.Done():
			return
		}
	}
	logging.Error("Giving up on initial MQTT connection after maximum retries")
}

func logLevel(settings *conf.Settings) slog.Level {
	if settings.Debug {
		return slog.LevelDebug
	}
	switch settings.Main.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
