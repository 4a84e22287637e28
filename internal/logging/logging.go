// Package logging provides slog-based loggers shared by all services of the daemon.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		label, ok := levelNames[level]
		if !ok {
			label = level.String()
		}
		a.Value = slog.StringValue(label)
	}
	return a
}

// Init configures the process-wide default logger. JSON output goes to stdout
// so the journal or container runtime can pick it up.
func Init(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)
}

// Structured returns the global structured logger, or nil before Init.
func Structured() *slog.Logger {
	return structuredLogger
}

// ForService returns a child of the global logger tagged with a service attribute.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return slog.Default().With("service", serviceName)
	}
	return structuredLogger.With("service", serviceName)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs at the custom Fatal level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// NewFileLogger creates a JSON slog.Logger writing to filePath with lumberjack
// rotation, tagged with a service attribute. It returns the logger and a closer
// for the underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, err
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(fileHandler).With("service", serviceName)
	return logger, logWriter.Close, nil
}
