package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "chat-widget"

// LogConfig controls where diagnostics go. The terminal widget owns stdout, so
// logs default to a rotating file.
type LogConfig struct {
	File  string
	Level string
	// Console, when set, also receives every record (used by the browser
	// widget server, which has no screen to protect).
	Console io.Writer
}

// ParseLevel accepts debug, info, warn or error (case-insensitive). Empty
// means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("telemetry: invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds a JSON slog logger writing to a rotating log file and sets
// it as the process default. Close the returned io.Closer on exit.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	file := strings.TrimSpace(cfg.File)
	if file == "" {
		return nil, nil, errors.New("telemetry: log file must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("telemetry: create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	var w io.Writer = rotating
	if cfg.Console != nil {
		w = io.MultiWriter(cfg.Console, rotating)
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, rotating, nil
}

// InitTracing installs a global tracer provider that exports spans as JSON to
// w. The returned function flushes and shuts the provider down.
func InitTracing(ctx context.Context, w io.Writer, version string) (func(context.Context) error, error) {
	if w == nil {
		return nil, errors.New("telemetry: trace writer must not be nil")
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// TraceFile returns a rotating writer for span exports, placed next to the
// log file.
func TraceFile(logFile string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   filepath.Join(filepath.Dir(logFile), "traces.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}
