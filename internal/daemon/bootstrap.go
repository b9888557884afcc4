// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon provides the playerbridge daemon bootstrapping and
// lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/playerbridge/internal/config"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/telemetry"
	"github.com/rs/zerolog"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ConfigureLogging configures the global logger from cfg. The returned sink
// is nil when no sink URL is configured; otherwise the caller closes it.
func ConfigureLogging(cfg config.AppConfig) (*log.Sink, error) {
	logCfg := log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	}

	var sink *log.Sink
	if cfg.LogSink.URL != "" {
		level, err := zerolog.ParseLevel(cfg.LogSink.Level)
		if err != nil {
			return nil, fmt.Errorf("log sink level: %w", err)
		}
		sink, err = log.NewSink(log.SinkConfig{
			URL:           cfg.LogSink.URL,
			Level:         level,
			Timeout:       cfg.LogSink.Timeout,
			RatePerSecond: cfg.LogSink.RatePerSecond,
			Burst:         cfg.LogSink.Burst,
			QueueSize:     cfg.LogSink.QueueSize,
		})
		if err != nil {
			return nil, fmt.Errorf("log sink: %w", err)
		}
		logCfg.Sink = sink
	}

	log.Configure(logCfg)
	return sink, nil
}

// InitTelemetry initializes OpenTelemetry tracing. A disabled configuration
// installs the no-op provider.
func InitTelemetry(ctx context.Context, cfg config.AppConfig) (*telemetry.Provider, error) {
	telCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}

	provider, err := telemetry.NewProvider(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	if telCfg.Enabled {
		logger := log.WithComponent("daemon")
		logger.Info().
			Str("service", telCfg.ServiceName).
			Str("endpoint", telCfg.Endpoint).
			Float64("sampling_rate", telCfg.SamplingRate).
			Msg("telemetry initialized")
	}
	return provider, nil
}
