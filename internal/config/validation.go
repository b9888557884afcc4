// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"sort"
	"time"

	"github.com/ManuGH/playerbridge/internal/validate"
)

// Validate checks cfg. It creates the message port runtime directory when
// it does not exist yet.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.NotEmpty("logService", cfg.LogService)

	if cfg.LogSink.URL != "" {
		v.URL("log.sink.url", cfg.LogSink.URL, []string{"http", "https"})
		v.LogLevel("log.sink.level", cfg.LogSink.Level)
		v.Duration("log.sink.timeout", cfg.LogSink.Timeout, 100*time.Millisecond, time.Minute)
		if cfg.LogSink.RatePerSecond <= 0 {
			v.AddError("log.sink.ratePerSecond", "value must be positive", cfg.LogSink.RatePerSecond)
		}
		v.Positive("log.sink.burst", cfg.LogSink.Burst)
		v.Range("log.sink.queue", cfg.LogSink.QueueSize, 1, 65536)
	}

	v.Directory("messagePort.runtimeDir", cfg.MessagePort.RuntimeDir, false)
	v.AbsolutePath("bridge.socket", cfg.Bridge.Socket)
	v.Identifier("bridge.appId", cfg.Bridge.AppID)
	v.Identifier("bridge.localPort", cfg.Bridge.LocalPort)

	if cfg.Peer.AppID != "" {
		v.Identifier("peer.appId", cfg.Peer.AppID)
		v.Identifier("peer.port", cfg.Peer.Port)
		v.NotEmpty("peer.launchKey", cfg.Peer.LaunchKey)
		v.Duration("peer.launchTimeout", cfg.Peer.LaunchTimeout, 100*time.Millisecond, 5*time.Minute)
		v.Duration("peer.notifyTimeout", cfg.Peer.NotifyTimeout, 100*time.Millisecond, 5*time.Minute)
		v.Duration("peer.notifyInterval", cfg.Peer.NotifyInterval, 10*time.Millisecond, cfg.Peer.NotifyTimeout)
	}
	v.Duration("peer.stopGrace", cfg.Peer.StopGrace, 0, time.Minute)

	if cfg.Resources.Dir != "" {
		v.Directory("resources.dir", cfg.Resources.Dir, true)
	}

	ids := make([]string, 0, len(cfg.Apps))
	for id := range cfg.Apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v.Identifier("apps", id)
		v.NotEmpty("apps."+id+".command", cfg.Apps[id].Command)
	}

	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, validate.TraceExporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)

	v.Duration("shutdownTimeout", cfg.ShutdownTimeout, 100*time.Millisecond, 5*time.Minute)

	return v.Err()
}
