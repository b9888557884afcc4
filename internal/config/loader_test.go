// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// isolate points the runtime directory defaults at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	return filepath.Join(dir, "playerbridge")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playerbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	runtimeDir := isolate(t)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	require.Equal(t, "v1.2.3", cfg.Version)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, runtimeDir, cfg.MessagePort.RuntimeDir)
	require.Equal(t, filepath.Join(runtimeDir, DefaultSocketName), cfg.Bridge.Socket)
	require.Equal(t, DefaultLocalPort, cfg.Bridge.LocalPort)
	require.Equal(t, PeerConfig{
		AppID:          DefaultPeerAppID,
		Port:           DefaultPeerPort,
		LaunchKey:      DefaultLaunchKey,
		LaunchValue:    DefaultLaunchValue,
		LaunchTimeout:  5 * time.Second,
		NotifyTimeout:  3 * time.Second,
		NotifyInterval: 100 * time.Millisecond,
		StopGrace:      2 * time.Second,
	}, cfg.Peer)
	require.DirExists(t, runtimeDir)
	require.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	resources := t.TempDir()
	t.Setenv("WIDGET_BIN", "/usr/bin/widget")

	path := writeConfig(t, `
logLevel: debug
log:
  sink:
    url: https://logs.example.com/ingest
    level: error
    ratePerSecond: 5
    queue: 32
bridge:
  appId: org.example.player
peer:
  appId: org.example.widget
  port: widget_port
  launchTimeout: 2s
apps:
  org.example.widget:
    command: ${WIDGET_BIN}
    args: ["--kiosk"]
    env:
      MODE: companion
metrics:
  listenAddr: ""
resources:
  dir: `+resources+`
telemetry:
  enabled: true
  exporter: http
  endpoint: collector:4318
  samplingRate: 0.25
`)

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, LogSinkConfig{
		URL:           "https://logs.example.com/ingest",
		Level:         "error",
		Timeout:       2 * time.Second,
		RatePerSecond: 5,
		Burst:         100,
		QueueSize:     32,
	}, cfg.LogSink)
	require.Equal(t, "org.example.player", cfg.Bridge.AppID)
	require.Equal(t, "org.example.widget", cfg.Peer.AppID)
	require.Equal(t, "widget_port", cfg.Peer.Port)
	require.Equal(t, 2*time.Second, cfg.Peer.LaunchTimeout)
	require.Empty(t, cfg.Metrics.ListenAddr)
	require.Equal(t, resources, cfg.Resources.Dir)
	require.Equal(t, TelemetryConfig{
		Enabled:      true,
		Exporter:     "http",
		Endpoint:     "collector:4318",
		Environment:  DefaultEnvironment,
		SamplingRate: 0.25,
	}, cfg.Telemetry)

	want := map[string]AppSpec{
		"org.example.widget": {
			Command: "/usr/bin/widget",
			Args:    []string{"--kiosk"},
			Env:     map[string]string{"MODE": "companion"},
		},
	}
	if diff := cmp.Diff(want, cfg.Apps); diff != "" {
		t.Errorf("apps mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "logLevel: debug\npeer:\n  appId: from.file\n")

	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPeerAppID, "from.env")
	t.Setenv(EnvLaunchTimeout, "750ms")
	t.Setenv(EnvMetricsAddr, "")
	t.Setenv(EnvTracingEnabled, "yes")
	t.Setenv(EnvSamplingRate, "0.5")

	l := NewLoader(path, "test")
	cfg, err := l.Load()
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "from.env", cfg.Peer.AppID)
	require.Equal(t, 750*time.Millisecond, cfg.Peer.LaunchTimeout)
	require.Empty(t, cfg.Metrics.ListenAddr)
	require.True(t, cfg.Telemetry.Enabled)
	require.InDelta(t, 0.5, cfg.Telemetry.SamplingRate, 1e-9)
	require.Contains(t, l.ConsumedEnvKeys, EnvPeerAppID)
	require.Contains(t, l.ConsumedEnvKeys, EnvMetricsAddr)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "unknown key", file: "c.yaml", body: "bogus: 1\n", wantErr: ErrUnknownConfigField},
		{name: "unknown nested key", file: "c.yaml", body: "peer:\n  appid: x\n", wantErr: ErrUnknownConfigField},
		{name: "multiple documents", file: "c.yaml", body: "logLevel: info\n---\nlogLevel: debug\n", wantMsg: "multiple documents"},
		{name: "wrong extension", file: "c.json", body: "{}", wantMsg: "unsupported config format"},
		{name: "bad duration", file: "c.yaml", body: "peer:\n  launchTimeout: soon\n", wantMsg: "peer.launchTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := NewLoader(path, "test").Load()
			require.Error(t, err)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.wantMsg != "" {
				require.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), "test").Load()
	require.ErrorIs(t, err, os.ErrNotExist)
}
