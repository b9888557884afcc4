// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultLogLevel       = "info"
	DefaultLogService     = "playerbridge"
	DefaultSinkLevel      = "warn"
	DefaultBridgeAppID    = "org.playerbridge.host"
	DefaultLocalPort      = "web_widget_local_port"
	DefaultPeerAppID      = "org.playerbridge.webwidget"
	DefaultPeerPort       = "web_widget_port"
	DefaultLaunchKey      = "launch_intent"
	DefaultLaunchValue    = "player_companion"
	DefaultMetricsAddr    = "127.0.0.1:9464"
	DefaultExporter       = "grpc"
	DefaultOTLPEndpoint   = "localhost:4317"
	DefaultEnvironment    = "device"
	DefaultSocketName     = "bridge.sock"
	defaultSinkTimeout    = 2 * time.Second
	defaultSinkRate       = 50
	defaultSinkBurst      = 100
	defaultSinkQueue      = 256
	defaultLaunchTimeout  = 5 * time.Second
	defaultNotifyTimeout  = 3 * time.Second
	defaultNotifyInterval = 100 * time.Millisecond
	defaultStopGrace      = 2 * time.Second
	defaultShutdown       = 5 * time.Second
)

// Environment variables. PLAYERBRIDGE_APP_ID and PLAYERBRIDGE_RUNTIME_DIR are
// also set by the daemon for the applications it launches.
const (
	EnvConfigFile      = "PLAYERBRIDGE_CONFIG"
	EnvLogLevel        = "PLAYERBRIDGE_LOG_LEVEL"
	EnvLogService      = "PLAYERBRIDGE_LOG_SERVICE"
	EnvSinkURL         = "PLAYERBRIDGE_LOG_SINK_URL"
	EnvSinkLevel       = "PLAYERBRIDGE_LOG_SINK_LEVEL"
	EnvSocket          = "PLAYERBRIDGE_SOCKET"
	EnvAppID           = "PLAYERBRIDGE_APP_ID"
	EnvLocalPort       = "PLAYERBRIDGE_LOCAL_PORT"
	EnvPeerAppID       = "PLAYERBRIDGE_PEER_APP_ID"
	EnvPeerPort        = "PLAYERBRIDGE_PEER_PORT"
	EnvLaunchTimeout   = "PLAYERBRIDGE_PEER_LAUNCH_TIMEOUT"
	EnvNotifyTimeout   = "PLAYERBRIDGE_PEER_NOTIFY_TIMEOUT"
	EnvRuntimeDir      = "PLAYERBRIDGE_RUNTIME_DIR"
	EnvResourceDir     = "PLAYERBRIDGE_RESOURCE_DIR"
	EnvMetricsAddr     = "PLAYERBRIDGE_METRICS_ADDR"
	EnvTracingEnabled  = "PLAYERBRIDGE_TRACING_ENABLED"
	EnvTracingExporter = "PLAYERBRIDGE_TRACING_EXPORTER"
	EnvOTLPEndpoint    = "PLAYERBRIDGE_OTLP_ENDPOINT"
	EnvSamplingRate    = "PLAYERBRIDGE_TRACING_SAMPLING_RATE"
	EnvShutdownTimeout = "PLAYERBRIDGE_SHUTDOWN_TIMEOUT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath means
// ENV and defaults only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	finalize(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration. Bridge.Socket is derived
// from the runtime directory when left empty.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   DefaultLogLevel,
		LogService: DefaultLogService,
		LogSink: LogSinkConfig{
			Level:         DefaultSinkLevel,
			Timeout:       defaultSinkTimeout,
			RatePerSecond: defaultSinkRate,
			Burst:         defaultSinkBurst,
			QueueSize:     defaultSinkQueue,
		},
		Bridge: BridgeConfig{
			AppID:     DefaultBridgeAppID,
			LocalPort: DefaultLocalPort,
		},
		Peer: PeerConfig{
			AppID:          DefaultPeerAppID,
			Port:           DefaultPeerPort,
			LaunchKey:      DefaultLaunchKey,
			LaunchValue:    DefaultLaunchValue,
			LaunchTimeout:  defaultLaunchTimeout,
			NotifyTimeout:  defaultNotifyTimeout,
			NotifyInterval: defaultNotifyInterval,
			StopGrace:      defaultStopGrace,
		},
		MessagePort: MessagePortConfig{RuntimeDir: DefaultRuntimeDir()},
		Apps:        map[string]AppSpec{},
		Metrics:     MetricsConfig{ListenAddr: DefaultMetricsAddr},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultExporter,
			Endpoint:     DefaultOTLPEndpoint,
			Environment:  DefaultEnvironment,
			SamplingRate: 1.0,
		},
		ShutdownTimeout: defaultShutdown,
	}
}

// DefaultRuntimeDir is $XDG_RUNTIME_DIR/playerbridge, falling back to a
// per-user directory under the system temp dir.
func DefaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "playerbridge")
	}
	return filepath.Join(os.TempDir(), "playerbridge-"+strconv.Itoa(os.Getuid()))
}

// loadFile parses a YAML config file in strict mode.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeFileConfig copies the keys present in src onto dst.
func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	var errs []error
	dur := func(field, raw string, target *time.Duration) {
		if raw == "" {
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*target = d
	}
	str := func(raw string, target *string) {
		if raw != "" {
			*target = expandEnv(raw)
		}
	}

	str(src.LogLevel, &dst.LogLevel)
	str(src.LogService, &dst.LogService)
	dur("shutdownTimeout", src.ShutdownTimeout, &dst.ShutdownTimeout)

	if src.Log != nil && src.Log.Sink != nil {
		s := src.Log.Sink
		str(s.URL, &dst.LogSink.URL)
		str(s.Level, &dst.LogSink.Level)
		dur("log.sink.timeout", s.Timeout, &dst.LogSink.Timeout)
		if s.RatePerSecond != nil {
			dst.LogSink.RatePerSecond = *s.RatePerSecond
		}
		if s.Burst != nil {
			dst.LogSink.Burst = *s.Burst
		}
		if s.Queue != nil {
			dst.LogSink.QueueSize = *s.Queue
		}
	}

	if b := src.Bridge; b != nil {
		str(b.Socket, &dst.Bridge.Socket)
		str(b.AppID, &dst.Bridge.AppID)
		str(b.LocalPort, &dst.Bridge.LocalPort)
	}

	if p := src.Peer; p != nil {
		str(p.AppID, &dst.Peer.AppID)
		str(p.Port, &dst.Peer.Port)
		str(p.LaunchKey, &dst.Peer.LaunchKey)
		str(p.LaunchValue, &dst.Peer.LaunchValue)
		dur("peer.launchTimeout", p.LaunchTimeout, &dst.Peer.LaunchTimeout)
		dur("peer.notifyTimeout", p.NotifyTimeout, &dst.Peer.NotifyTimeout)
		dur("peer.notifyInterval", p.NotifyInterval, &dst.Peer.NotifyInterval)
		dur("peer.stopGrace", p.StopGrace, &dst.Peer.StopGrace)
	}

	if src.MessagePort != nil {
		str(src.MessagePort.RuntimeDir, &dst.MessagePort.RuntimeDir)
	}
	if src.Resources != nil {
		str(src.Resources.Dir, &dst.Resources.Dir)
	}

	for id, app := range src.Apps {
		env := make(map[string]string, len(app.Env))
		for k, v := range app.Env {
			env[k] = expandEnv(v)
		}
		dst.Apps[id] = AppSpec{
			Command: expandEnv(app.Command),
			Args:    append([]string(nil), app.Args...),
			Env:     env,
		}
	}

	if src.Metrics != nil && src.Metrics.ListenAddr != nil {
		dst.Metrics.ListenAddr = *src.Metrics.ListenAddr
	}

	if t := src.Telemetry; t != nil {
		if t.Enabled != nil {
			dst.Telemetry.Enabled = *t.Enabled
		}
		str(t.Exporter, &dst.Telemetry.Exporter)
		str(t.Endpoint, &dst.Telemetry.Endpoint)
		str(t.Environment, &dst.Telemetry.Environment)
		if t.SamplingRate != nil {
			dst.Telemetry.SamplingRate = *t.SamplingRate
		}
	}

	return errors.Join(errs...)
}

// mergeEnvConfig applies PLAYERBRIDGE_* overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.LogSink.URL = l.envString(EnvSinkURL, cfg.LogSink.URL)
	cfg.LogSink.Level = l.envString(EnvSinkLevel, cfg.LogSink.Level)

	cfg.Bridge.Socket = l.envString(EnvSocket, cfg.Bridge.Socket)
	cfg.Bridge.AppID = l.envString(EnvAppID, cfg.Bridge.AppID)
	cfg.Bridge.LocalPort = l.envString(EnvLocalPort, cfg.Bridge.LocalPort)

	cfg.Peer.AppID = l.envString(EnvPeerAppID, cfg.Peer.AppID)
	cfg.Peer.Port = l.envString(EnvPeerPort, cfg.Peer.Port)
	cfg.Peer.LaunchTimeout = l.envDuration(EnvLaunchTimeout, cfg.Peer.LaunchTimeout)
	cfg.Peer.NotifyTimeout = l.envDuration(EnvNotifyTimeout, cfg.Peer.NotifyTimeout)

	cfg.MessagePort.RuntimeDir = l.envString(EnvRuntimeDir, cfg.MessagePort.RuntimeDir)
	cfg.Resources.Dir = l.envString(EnvResourceDir, cfg.Resources.Dir)

	// An explicitly empty value disables the admin listener.
	if addr, ok := os.LookupEnv(EnvMetricsAddr); ok {
		l.ConsumedEnvKeys[EnvMetricsAddr] = struct{}{}
		cfg.Metrics.ListenAddr = addr
	}

	cfg.Telemetry.Enabled = l.envBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTracingExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvSamplingRate, cfg.Telemetry.SamplingRate)

	cfg.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.ShutdownTimeout)
}

// finalize derives dependent defaults and makes paths absolute.
func finalize(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.MessagePort.RuntimeDir); err == nil {
		cfg.MessagePort.RuntimeDir = abs
	}
	if cfg.Bridge.Socket == "" {
		cfg.Bridge.Socket = filepath.Join(cfg.MessagePort.RuntimeDir, DefaultSocketName)
	}
	if cfg.Resources.Dir != "" {
		if abs, err := filepath.Abs(cfg.Resources.Dir); err == nil {
			cfg.Resources.Dir = abs
		}
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogSink.Level = strings.ToLower(strings.TrimSpace(cfg.LogSink.Level))
}
