// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the playerbridge daemon configuration.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly:
// unknown keys and trailing documents are rejected. The resulting AppConfig
// is validated before it is handed out.
package config

import (
	"errors"
	"time"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	Version         string
	LogLevel        string
	LogService      string
	LogSink         LogSinkConfig
	Bridge          BridgeConfig
	Peer            PeerConfig
	MessagePort     MessagePortConfig
	Resources       ResourcesConfig
	Apps            map[string]AppSpec
	Metrics         MetricsConfig
	Telemetry       TelemetryConfig
	ShutdownTimeout time.Duration
}

// LogSinkConfig configures the remote log sink. An empty URL disables it.
type LogSinkConfig struct {
	URL           string
	Level         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	QueueSize     int
}

// BridgeConfig describes the command socket and the local message port.
type BridgeConfig struct {
	Socket    string
	AppID     string
	LocalPort string
}

// PeerConfig addresses the companion application.
type PeerConfig struct {
	AppID          string
	Port           string
	LaunchKey      string
	LaunchValue    string
	LaunchTimeout  time.Duration
	NotifyTimeout  time.Duration
	NotifyInterval time.Duration
	StopGrace      time.Duration
}

// MessagePortConfig locates the message port sockets.
type MessagePortConfig struct {
	RuntimeDir string
}

// ResourcesConfig locates the application resources used to resolve assets.
type ResourcesConfig struct {
	Dir string
}

// AppSpec is a launchable application.
type AppSpec struct {
	Command string
	Args    []string
	Env     map[string]string
}

// MetricsConfig configures the admin HTTP listener. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	Environment  string
	SamplingRate float64
}

// FileConfig is the YAML file shape.
type FileConfig struct {
	LogLevel        string                 `yaml:"logLevel,omitempty"`
	LogService      string                 `yaml:"logService,omitempty"`
	Log             *LogFileConfig         `yaml:"log,omitempty"`
	Bridge          *BridgeFileConfig      `yaml:"bridge,omitempty"`
	Peer            *PeerFileConfig        `yaml:"peer,omitempty"`
	MessagePort     *MessagePortFileConfig `yaml:"messagePort,omitempty"`
	Resources       *ResourcesFileConfig   `yaml:"resources,omitempty"`
	Apps            map[string]AppFileSpec `yaml:"apps,omitempty"`
	Metrics         *MetricsFileConfig     `yaml:"metrics,omitempty"`
	Telemetry       *TelemetryFileConfig   `yaml:"telemetry,omitempty"`
	ShutdownTimeout string                 `yaml:"shutdownTimeout,omitempty"`
}

type LogFileConfig struct {
	Sink *SinkFileConfig `yaml:"sink,omitempty"`
}

type SinkFileConfig struct {
	URL           string   `yaml:"url,omitempty"`
	Level         string   `yaml:"level,omitempty"`
	Timeout       string   `yaml:"timeout,omitempty"`
	RatePerSecond *float64 `yaml:"ratePerSecond,omitempty"`
	Burst         *int     `yaml:"burst,omitempty"`
	Queue         *int     `yaml:"queue,omitempty"`
}

type BridgeFileConfig struct {
	Socket    string `yaml:"socket,omitempty"`
	AppID     string `yaml:"appId,omitempty"`
	LocalPort string `yaml:"localPort,omitempty"`
}

type PeerFileConfig struct {
	AppID          string `yaml:"appId,omitempty"`
	Port           string `yaml:"port,omitempty"`
	LaunchKey      string `yaml:"launchKey,omitempty"`
	LaunchValue    string `yaml:"launchValue,omitempty"`
	LaunchTimeout  string `yaml:"launchTimeout,omitempty"`
	NotifyTimeout  string `yaml:"notifyTimeout,omitempty"`
	NotifyInterval string `yaml:"notifyInterval,omitempty"`
	StopGrace      string `yaml:"stopGrace,omitempty"`
}

type MessagePortFileConfig struct {
	RuntimeDir string `yaml:"runtimeDir,omitempty"`
}

type ResourcesFileConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

type AppFileSpec struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

type MetricsFileConfig struct {
	ListenAddr *string `yaml:"listenAddr,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
