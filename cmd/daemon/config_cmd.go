// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playerbridge/internal/config"
	platformnet "github.com/ManuGH/playerbridge/internal/platform/net"
	"github.com/ManuGH/playerbridge/internal/version"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  playerbridge config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  playerbridge config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("playerbridge config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", os.Getenv(config.EnvConfigFile), "path to YAML configuration file")
	fs.StringVar(&file, "f", os.Getenv(config.EnvConfigFile), "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		fmt.Fprintf(stderr, "Error: --file is required (or set %s)\n", config.EnvConfigFile)
		return 2
	}

	if _, err := config.NewLoader(configPath, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "✓ %s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("playerbridge config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", os.Getenv(config.EnvConfigFile), "path to YAML configuration file")
	fs.StringVar(&file, "f", os.Getenv(config.EnvConfigFile), "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(stderr, "Error: --effective is required")
		return 2
	}

	// Without a file the effective configuration is env + defaults.
	configPath := strings.TrimSpace(file)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fileCfg := fileConfigFromAppConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// fileConfigFromAppConfig maps cfg back onto the file shape. The sink URL
// loses its credentials.
func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	rate := cfg.LogSink.RatePerSecond
	burst := cfg.LogSink.Burst
	queue := cfg.LogSink.QueueSize
	listenAddr := cfg.Metrics.ListenAddr
	tracing := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate

	out := config.FileConfig{
		LogLevel:   cfg.LogLevel,
		LogService: cfg.LogService,
		Bridge: &config.BridgeFileConfig{
			Socket:    cfg.Bridge.Socket,
			AppID:     cfg.Bridge.AppID,
			LocalPort: cfg.Bridge.LocalPort,
		},
		Peer: &config.PeerFileConfig{
			AppID:          cfg.Peer.AppID,
			Port:           cfg.Peer.Port,
			LaunchKey:      cfg.Peer.LaunchKey,
			LaunchValue:    cfg.Peer.LaunchValue,
			LaunchTimeout:  cfg.Peer.LaunchTimeout.String(),
			NotifyTimeout:  cfg.Peer.NotifyTimeout.String(),
			NotifyInterval: cfg.Peer.NotifyInterval.String(),
			StopGrace:      cfg.Peer.StopGrace.String(),
		},
		MessagePort: &config.MessagePortFileConfig{RuntimeDir: cfg.MessagePort.RuntimeDir},
		Metrics:     &config.MetricsFileConfig{ListenAddr: &listenAddr},
		Telemetry: &config.TelemetryFileConfig{
			Enabled:      &tracing,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			Environment:  cfg.Telemetry.Environment,
			SamplingRate: &sampling,
		},
		ShutdownTimeout: cfg.ShutdownTimeout.String(),
	}

	if cfg.LogSink.URL != "" {
		out.Log = &config.LogFileConfig{Sink: &config.SinkFileConfig{
			URL:           platformnet.SanitizeURL(cfg.LogSink.URL),
			Level:         cfg.LogSink.Level,
			Timeout:       cfg.LogSink.Timeout.String(),
			RatePerSecond: &rate,
			Burst:         &burst,
			Queue:         &queue,
		}}
	}
	if cfg.Resources.Dir != "" {
		out.Resources = &config.ResourcesFileConfig{Dir: cfg.Resources.Dir}
	}
	if len(cfg.Apps) > 0 {
		out.Apps = make(map[string]config.AppFileSpec, len(cfg.Apps))
		for id, app := range cfg.Apps {
			out.Apps[id] = config.AppFileSpec{Command: app.Command, Args: app.Args, Env: app.Env}
		}
	}
	return out
}
