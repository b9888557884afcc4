// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command playerbridge runs the video player bridge daemon: the command
// socket, the message port to the companion application and the admin
// listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/playerbridge/internal/config"
	"github.com/ManuGH/playerbridge/internal/daemon"
	"github.com/ManuGH/playerbridge/internal/health"
	xglog "github.com/ManuGH/playerbridge/internal/log"
	platformnet "github.com/ManuGH/playerbridge/internal/platform/net"
	"github.com/ManuGH/playerbridge/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", os.Getenv(config.EnvConfigFile), "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	ctx, stop := daemon.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, strings.TrimSpace(*configPath)); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
}

func run(ctx context.Context, configPath string) error {
	// Bootstrap logger until the configuration is known.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: config.DefaultLogService,
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return err
	}

	sink, err := daemon.ConfigureLogging(cfg)
	if err != nil {
		return err
	}
	logger = xglog.WithComponent("daemon")

	if configPath != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str(xglog.FieldPath, configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		closeSink(ctx, sink)
		return err
	}

	provider, err := daemon.InitTelemetry(ctx, cfg)
	if err != nil {
		closeSink(ctx, sink)
		return err
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("socket", cfg.Bridge.Socket).
		Str("admin", cfg.Metrics.ListenAddr).
		Msg("starting playerbridge")
	logger.Info().Msgf("→ App: %s (port %s)", cfg.Bridge.AppID, cfg.Bridge.LocalPort)
	if cfg.Peer.AppID != "" {
		logger.Info().Msgf("→ Companion: %s (port %s)", cfg.Peer.AppID, cfg.Peer.Port)
	} else {
		logger.Warn().Msg("→ Companion: disabled (no peer.appId)")
	}
	logger.Info().Msgf("→ Runtime dir: %s", cfg.MessagePort.RuntimeDir)
	if cfg.LogSink.URL != "" {
		logger.Info().Msgf("→ Log sink: %s (level %s)", platformnet.SanitizeURL(cfg.LogSink.URL), cfg.LogSink.Level)
	}

	hooks := []namedHook{
		{name: "telemetry", hook: provider.Shutdown},
	}
	if sink != nil {
		hooks = append(hooks, namedHook{name: "log_sink", hook: sink.Close})
	}

	b, err := newBridge(cfg, logger, hooks...)
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "manager.creation.failed").
			Msg("failed to create daemon manager")
		_ = provider.Shutdown(ctx)
		closeSink(ctx, sink)
		return err
	}

	holder := config.NewHolder(cfg, loader)
	app := daemon.NewApp(logger, b.manager, holder)
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("daemon app: %w", err)
	}

	logger.Info().Msg("playerbridge exiting")
	return nil
}

func closeSink(ctx context.Context, sink *xglog.Sink) {
	if sink == nil {
		return
	}
	_ = sink.Close(context.WithoutCancel(ctx))
}
