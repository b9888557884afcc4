// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command webwidget is the companion application launched by the bridge.
// It reads its identity from the launch environment and talks to the host
// over the message port.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ManuGH/playerbridge/internal/applaunch"
	"github.com/ManuGH/playerbridge/internal/config"
	"github.com/ManuGH/playerbridge/internal/daemon"
	xglog "github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messageport"
	"github.com/ManuGH/playerbridge/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	port := flag.String("port", config.DefaultPeerPort, "local port to register")
	hostApp := flag.String("host-app", config.DefaultBridgeAppID, "application id of the bridge")
	hostPort := flag.String("host-port", config.DefaultLocalPort, "local port of the bridge")
	logLevel := flag.String("log-level", config.ParseString(config.EnvLogLevel, config.DefaultLogLevel), "log level")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{
		Level:   *logLevel,
		Service: "webwidget",
		Version: version.Version,
	})
	logger := xglog.WithComponent("webwidget")

	appID := config.ParseString(applaunch.EnvAppID, config.DefaultPeerAppID)
	runtimeDir := config.ParseString(applaunch.EnvRuntimeDir, config.DefaultRuntimeDir())

	ev := logger.Info().
		Str(xglog.FieldEvent, "webwidget.start").
		Str("app_id", appID).
		Str("runtime_dir", runtimeDir).
		Str(xglog.FieldLaunchMode, os.Getenv(applaunch.EnvLaunchMode))
	if extra := launchExtra(); len(extra) > 0 {
		ev = ev.Interface("launch_extra", extra)
	}
	ev.Msg("companion starting")

	transport, err := messageport.NewSocketTransport(runtimeDir, appID, xglog.WithComponent("messageport"))
	if err != nil {
		logger.Fatal().Err(err).Msg("message port transport")
	}
	defer func() { _ = transport.Close() }()

	ctx, stop := daemon.SignalContext(context.Background())
	defer stop()

	c := newCompanion(companionConfig{Port: *port, HostApp: *hostApp, HostPort: *hostPort}, transport, logger)
	if err := c.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("companion failed")
		stop()
		_ = transport.Close()
		os.Exit(1)
	}
	logger.Info().Msg("companion exiting")
}

// launchExtra decodes the extra data passed by the launcher.
func launchExtra() map[string]string {
	raw := os.Getenv(applaunch.EnvLaunchExtra)
	if raw == "" {
		return nil
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil
	}
	return extra
}
