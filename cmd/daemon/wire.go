// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/applaunch"
	"github.com/ManuGH/playerbridge/internal/config"
	"github.com/ManuGH/playerbridge/internal/daemon"
	"github.com/ManuGH/playerbridge/internal/health"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messageport"
	"github.com/ManuGH/playerbridge/internal/messenger"
	"github.com/ManuGH/playerbridge/internal/playerapi"
	"github.com/ManuGH/playerbridge/internal/plugin"
)

type namedHook struct {
	name string
	hook daemon.ShutdownHook
}

// bridge is the wired daemon: transport, launcher, plugin and the servers
// exposing them.
type bridge struct {
	transport *messageport.SocketTransport
	platform  *applaunch.ExecPlatform
	plugin    *plugin.Plugin
	local     *messenger.Local
	health    *health.Manager
	manager   daemon.Manager
}

// newBridge builds the daemon from cfg. Hooks in outer are registered first
// and therefore run last on shutdown.
func newBridge(cfg config.AppConfig, logger zerolog.Logger, outer ...namedHook) (*bridge, error) {
	transport, err := messageport.NewSocketTransport(cfg.MessagePort.RuntimeDir, cfg.Bridge.AppID,
		log.WithComponent("messageport"))
	if err != nil {
		return nil, fmt.Errorf("message port transport: %w", err)
	}

	platform := applaunch.NewExecPlatform(applaunch.ExecOptions{
		RuntimeDir: cfg.MessagePort.RuntimeDir,
		Apps:       launchApps(cfg.Apps),
		Grace:      cfg.Peer.StopGrace,
		Logger:     log.WithComponent("applaunch"),
	})
	launcher := applaunch.NewCoordinator(platform, log.WithComponent("applaunch"), cfg.Peer.LaunchTimeout)

	p := plugin.New(plugin.Config{
		LocalPort:   cfg.Bridge.LocalPort,
		ResourceDir: cfg.Resources.Dir,
		Peer: plugin.PeerConfig{
			AppID:          cfg.Peer.AppID,
			Port:           cfg.Peer.Port,
			LaunchKey:      cfg.Peer.LaunchKey,
			LaunchValue:    cfg.Peer.LaunchValue,
			LaunchTimeout:  cfg.Peer.LaunchTimeout,
			NotifyTimeout:  cfg.Peer.NotifyTimeout,
			NotifyInterval: cfg.Peer.NotifyInterval,
		},
	}, transport, launcher, log.WithComponent("plugin"))

	local := messenger.NewLocal()
	playerapi.Setup(local, p, playerapi.WithLogger(log.WithComponent("playerapi")))
	server := messenger.NewServer(cfg.Bridge.Socket, local, log.WithComponent("messenger"))

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewReadyChecker("message_port", "local port not registered", p.Ready))
	hm.RegisterChecker(health.NewSocketChecker("command_socket", cfg.Bridge.Socket))

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:        logger,
		CommandServer: server,
		AdminAddr:     cfg.Metrics.ListenAddr,
		AdminHandler: daemon.NewAdminHandler(daemon.AdminOptions{
			Health:      hm,
			ServiceName: cfg.LogService + "-admin",
		}),
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		_ = p.Close(context.Background())
		_ = transport.Close()
		return nil, err
	}

	for _, h := range outer {
		mgr.RegisterShutdownHook(h.name, h.hook)
	}
	mgr.RegisterShutdownHook("applaunch", platform.Close)
	mgr.RegisterShutdownHook("messageport", func(context.Context) error { return transport.Close() })
	mgr.RegisterShutdownHook("plugin", p.Close)

	return &bridge{
		transport: transport,
		platform:  platform,
		plugin:    p,
		local:     local,
		health:    hm,
		manager:   mgr,
	}, nil
}

func launchApps(specs map[string]config.AppSpec) map[string]applaunch.App {
	apps := make(map[string]applaunch.App, len(specs))
	for id, spec := range specs {
		apps[id] = applaunch.App{
			Command: spec.Command,
			Args:    append([]string(nil), spec.Args...),
			Env:     spec.Env,
		}
	}
	return apps
}
