// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messageport"
)

const (
	keyEvent     = "event"
	keyTextureID = "textureId"
	keyPosition  = "position"

	eventReady    = "ready"
	eventSeekTo   = "seekTo"
	eventPosition = "position"

	inboxSize        = 16
	announceInterval = 100 * time.Millisecond
)

type companionConfig struct {
	Port     string
	HostApp  string
	HostPort string
}

type inbound struct {
	from    string
	port    string
	payload map[string]string
}

// companion is the peer side of the bridge: it announces itself to the host
// and answers seek requests with the new position.
type companion struct {
	cfg    companionConfig
	comm   *messageport.Communicator
	inbox  chan inbound
	logger zerolog.Logger
}

func newCompanion(cfg companionConfig, t messageport.Transport, logger zerolog.Logger) *companion {
	c := &companion{
		cfg:    cfg,
		inbox:  make(chan inbound, inboxSize),
		logger: logger,
	}
	c.comm = messageport.NewCommunicator(cfg.Port, t, c.enqueue, logger)
	return c
}

// enqueue runs on the transport goroutine and must not block.
func (c *companion) enqueue(msg messageport.Message) {
	in := inbound{from: msg.RemoteAppID, port: msg.RemotePort, payload: msg.Bundle.Map()}
	select {
	case c.inbox <- in:
	default:
		c.logger.Warn().
			Str(log.FieldEvent, "webwidget.inbox_full").
			Str(log.FieldRemoteApp, msg.RemoteAppID).
			Msg("dropping message")
	}
}

// Run registers the port and serves until ctx ends.
func (c *companion) Run(ctx context.Context) error {
	if err := c.comm.Initialize(); err != nil {
		return err
	}
	defer func() { _ = c.comm.Close() }()

	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()
	announced := c.announce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case in := <-c.inbox:
			c.handle(ctx, in)
		case <-ticker.C:
			if !announced {
				announced = c.announce(ctx)
			}
		}
	}
}

// announce sends the ready event once the host port exists.
func (c *companion) announce(ctx context.Context) bool {
	ok, err := c.comm.PeerReady(ctx, c.cfg.HostApp, c.cfg.HostPort)
	if err != nil || !ok {
		return false
	}
	if err := c.comm.Send(ctx, c.cfg.HostApp, c.cfg.HostPort, map[string]string{keyEvent: eventReady}); err != nil {
		c.logger.Debug().Err(err).Msg("announce failed, retrying")
		return false
	}
	c.logger.Info().
		Str(log.FieldEvent, "webwidget.announced").
		Str(log.FieldRemoteApp, c.cfg.HostApp).
		Msg("announced to host")
	return true
}

func (c *companion) handle(ctx context.Context, in inbound) {
	event := in.payload[keyEvent]
	logger := c.logger.With().
		Str(log.FieldRemoteApp, in.from).
		Str("peer_event", event).
		Logger()

	switch event {
	case eventSeekTo:
		pos, err := strconv.ParseInt(in.payload[keyPosition], 10, 64)
		if err != nil || pos < 0 {
			logger.Warn().Str(keyPosition, in.payload[keyPosition]).Msg("invalid seek position")
			return
		}
		app, port := in.from, in.port
		if port == "" {
			app, port = c.cfg.HostApp, c.cfg.HostPort
		}
		reply := map[string]string{
			keyEvent:     eventPosition,
			keyTextureID: in.payload[keyTextureID],
			keyPosition:  strconv.FormatInt(pos, 10),
		}
		if err := c.comm.Send(ctx, app, port, reply); err != nil {
			logger.Warn().Err(err).Msg("position reply failed")
			return
		}
		logger.Info().Int64(keyPosition, pos).Msg("seek applied")
	default:
		logger.Debug().Msg("ignoring event")
	}
}
