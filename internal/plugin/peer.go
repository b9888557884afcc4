// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package plugin

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/applaunch"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messageport"
)

// Keys and events of bundles exchanged with the companion.
const (
	peerKeyEvent     = "event"
	peerKeyTextureID = "textureId"
	peerKeyPosition  = "position"

	peerEventSeekTo   = "seekTo"
	peerEventReady    = "ready"
	peerEventPosition = "position"
	peerEventEnded    = "ended"
)

// launchPeer requests the companion in group mode. The outcome is logged by
// the launcher and otherwise ignored.
func (p *Plugin) launchPeer(ctx context.Context) {
	peer := p.cfg.Peer
	if peer.AppID == "" || p.launcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), peer.LaunchTimeout)
	defer cancel()

	extra := map[string]string{peer.LaunchKey: peer.LaunchValue}
	if _, err := p.launcher.Launch(ctx, peer.AppID, applaunch.LaunchModeGroup, extra); err != nil {
		logger := log.WithContext(ctx, p.logger)
		logger.Debug().Err(err).
			Str(log.FieldEvent, "plugin.launch_ignored").
			Msg("companion launch failed, continuing")
	}
}

// notifyPeer sends payload to the companion from a background goroutine,
// retrying until its port is registered or the notify timeout expires.
func (p *Plugin) notifyPeer(ctx context.Context, payload map[string]string) {
	peer := p.cfg.Peer
	if peer.AppID == "" {
		return
	}
	logger := log.WithContext(ctx, p.logger)

	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		ctx, cancel := context.WithTimeout(p.bgCtx, peer.NotifyTimeout)
		defer cancel()

		target, err := p.peerTarget(ctx)
		attempts := 0
		if err == nil {
			attempts, err = p.sendWithRetry(ctx, target, payload)
		}
		ev := logger.Debug()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str(log.FieldEvent, "plugin.peer_notify").
			Str(log.FieldRemoteApp, peer.AppID).
			Str(log.FieldRemotePort, target.port).
			Bool("announced", target.announced).
			Int("attempts", attempts).
			Msg("companion notification finished")
	}()
}

// peerAddr is where notifications go: the configured peer port, or the
// reply port the companion announced itself from.
type peerAddr struct {
	appID     string
	port      string
	announced bool
}

func (p *Plugin) peerTarget(ctx context.Context) (peerAddr, error) {
	target := peerAddr{appID: p.cfg.Peer.AppID, port: p.cfg.Peer.Port}
	err := p.do(ctx, func(s *state) error {
		target.announced = s.peerReady
		if s.peerPort != "" {
			target.port = s.peerPort
		}
		return nil
	})
	return target, err
}

// sendWithRetry skips the registration check while the companion is known
// to be announced; after a failed send it polls the port again.
func (p *Plugin) sendWithRetry(ctx context.Context, target peerAddr, payload map[string]string) (int, error) {
	ticker := time.NewTicker(p.cfg.Peer.NotifyInterval)
	defer ticker.Stop()

	attempts := 0
	skipCheck := target.announced
	var lastErr error
	for {
		ready := skipCheck
		if !ready {
			ok, err := p.endpoint.PeerReady(ctx, target.appID, target.port)
			if err != nil {
				lastErr = err
			}
			ready = err == nil && ok
		}
		if ready {
			attempts++
			lastErr = p.endpoint.Send(ctx, target.appID, target.port, payload)
			if lastErr == nil || !retryable(lastErr) {
				return attempts, lastErr
			}
			skipCheck = false
		}

		select {
		case <-ctx.Done():
			if lastErr == nil {
				return attempts, ctx.Err()
			}
			return attempts, errors.Join(ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, messageport.ErrPortNotFound) ||
		errors.Is(err, messageport.ErrIO) ||
		errors.Is(err, messageport.ErrResourceUnavailable)
}

// onPeerMessage runs on the transport goroutine. Only trusted messages from
// the configured companion are applied; the bundle is copied before the
// callback returns.
func (p *Plugin) onPeerMessage(msg messageport.Message) {
	if msg.RemoteAppID == "" || msg.RemoteAppID != p.cfg.Peer.AppID || !msg.Trusted {
		p.logger.Warn().
			Str(log.FieldEvent, "plugin.peer_message_rejected").
			Str(log.FieldRemoteApp, msg.RemoteAppID).
			Str(log.FieldRemotePort, msg.RemotePort).
			Bool("trusted", msg.Trusted).
			Msg("dropping message from unexpected sender")
		return
	}
	payload := msg.Bundle.Map()
	port := msg.RemotePort
	p.post(func(s *state) {
		s.peerReady = true
		if port != "" {
			s.peerPort = port
		}
		s.applyPeerEvent(payload, p.logger)
	})
}

func (s *state) applyPeerEvent(payload map[string]string, logger zerolog.Logger) {
	event := payload[peerKeyEvent]
	switch event {
	case peerEventReady, "":
		return
	case peerEventPosition, peerEventEnded:
	default:
		logger.Debug().Str(log.FieldEvent, "plugin.peer_event_unknown").Str("peer_event", event).Msg("ignoring companion event")
		return
	}

	id, err := strconv.ParseInt(payload[peerKeyTextureID], 10, 64)
	if err != nil {
		return
	}
	pl, ok := s.players[id]
	if !ok {
		return
	}
	switch event {
	case peerEventPosition:
		if pos, err := strconv.ParseInt(payload[peerKeyPosition], 10, 64); err == nil && pos >= 0 {
			pl.position = pos
		}
	case peerEventEnded:
		if pl.looping {
			pl.position = 0
		} else {
			pl.playing = false
		}
	}
}
