// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messages"
	"github.com/ManuGH/playerbridge/internal/platform/paths"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

const msgResourcePath = "failed to get resource path"

// Initialize registers the local port. A registration failure is logged by
// the endpoint and deliberately not returned, so the command still succeeds.
func (p *Plugin) Initialize(ctx context.Context) error {
	return p.do(ctx, func(*state) error {
		if err := p.endpoint.Initialize(); err != nil {
			logger := log.WithContext(ctx, p.logger)
			logger.Warn().Err(err).
				Str(log.FieldEvent, "plugin.initialize_degraded").
				Msg("continuing without local port")
		}
		return nil
	})
}

func (p *Plugin) Create(ctx context.Context, msg messages.CreateMessage) (messages.TextureMessage, error) {
	uri, err := p.sourceURI(msg)
	if err != nil {
		return messages.TextureMessage{}, err
	}

	var out messages.TextureMessage
	err = p.do(ctx, func(s *state) error {
		id := s.nextID
		s.nextID++
		s.players[id] = &player{id: id, uri: uri, volume: 1, speed: 1}
		out.TextureID = id
		return nil
	})
	if err != nil {
		return messages.TextureMessage{}, err
	}
	logger := log.WithContext(ctx, p.logger)
	logger.Info().
		Str(log.FieldEvent, "player.created").
		Int64(log.FieldTextureID, out.TextureID).
		Str("uri", uri).
		Msg("player created")
	return out, nil
}

// sourceURI returns the URI for msg: the asset inside the resource tree
// when an asset is given, the URI otherwise.
func (p *Plugin) sourceURI(msg messages.CreateMessage) (string, error) {
	if msg.Asset == "" {
		return msg.URI, nil
	}
	path, err := paths.ResolveAsset(p.cfg.ResourceDir, msg.Asset)
	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, paths.ErrNoResourceDir):
		return "", playerapi.NewError("", msgResourcePath)
	default:
		return "", playerapi.NewError(CodeInvalidAsset, err.Error())
	}
}

func (p *Plugin) Dispose(ctx context.Context, msg messages.TextureMessage) error {
	return p.do(ctx, func(s *state) error {
		if _, err := s.player(msg.TextureID); err != nil {
			return err
		}
		delete(s.players, msg.TextureID)
		return nil
	})
}

func (p *Plugin) SetLooping(ctx context.Context, msg messages.LoopingMessage) error {
	return p.update(ctx, msg.TextureID, func(pl *player) { pl.looping = msg.IsLooping })
}

func (p *Plugin) SetVolume(ctx context.Context, msg messages.VolumeMessage) error {
	return p.update(ctx, msg.TextureID, func(pl *player) { pl.volume = clamp(msg.Volume, 0, 1) })
}

func (p *Plugin) SetPlaybackSpeed(ctx context.Context, msg messages.PlaybackSpeedMessage) error {
	return p.update(ctx, msg.TextureID, func(pl *player) { pl.speed = msg.Speed })
}

func (p *Plugin) Play(ctx context.Context, msg messages.TextureMessage) error {
	return p.update(ctx, msg.TextureID, func(pl *player) { pl.playing = true })
}

func (p *Plugin) Pause(ctx context.Context, msg messages.TextureMessage) error {
	return p.update(ctx, msg.TextureID, func(pl *player) { pl.playing = false })
}

func (p *Plugin) Position(ctx context.Context, msg messages.TextureMessage) (messages.PositionMessage, error) {
	out := messages.PositionMessage{TextureID: msg.TextureID}
	err := p.do(ctx, func(s *state) error {
		pl, err := s.player(msg.TextureID)
		if err != nil {
			return err
		}
		out.Position = pl.position
		return nil
	})
	if err != nil {
		return messages.PositionMessage{}, err
	}
	return out, nil
}

// SeekTo records the position, launches the companion and hands the seek
// to it in the background. Launch and notification failures are logged
// only.
func (p *Plugin) SeekTo(ctx context.Context, msg messages.PositionMessage) error {
	if err := p.update(ctx, msg.TextureID, func(pl *player) { pl.position = max(msg.Position, 0) }); err != nil {
		return err
	}
	p.launchPeer(ctx)
	p.notifyPeer(ctx, map[string]string{
		peerKeyEvent:     peerEventSeekTo,
		peerKeyTextureID: fmt.Sprint(msg.TextureID),
		peerKeyPosition:  fmt.Sprint(max(msg.Position, 0)),
	})
	return nil
}

func (p *Plugin) SetMixWithOthers(ctx context.Context, msg messages.MixWithOthersMessage) error {
	return p.do(ctx, func(s *state) error {
		s.options.MixWithOthers = msg.MixWithOthers
		return nil
	})
}

func (p *Plugin) update(ctx context.Context, id int64, fn func(*player)) error {
	return p.do(ctx, func(s *state) error {
		pl, err := s.player(id)
		if err != nil {
			return err
		}
		fn(pl)
		return nil
	})
}

func (s *state) player(id int64) (*player, error) {
	pl, ok := s.players[id]
	if !ok {
		return nil, playerapi.NewError(CodeUnknownTexture, fmt.Sprintf("no player with texture id %d", id))
	}
	return pl, nil
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
