// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playerapi

import (
	"context"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/messages"
)

// Caller sends one request on a channel and returns the reply envelope.
type Caller interface {
	Call(ctx context.Context, channel string, message codec.Value) (codec.Value, error)
}

// Client is the calling side of the channels. Structured failures come back
// as *Error.
type Client struct {
	caller Caller
}

// NewClient returns a Client that sends through c.
func NewClient(c Caller) *Client {
	return &Client{caller: c}
}

var _ VideoPlayerAPI = (*Client)(nil)

func (c *Client) invoke(ctx context.Context, op string, message codec.Value) (codec.Value, error) {
	envelope, err := c.caller.Call(ctx, Channel(op), message)
	if err != nil {
		return codec.Null(), err
	}
	return DecodeReply(envelope)
}

func (c *Client) void(ctx context.Context, op string, message codec.Value) error {
	_, err := c.invoke(ctx, op, message)
	return err
}

func (c *Client) Initialize(ctx context.Context) error {
	return c.void(ctx, OpInitialize, codec.Null())
}

func (c *Client) Create(ctx context.Context, msg messages.CreateMessage) (messages.TextureMessage, error) {
	v, err := c.invoke(ctx, OpCreate, msg.ToValue())
	if err != nil {
		return messages.TextureMessage{}, err
	}
	return messages.TextureMessageFromValue(v), nil
}

func (c *Client) Dispose(ctx context.Context, msg messages.TextureMessage) error {
	return c.void(ctx, OpDispose, msg.ToValue())
}

func (c *Client) SetLooping(ctx context.Context, msg messages.LoopingMessage) error {
	return c.void(ctx, OpSetLooping, msg.ToValue())
}

func (c *Client) SetVolume(ctx context.Context, msg messages.VolumeMessage) error {
	return c.void(ctx, OpSetVolume, msg.ToValue())
}

func (c *Client) SetPlaybackSpeed(ctx context.Context, msg messages.PlaybackSpeedMessage) error {
	return c.void(ctx, OpSetPlaybackSpeed, msg.ToValue())
}

func (c *Client) Play(ctx context.Context, msg messages.TextureMessage) error {
	return c.void(ctx, OpPlay, msg.ToValue())
}

func (c *Client) Pause(ctx context.Context, msg messages.TextureMessage) error {
	return c.void(ctx, OpPause, msg.ToValue())
}

func (c *Client) Position(ctx context.Context, msg messages.TextureMessage) (messages.PositionMessage, error) {
	v, err := c.invoke(ctx, OpPosition, msg.ToValue())
	if err != nil {
		return messages.PositionMessage{}, err
	}
	return messages.PositionMessageFromValue(v), nil
}

func (c *Client) SeekTo(ctx context.Context, msg messages.PositionMessage) error {
	return c.void(ctx, OpSeekTo, msg.ToValue())
}

func (c *Client) SetMixWithOthers(ctx context.Context, msg messages.MixWithOthersMessage) error {
	return c.void(ctx, OpSetMixWithOthers, msg.ToValue())
}
