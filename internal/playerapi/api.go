// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playerapi binds the video player operations to their named message
// channels.
//
// Each channel carries one codec.Value request and receives exactly one reply
// envelope: {"result": v} on success, {"error": {...}} when the operation
// returned an *Error. Any other error is not converted into a reply; it is
// returned to the messenger as fatal for that request.
package playerapi

import (
	"context"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/messages"
)

// ChannelPrefix namespaces every operation channel.
const ChannelPrefix = "dev.flutter.pigeon.VideoPlayerApi."

// Operation names (channel suffixes).
const (
	OpInitialize       = "initialize"
	OpCreate           = "create"
	OpDispose          = "dispose"
	OpSetLooping       = "setLooping"
	OpSetVolume        = "setVolume"
	OpSetPlaybackSpeed = "setPlaybackSpeed"
	OpPlay             = "play"
	OpPause            = "pause"
	OpPosition         = "position"
	OpSeekTo           = "seekTo"
	OpSetMixWithOthers = "setMixWithOthers"
)

// Operations lists every supported operation in binding order.
var Operations = []string{
	OpInitialize,
	OpCreate,
	OpDispose,
	OpSetLooping,
	OpSetVolume,
	OpSetPlaybackSpeed,
	OpPlay,
	OpPause,
	OpPosition,
	OpSeekTo,
	OpSetMixWithOthers,
}

// Channel returns the wire channel name of op.
func Channel(op string) string {
	return ChannelPrefix + op
}

// VideoPlayerAPI is implemented by the plugin host. Methods are invoked
// synchronously on the delivering goroutine, once per request.
type VideoPlayerAPI interface {
	Initialize(ctx context.Context) error
	Create(ctx context.Context, msg messages.CreateMessage) (messages.TextureMessage, error)
	Dispose(ctx context.Context, msg messages.TextureMessage) error
	SetLooping(ctx context.Context, msg messages.LoopingMessage) error
	SetVolume(ctx context.Context, msg messages.VolumeMessage) error
	SetPlaybackSpeed(ctx context.Context, msg messages.PlaybackSpeedMessage) error
	Play(ctx context.Context, msg messages.TextureMessage) error
	Pause(ctx context.Context, msg messages.TextureMessage) error
	Position(ctx context.Context, msg messages.TextureMessage) (messages.PositionMessage, error)
	SeekTo(ctx context.Context, msg messages.PositionMessage) error
	SetMixWithOthers(ctx context.Context, msg messages.MixWithOthersMessage) error
}

// Reply delivers the envelope of one request back to its sender.
type Reply func(envelope codec.Value)

// MessageHandler serves one request. A non-nil error means no reply was sent.
type MessageHandler func(ctx context.Context, message codec.Value, reply Reply) error

// BinaryMessenger routes channel messages to handlers. Setting a nil handler
// removes the channel's binding.
type BinaryMessenger interface {
	SetMessageHandler(channel string, handler MessageHandler)
}
