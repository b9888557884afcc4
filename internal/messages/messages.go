// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package messages defines the typed request and response records of the
// video player channels.
//
// Every record converts to a codec map with all of its fields present and
// integers in their 64-bit form. The FromValue decoders never fail: they read
// through codec.Lenient, so absent or mistyped fields keep their zero value.
package messages

import "github.com/ManuGH/playerbridge/internal/codec"

// Wire field names.
const (
	KeyTextureID     = "textureId"
	KeyAsset         = "asset"
	KeyURI           = "uri"
	KeyPackageName   = "packageName"
	KeyFormatHint    = "formatHint"
	KeyIsLooping     = "isLooping"
	KeyVolume        = "volume"
	KeySpeed         = "speed"
	KeyPosition      = "position"
	KeyMixWithOthers = "mixWithOthers"
)

// TextureMessage references a player instance.
type TextureMessage struct {
	TextureID int64
}

func (m TextureMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyTextureID, codec.Int64(m.TextureID)),
	)
}

func TextureMessageFromValue(v codec.Value) TextureMessage {
	f := codec.Lenient(v)
	return TextureMessage{TextureID: f.Int64(KeyTextureID)}
}

// CreateMessage carries the media source of a new player. Asset takes
// precedence over URI when non-empty.
type CreateMessage struct {
	Asset       string
	URI         string
	PackageName string
	FormatHint  string
}

func (m CreateMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyAsset, codec.String(m.Asset)),
		codec.Field(KeyURI, codec.String(m.URI)),
		codec.Field(KeyPackageName, codec.String(m.PackageName)),
		codec.Field(KeyFormatHint, codec.String(m.FormatHint)),
	)
}

func CreateMessageFromValue(v codec.Value) CreateMessage {
	f := codec.Lenient(v)
	return CreateMessage{
		Asset:       f.String(KeyAsset),
		URI:         f.String(KeyURI),
		PackageName: f.String(KeyPackageName),
		FormatHint:  f.String(KeyFormatHint),
	}
}

type LoopingMessage struct {
	TextureID int64
	IsLooping bool
}

func (m LoopingMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyTextureID, codec.Int64(m.TextureID)),
		codec.Field(KeyIsLooping, codec.Bool(m.IsLooping)),
	)
}

func LoopingMessageFromValue(v codec.Value) LoopingMessage {
	f := codec.Lenient(v)
	return LoopingMessage{
		TextureID: f.Int64(KeyTextureID),
		IsLooping: f.Bool(KeyIsLooping),
	}
}

type VolumeMessage struct {
	TextureID int64
	Volume    float64
}

func (m VolumeMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyTextureID, codec.Int64(m.TextureID)),
		codec.Field(KeyVolume, codec.Float64(m.Volume)),
	)
}

func VolumeMessageFromValue(v codec.Value) VolumeMessage {
	f := codec.Lenient(v)
	return VolumeMessage{
		TextureID: f.Int64(KeyTextureID),
		Volume:    f.Float64(KeyVolume),
	}
}

type PlaybackSpeedMessage struct {
	TextureID int64
	Speed     float64
}

func (m PlaybackSpeedMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyTextureID, codec.Int64(m.TextureID)),
		codec.Field(KeySpeed, codec.Float64(m.Speed)),
	)
}

func PlaybackSpeedMessageFromValue(v codec.Value) PlaybackSpeedMessage {
	f := codec.Lenient(v)
	return PlaybackSpeedMessage{
		TextureID: f.Int64(KeyTextureID),
		Speed:     f.Float64(KeySpeed),
	}
}

// PositionMessage carries a playback position in milliseconds.
type PositionMessage struct {
	TextureID int64
	Position  int64
}

func (m PositionMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyTextureID, codec.Int64(m.TextureID)),
		codec.Field(KeyPosition, codec.Int64(m.Position)),
	)
}

func PositionMessageFromValue(v codec.Value) PositionMessage {
	f := codec.Lenient(v)
	return PositionMessage{
		TextureID: f.Int64(KeyTextureID),
		Position:  f.Int64(KeyPosition),
	}
}

type MixWithOthersMessage struct {
	MixWithOthers bool
}

func (m MixWithOthersMessage) ToValue() codec.Value {
	return codec.NewMap(
		codec.Field(KeyMixWithOthers, codec.Bool(m.MixWithOthers)),
	)
}

func MixWithOthersMessageFromValue(v codec.Value) MixWithOthersMessage {
	f := codec.Lenient(v)
	return MixWithOthersMessage{MixWithOthers: f.Bool(KeyMixWithOthers)}
}
