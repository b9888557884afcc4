// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playerapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messages"
	"github.com/ManuGH/playerbridge/internal/metrics"
	"github.com/ManuGH/playerbridge/internal/telemetry"
)

const tracerName = "github.com/ManuGH/playerbridge/internal/playerapi"

// Option customizes Setup.
type Option func(*dispatcher)

// WithLogger sets the logger used for dispatch events.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *dispatcher) { d.logger = logger }
}

// WithTracer overrides the tracer used for command spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *dispatcher) { d.tracer = tracer }
}

type call func(ctx context.Context, api VideoPlayerAPI, message codec.Value) (codec.Value, error)

type binding struct {
	op   string
	call call
}

// Request records are decoded leniently before the call; initialize takes
// no argument and skips decoding.
var bindings = []binding{
	{OpInitialize, func(ctx context.Context, api VideoPlayerAPI, _ codec.Value) (codec.Value, error) {
		return codec.Null(), api.Initialize(ctx)
	}},
	{OpCreate, valueCall(messages.CreateMessageFromValue, VideoPlayerAPI.Create)},
	{OpDispose, voidCall(messages.TextureMessageFromValue, VideoPlayerAPI.Dispose)},
	{OpSetLooping, voidCall(messages.LoopingMessageFromValue, VideoPlayerAPI.SetLooping)},
	{OpSetVolume, voidCall(messages.VolumeMessageFromValue, VideoPlayerAPI.SetVolume)},
	{OpSetPlaybackSpeed, voidCall(messages.PlaybackSpeedMessageFromValue, VideoPlayerAPI.SetPlaybackSpeed)},
	{OpPlay, voidCall(messages.TextureMessageFromValue, VideoPlayerAPI.Play)},
	{OpPause, voidCall(messages.TextureMessageFromValue, VideoPlayerAPI.Pause)},
	{OpPosition, valueCall(messages.TextureMessageFromValue, VideoPlayerAPI.Position)},
	{OpSeekTo, voidCall(messages.PositionMessageFromValue, VideoPlayerAPI.SeekTo)},
	{OpSetMixWithOthers, voidCall(messages.MixWithOthersMessageFromValue, VideoPlayerAPI.SetMixWithOthers)},
}

func voidCall[Req any](
	decode func(codec.Value) Req,
	method func(VideoPlayerAPI, context.Context, Req) error,
) call {
	return func(ctx context.Context, api VideoPlayerAPI, message codec.Value) (codec.Value, error) {
		return codec.Null(), method(api, ctx, decode(message))
	}
}

func valueCall[Req any, Resp interface{ ToValue() codec.Value }](
	decode func(codec.Value) Req,
	method func(VideoPlayerAPI, context.Context, Req) (Resp, error),
) call {
	return func(ctx context.Context, api VideoPlayerAPI, message codec.Value) (codec.Value, error) {
		out, err := method(api, ctx, decode(message))
		if err != nil {
			return codec.Null(), err
		}
		return out.ToValue(), nil
	}
}

// Setup installs one handler per operation on m. A nil api removes every
// binding instead.
func Setup(m BinaryMessenger, api VideoPlayerAPI, opts ...Option) {
	if api == nil {
		for _, b := range bindings {
			m.SetMessageHandler(Channel(b.op), nil)
		}
		return
	}

	d := &dispatcher{
		api:    api,
		logger: log.WithComponent("playerapi"),
		tracer: telemetry.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, b := range bindings {
		m.SetMessageHandler(Channel(b.op), d.handler(b))
	}
}

type dispatcher struct {
	api    VideoPlayerAPI
	logger zerolog.Logger
	tracer trace.Tracer
}

func (d *dispatcher) handler(b binding) MessageHandler {
	channel := Channel(b.op)
	return func(ctx context.Context, message codec.Value, reply Reply) error {
		start := time.Now()

		ctx = log.ContextWithCorrelationID(ctx, uuid.NewString())
		ctx = log.ContextWithChannel(ctx, channel)
		ctx, span := d.tracer.Start(ctx, "VideoPlayerApi."+b.op,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(telemetry.CommandAttributes(channel, b.op)...),
		)
		defer span.End()

		logger := log.WithContext(ctx, d.logger).With().Str(log.FieldOperation, b.op).Logger()
		ctx = logger.WithContext(ctx)

		result, err := b.call(ctx, d.api, message)
		if err != nil {
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.String(telemetry.CommandOutcomeKey, metrics.OutcomeFatal))
				metrics.RecordCommand(b.op, metrics.OutcomeFatal, time.Since(start))
				logger.Error().Err(err).
					Str(log.FieldEvent, "command.fatal").
					Str(log.FieldOutcome, metrics.OutcomeFatal).
					Msg("operation failed without a structured error, no reply sent")
				return fmt.Errorf("%s: %w", channel, err)
			}

			span.SetStatus(codes.Error, apiErr.Message)
			span.SetAttributes(
				attribute.String(telemetry.CommandOutcomeKey, metrics.OutcomeError),
				attribute.String(telemetry.CommandErrorCodeKey, apiErr.Code),
			)
			metrics.RecordCommand(b.op, metrics.OutcomeError, time.Since(start))
			logger.Warn().
				Str(log.FieldEvent, "command.error").
				Str(log.FieldOutcome, metrics.OutcomeError).
				Str("code", apiErr.Code).
				Msg(apiErr.Message)
			send(reply, ErrorEnvelope(apiErr))
			return nil
		}

		span.SetAttributes(attribute.String(telemetry.CommandOutcomeKey, metrics.OutcomeOK))
		metrics.RecordCommand(b.op, metrics.OutcomeOK, time.Since(start))
		logger.Debug().
			Str(log.FieldEvent, "command.ok").
			Dur("duration", time.Since(start)).
			Msg("operation handled")
		send(reply, ResultEnvelope(result))
		return nil
	}
}

func send(reply Reply, envelope codec.Value) {
	if reply != nil {
		reply(envelope)
	}
}
