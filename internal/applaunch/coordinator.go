// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package applaunch asks the platform to start or activate a peer
// application and classifies the platform's answer.
package applaunch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/metrics"
	"github.com/ManuGH/playerbridge/internal/telemetry"
)

const tracerName = "github.com/ManuGH/playerbridge/internal/applaunch"

// Control is one launch request. It is single-use and must be destroyed.
type Control interface {
	SetAppID(appID string) error
	SetLaunchMode(mode LaunchMode) error
	AddExtraData(key, value string) error
	SendLaunchRequest(ctx context.Context) ResultCode
	Destroy()
}

// Platform creates launch requests. NewControl fails with ErrPlatformClosed
// once the platform stopped accepting launches.
type Platform interface {
	NewControl() (Control, error)
}

// ErrPlatformClosed is returned by a Platform that no longer launches.
var ErrPlatformClosed = errors.New("launch platform closed")

// LaunchError describes a launch whose outcome is not OutcomeSuccess.
type LaunchError struct {
	AppID   string
	Mode    LaunchMode
	Code    ResultCode
	Outcome Outcome
	Err     error // set when the request could not be built
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("launch %s (%s): %s: %v", e.AppID, e.Mode, e.Outcome, e.Err)
	}
	return fmt.Sprintf("launch %s (%s): %s (%s)", e.AppID, e.Mode, e.Outcome, e.Code)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Coordinator issues launch requests on a Platform.
type Coordinator struct {
	platform Platform
	logger   zerolog.Logger
	tracer   trace.Tracer
	timeout  time.Duration
}

// NewCoordinator creates a coordinator. A positive timeout bounds every
// launch request.
func NewCoordinator(p Platform, logger zerolog.Logger, timeout time.Duration) *Coordinator {
	return &Coordinator{
		platform: p,
		logger:   logger,
		tracer:   telemetry.Tracer(tracerName),
		timeout:  timeout,
	}
}

// Launch requests appID in mode with extra attached and classifies the
// result. The request is destroyed before Launch returns. Every outcome is
// logged and counted; a non-success outcome is also returned as
// *LaunchError for the caller to act on or ignore.
func (c *Coordinator) Launch(ctx context.Context, appID string, mode LaunchMode, extra map[string]string) (Outcome, error) {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := c.tracer.Start(ctx, "applaunch.Launch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	code, buildErr := c.send(ctx, appID, mode, extra)
	outcome := Classify(code)

	span.SetAttributes(telemetry.LaunchAttributes(appID, mode.String(), outcome.String())...)
	metrics.RecordLaunch(mode.String(), outcome.String(), time.Since(start))

	logger := log.WithContext(ctx, c.logger)
	ev := logger.Info()
	if outcome != OutcomeSuccess {
		ev = logger.Warn()
	}
	ev.Str(log.FieldEvent, "launch.result").
		Str(log.FieldRemoteApp, appID).
		Str(log.FieldLaunchMode, mode.String()).
		Int(log.FieldResultCode, int(code)).
		Str(log.FieldOutcome, outcome.String()).
		AnErr("build_error", buildErr).
		Dur("duration", time.Since(start)).
		Msg(code.String())

	if outcome == OutcomeSuccess {
		return outcome, nil
	}
	err := &LaunchError{AppID: appID, Mode: mode, Code: code, Outcome: outcome, Err: buildErr}
	span.SetStatus(codes.Error, err.Error())
	return outcome, err
}

func (c *Coordinator) send(ctx context.Context, appID string, mode LaunchMode, extra map[string]string) (ResultCode, error) {
	ctl, err := c.platform.NewControl()
	switch {
	case errors.Is(err, ErrPlatformClosed):
		return ResultLaunchRejected, err
	case err != nil:
		return ResultOutOfMemory, err
	}
	defer ctl.Destroy()

	if err := ctl.SetAppID(appID); err != nil {
		return ResultInvalidParameter, err
	}
	if err := ctl.SetLaunchMode(mode); err != nil {
		return ResultInvalidParameter, err
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ctl.AddExtraData(k, extra[k]); err != nil {
			return ResultInvalidParameter, err
		}
	}
	return ctl.SendLaunchRequest(ctx), nil
}
