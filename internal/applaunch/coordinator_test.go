// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package applaunch

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeControl struct {
	p *fakePlatform
}

func (c *fakeControl) SetAppID(appID string) error {
	c.p.calls = append(c.p.calls, "app:"+appID)
	return c.p.setErr
}

func (c *fakeControl) SetLaunchMode(mode LaunchMode) error {
	c.p.calls = append(c.p.calls, "mode:"+mode.String())
	return nil
}

func (c *fakeControl) AddExtraData(key, value string) error {
	c.p.calls = append(c.p.calls, "extra:"+key+"="+value)
	return nil
}

func (c *fakeControl) SendLaunchRequest(ctx context.Context) ResultCode {
	c.p.calls = append(c.p.calls, "send")
	if c.p.block {
		<-ctx.Done()
		return ResultTimedOut
	}
	return c.p.code
}

func (c *fakeControl) Destroy() {
	c.p.calls = append(c.p.calls, "destroy")
}

type fakePlatform struct {
	code      ResultCode
	block     bool
	setErr    error
	createErr error
	calls     []string
}

func (p *fakePlatform) NewControl() (Control, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &fakeControl{p: p}, nil
}

func TestLaunchBuildsRequestAndDestroysIt(t *testing.T) {
	p := &fakePlatform{code: ResultNone}
	c := NewCoordinator(p, zerolog.Nop(), 0)

	outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, map[string]string{
		"launch_intent": "player_companion",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)

	want := []string{"app:peer.app", "mode:group", "extra:launch_intent=player_companion", "send", "destroy"}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunchClassifiesEveryCode(t *testing.T) {
	codes := map[ResultCode]Outcome{
		ResultPermissionDenied: OutcomePermissionDenied,
		ResultInvalidParameter: OutcomeInvalidParameter,
		ResultOutOfMemory:      OutcomeOutOfMemory,
		ResultAppNotFound:      OutcomeAppNotFound,
		ResultLaunchRejected:   OutcomeLaunchRejected,
		ResultLaunchFailed:     OutcomeLaunchFailed,
		ResultTimedOut:         OutcomeTimedOut,
		ResultCode(-999):       OutcomeUnknownFailure,
	}
	for code, want := range codes {
		t.Run(code.String(), func(t *testing.T) {
			var buf bytes.Buffer
			p := &fakePlatform{code: code}
			c := NewCoordinator(p, zerolog.New(&buf), 0)

			outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
			require.Equal(t, want, outcome)

			var le *LaunchError
			require.True(t, errors.As(err, &le))
			require.Equal(t, code, le.Code)
			require.Equal(t, want, le.Outcome)
			require.Equal(t, "destroy", p.calls[len(p.calls)-1])
			require.Contains(t, buf.String(), code.String())
		})
	}
}

func TestLaunchBuildFailures(t *testing.T) {
	t.Run("control creation", func(t *testing.T) {
		cause := errors.New("no memory")
		c := NewCoordinator(&fakePlatform{createErr: cause}, zerolog.Nop(), 0)
		outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
		require.Equal(t, OutcomeOutOfMemory, outcome)
		require.ErrorIs(t, err, cause)
	})

	t.Run("closed platform", func(t *testing.T) {
		c := NewCoordinator(&fakePlatform{createErr: ErrPlatformClosed}, zerolog.Nop(), 0)
		outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
		require.Equal(t, OutcomeLaunchRejected, outcome)
		require.ErrorIs(t, err, ErrPlatformClosed)

		var le *LaunchError
		require.ErrorAs(t, err, &le)
		require.Equal(t, ResultLaunchRejected, le.Code)
	})

	t.Run("invalid app id", func(t *testing.T) {
		p := &fakePlatform{setErr: errors.New("bad id")}
		c := NewCoordinator(p, zerolog.Nop(), 0)
		outcome, err := c.Launch(context.Background(), "", LaunchModeGroup, nil)
		require.Equal(t, OutcomeInvalidParameter, outcome)
		require.Error(t, err)
		require.Equal(t, []string{"app:", "destroy"}, p.calls)
	})
}

func TestLaunchIsBoundedByTimeout(t *testing.T) {
	p := &fakePlatform{block: true}
	c := NewCoordinator(p, zerolog.Nop(), 20*time.Millisecond)

	start := time.Now()
	outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
	require.Equal(t, OutcomeTimedOut, outcome)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}
