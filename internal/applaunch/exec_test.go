// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package applaunch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newExecPlatform(t *testing.T, apps map[string]App) (*ExecPlatform, string) {
	t.Helper()
	dir := t.TempDir()
	p := NewExecPlatform(ExecOptions{
		RuntimeDir: dir,
		Apps:       apps,
		Grace:      200 * time.Millisecond,
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Close(ctx)
	})
	return p, dir
}

func TestExecPlatformLaunchesAndActivates(t *testing.T) {
	p, dir := newExecPlatform(t, map[string]App{
		"peer.app": {Command: "sleep", Args: []string{"30"}},
	})
	c := NewCoordinator(p, zerolog.Nop(), time.Second)

	outcome, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.True(t, p.Running("peer.app"))

	pid, ok := p.PID("peer.app")
	require.True(t, ok)
	data, err := os.ReadFile(filepath.Join(dir, "peer.app", pidFileName))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(pid), strings.TrimSpace(string(data)))

	outcome, err = c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	again, _ := p.PID("peer.app")
	require.Equal(t, pid, again)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
	require.False(t, p.Running("peer.app"))
	_, err = os.Stat(filepath.Join(dir, "peer.app", pidFileName))
	require.True(t, os.IsNotExist(err))

	outcome, err = c.Launch(context.Background(), "peer.app", LaunchModeGroup, nil)
	require.Equal(t, OutcomeLaunchRejected, outcome)
	require.ErrorIs(t, err, ErrPlatformClosed)
}

func TestExecPlatformPassesLaunchEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env.json")
	p, dir := newExecPlatform(t, map[string]App{
		"peer.app": {
			Command: "sh",
			Args: []string{"-c", `printf '%s\n%s\n%s\n%s' "$PLAYERBRIDGE_APP_ID" "$PLAYERBRIDGE_RUNTIME_DIR" "$PLAYERBRIDGE_LAUNCH_MODE" "$PLAYERBRIDGE_LAUNCH_EXTRA" > "$OUT"`},
			Env:  map[string]string{"OUT": out},
		},
	})
	c := NewCoordinator(p, zerolog.Nop(), time.Second)

	_, err := c.Launch(context.Background(), "peer.app", LaunchModeGroup, map[string]string{"launch_intent": "player_companion"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !p.Running("peer.app") }, 5*time.Second, 10*time.Millisecond)
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "peer.app", lines[0])
	require.Equal(t, dir, lines[1])
	require.Equal(t, "group", lines[2])

	var extra map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &extra))
	require.Equal(t, map[string]string{"launch_intent": "player_companion"}, extra)
}

func TestExecPlatformErrorMapping(t *testing.T) {
	p, _ := newExecPlatform(t, map[string]App{
		"missing.bin": {Command: "/nonexistent/playerbridge-peer"},
	})
	c := NewCoordinator(p, zerolog.Nop(), time.Second)

	tests := []struct {
		name  string
		appID string
		mode  LaunchMode
		want  Outcome
	}{
		{name: "unregistered app", appID: "unknown.app", mode: LaunchModeGroup, want: OutcomeAppNotFound},
		{name: "missing binary", appID: "missing.bin", mode: LaunchModeGroup, want: OutcomeAppNotFound},
		{name: "empty app id", appID: "", mode: LaunchModeGroup, want: OutcomeInvalidParameter},
		{name: "unknown mode", appID: "missing.bin", mode: LaunchMode(9), want: OutcomeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := c.Launch(context.Background(), tt.appID, tt.mode, nil)
			require.Error(t, err)
			require.Equal(t, tt.want, outcome)
		})
	}
}

func TestExecPlatformExpiredContext(t *testing.T) {
	p, _ := newExecPlatform(t, map[string]App{"peer.app": {Command: "true"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	ctl, err := p.NewControl()
	require.NoError(t, err)
	defer ctl.Destroy()
	require.NoError(t, ctl.SetAppID("peer.app"))
	require.Equal(t, ResultTimedOut, ctl.SendLaunchRequest(ctx))
}
