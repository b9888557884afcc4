// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playerbridge/internal/applaunch"
	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/messageport"
	"github.com/ManuGH/playerbridge/internal/messages"
	"github.com/ManuGH/playerbridge/internal/messenger"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

const (
	hostApp = "host.app"
	peerApp = "peer.app"
)

type harness struct {
	plugin  *Plugin
	local   *messenger.Local
	network *messageport.MemoryNetwork
}

func newHarness(t *testing.T, cfg Config, transport messageport.Transport, launcher Launcher) *harness {
	t.Helper()
	network := messageport.NewMemoryNetwork()
	if transport == nil {
		tr := network.Transport(hostApp)
		t.Cleanup(func() { _ = tr.Close() })
		transport = tr
	}
	p := New(cfg, transport, launcher, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, p.Close(ctx))
	})

	local := messenger.NewLocal()
	playerapi.Setup(local, p, playerapi.WithLogger(zerolog.Nop()))
	return &harness{plugin: p, local: local, network: network}
}

// call sends one command and returns the reply envelope as JSON.
func (h *harness) call(t *testing.T, op string, message codec.Value) string {
	t.Helper()
	reply, err := h.local.Call(context.Background(), playerapi.Channel(op), message)
	require.NoError(t, err)
	out, err := reply.MarshalJSON()
	require.NoError(t, err)
	return string(out)
}

func createMessage(asset, uri string) codec.Value {
	return codec.NewMap(
		codec.Field(messages.KeyAsset, codec.String(asset)),
		codec.Field(messages.KeyURI, codec.String(uri)),
	)
}

func TestCreateFromURI(t *testing.T) {
	h := newHarness(t, Config{}, nil, nil)

	got := h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4"))
	require.Equal(t, `{"result":{"textureId":0}}`, got)

	got = h.call(t, playerapi.OpCreate, createMessage("", "file:///b.mp4"))
	require.Equal(t, `{"result":{"textureId":1}}`, got)
}

func TestCreateFromAsset(t *testing.T) {
	t.Run("no resource dir", func(t *testing.T) {
		h := newHarness(t, Config{}, nil, nil)
		got := h.call(t, playerapi.OpCreate, createMessage("videos/a.mp4", ""))
		require.Equal(t, `{"error":{"message":"failed to get resource path","code":"","details":null}}`, got)
	})

	t.Run("resource dir", func(t *testing.T) {
		dir := t.TempDir()
		h := newHarness(t, Config{ResourceDir: dir}, nil, nil)
		got := h.call(t, playerapi.OpCreate, createMessage("videos/a.mp4", ""))
		require.Equal(t, `{"result":{"textureId":0}}`, got)

		uri, err := h.plugin.sourceURI(messages.CreateMessage{Asset: "videos/a.mp4"})
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "flutter_assets", "videos", "a.mp4"), uri)
	})

	t.Run("escaping asset", func(t *testing.T) {
		h := newHarness(t, Config{ResourceDir: t.TempDir()}, nil, nil)
		reply, err := h.local.Call(context.Background(), playerapi.Channel(playerapi.OpCreate), createMessage("../../etc/passwd", ""))
		require.NoError(t, err)
		_, err = playerapi.DecodeReply(reply)
		var apiErr *playerapi.Error
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, CodeInvalidAsset, apiErr.Code)
	})
}

func TestSetMixWithOthers(t *testing.T) {
	h := newHarness(t, Config{}, nil, nil)

	got := h.call(t, playerapi.OpSetMixWithOthers, codec.NewMap(
		codec.Field(messages.KeyMixWithOthers, codec.Bool(true)),
	))
	require.Equal(t, `{"result":null}`, got)

	opts, err := h.plugin.Options(context.Background())
	require.NoError(t, err)
	require.True(t, opts.MixWithOthers)
}

func TestInitializeSwallowsRegistrationFailure(t *testing.T) {
	tr := messageport.NewMemoryNetwork().Transport(hostApp)
	require.NoError(t, tr.Close())

	h := newHarness(t, Config{}, tr, nil)
	got := h.call(t, playerapi.OpInitialize, codec.Null())
	require.Equal(t, `{"result":null}`, got)
	require.False(t, h.plugin.Ready())
}

func TestInitializeRegistersLocalPort(t *testing.T) {
	h := newHarness(t, Config{}, nil, nil)
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpInitialize, codec.Null()))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpInitialize, codec.Null()))
	require.True(t, h.plugin.Ready())
}

func TestPlayerOperations(t *testing.T) {
	h := newHarness(t, Config{}, nil, nil)
	require.Equal(t, `{"result":{"textureId":0}}`, h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4")))

	texture := messages.TextureMessage{TextureID: 0}.ToValue()
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpPlay, texture))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpSetLooping, messages.LoopingMessage{IsLooping: true}.ToValue()))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpSetVolume, messages.VolumeMessage{Volume: 0.5}.ToValue()))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpSetPlaybackSpeed, messages.PlaybackSpeedMessage{Speed: 2}.ToValue()))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpSeekTo, messages.PositionMessage{Position: 1500}.ToValue()))
	require.Equal(t, `{"result":{"textureId":0,"position":1500}}`, h.call(t, playerapi.OpPosition, texture))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpPause, texture))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpDispose, texture))

	got := h.call(t, playerapi.OpPosition, texture)
	require.Equal(t, `{"error":{"message":"no player with texture id 0","code":"unknown_texture","details":null}}`, got)
}

type recordingLauncher struct {
	mu     sync.Mutex
	calls  []launchCall
	onCall func()
}

type launchCall struct {
	appID string
	mode  applaunch.LaunchMode
	extra map[string]string
}

func (l *recordingLauncher) Launch(_ context.Context, appID string, mode applaunch.LaunchMode, extra map[string]string) (applaunch.Outcome, error) {
	l.mu.Lock()
	l.calls = append(l.calls, launchCall{appID: appID, mode: mode, extra: extra})
	onCall := l.onCall
	l.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	return applaunch.OutcomeAppNotFound, &applaunch.LaunchError{AppID: appID, Outcome: applaunch.OutcomeAppNotFound}
}

func TestSeekToLaunchesAndNotifiesPeer(t *testing.T) {
	network := messageport.NewMemoryNetwork()
	hostT := network.Transport(hostApp)
	peerT := network.Transport(peerApp)
	t.Cleanup(func() {
		_ = hostT.Close()
		_ = peerT.Close()
	})

	received := make(chan map[string]string, 1)
	launcher := &recordingLauncher{onCall: func() {
		_, _ = peerT.RegisterLocalPort(DefaultPeerPort, func(_ int, msg messageport.Message) {
			received <- msg.Bundle.Map()
		})
	}}

	h := newHarness(t, Config{Peer: PeerConfig{AppID: peerApp, NotifyInterval: 10 * time.Millisecond}}, hostT, launcher)
	require.Equal(t, `{"result":{"textureId":0}}`, h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4")))

	got := h.call(t, playerapi.OpSeekTo, messages.PositionMessage{TextureID: 0, Position: 2500}.ToValue())
	require.Equal(t, `{"result":null}`, got)

	select {
	case payload := <-received:
		require.Equal(t, map[string]string{"event": "seekTo", "textureId": "0", "position": "2500"}, payload)
	case <-time.After(3 * time.Second):
		t.Fatal("companion not notified")
	}

	launcher.mu.Lock()
	defer launcher.mu.Unlock()
	require.Len(t, launcher.calls, 1)
	require.Equal(t, peerApp, launcher.calls[0].appID)
	require.Equal(t, applaunch.LaunchModeGroup, launcher.calls[0].mode)
	require.Equal(t, map[string]string{DefaultLaunchKey: DefaultLaunchValue}, launcher.calls[0].extra)
}

func TestSeekToWithoutPeerSucceeds(t *testing.T) {
	network := messageport.NewMemoryNetwork()
	hostT := network.Transport(hostApp)
	t.Cleanup(func() { _ = hostT.Close() })

	h := newHarness(t, Config{Peer: PeerConfig{
		AppID:          peerApp,
		NotifyTimeout:  50 * time.Millisecond,
		NotifyInterval: 10 * time.Millisecond,
	}}, hostT, &recordingLauncher{})
	require.Equal(t, `{"result":{"textureId":0}}`, h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4")))
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpSeekTo, messages.PositionMessage{Position: 10}.ToValue()))
}

func TestPeerMessagesUpdateState(t *testing.T) {
	network := messageport.NewMemoryNetwork()
	hostT := network.Transport(hostApp)
	peerT := network.Transport(peerApp)
	t.Cleanup(func() {
		_ = hostT.Close()
		_ = peerT.Close()
	})

	h := newHarness(t, Config{Peer: PeerConfig{AppID: peerApp}}, hostT, nil)
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpInitialize, codec.Null()))
	require.Equal(t, `{"result":{"textureId":0}}`, h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4")))

	peer := messageport.NewCommunicator("peer_port", peerT, nil, zerolog.Nop())
	require.NoError(t, peer.Send(context.Background(), hostApp, messageport.DefaultLocalPort, map[string]string{
		"event": "position", "textureId": "0", "position": "42",
	}))

	require.Eventually(t, func() bool {
		pos, err := h.plugin.Position(context.Background(), messages.TextureMessage{TextureID: 0})
		return err == nil && pos.Position == 42
	}, 2*time.Second, 10*time.Millisecond)

	ready, err := h.plugin.PeerReady(context.Background())
	require.NoError(t, err)
	require.True(t, ready)
}

func TestPeerMessagesFromOtherSendersAreDropped(t *testing.T) {
	network := messageport.NewMemoryNetwork()
	hostT := network.Transport(hostApp)
	rogueT := network.Transport("rogue.app")
	peerT := network.Transport(peerApp)
	t.Cleanup(func() {
		_ = hostT.Close()
		_ = rogueT.Close()
		_ = peerT.Close()
	})

	h := newHarness(t, Config{Peer: PeerConfig{AppID: peerApp}}, hostT, nil)
	require.Equal(t, `{"result":null}`, h.call(t, playerapi.OpInitialize, codec.Null()))
	require.Equal(t, `{"result":{"textureId":0}}`, h.call(t, playerapi.OpCreate, createMessage("", "file:///a.mp4")))

	// Untrusted message claiming to be the companion.
	b, err := messageport.BundleFromMap(map[string]string{"event": "position", "textureId": "0", "position": "777"})
	require.NoError(t, err)
	h.plugin.onPeerMessage(messageport.Message{RemoteAppID: peerApp, RemotePort: "peer_port", Bundle: b})

	ready, err := h.plugin.PeerReady(context.Background())
	require.NoError(t, err)
	require.False(t, ready)

	rogue := messageport.NewCommunicator("rogue_port", rogueT, nil, zerolog.Nop())
	require.NoError(t, rogue.Send(context.Background(), hostApp, messageport.DefaultLocalPort, map[string]string{
		"event": "position", "textureId": "0", "position": "99999",
	}))

	// Deliveries to one port are ordered: once the companion's ready is
	// applied the rogue message has been handled.
	peer := messageport.NewCommunicator("peer_port", peerT, nil, zerolog.Nop())
	require.NoError(t, peer.Initialize())
	t.Cleanup(func() { _ = peer.Close() })
	require.NoError(t, peer.Send(context.Background(), hostApp, messageport.DefaultLocalPort, map[string]string{"event": "ready"}))
	require.Eventually(t, func() bool {
		ready, err := h.plugin.PeerReady(context.Background())
		return err == nil && ready
	}, 2*time.Second, 10*time.Millisecond)

	pos, err := h.plugin.Position(context.Background(), messages.TextureMessage{TextureID: 0})
	require.NoError(t, err)
	require.Zero(t, pos.Position)

	target, err := h.plugin.peerTarget(context.Background())
	require.NoError(t, err)
	require.Equal(t, peerAddr{appID: peerApp, port: "peer_port", announced: true}, target)
}

func TestClosedPluginRejectsCommands(t *testing.T) {
	p := New(Config{}, messageport.NewMemoryNetwork().Transport(hostApp), nil, zerolog.Nop())
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	_, err := p.Options(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, p.SetMixWithOthers(context.Background(), messages.MixWithOthersMessage{}), ErrClosed)
}
