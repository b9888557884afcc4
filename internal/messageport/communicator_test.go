// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type failingTransport struct {
	Transport
	code ErrorCode
}

func (f failingTransport) RegisterLocalPort(string, Callback) (int, error) {
	return 0, portError("register", f.code, nil)
}

// stuckTransport refuses the first unregister.
type stuckTransport struct {
	*MemoryTransport
	refused bool
}

func (s *stuckTransport) UnregisterLocalPort(id int) error {
	if !s.refused {
		s.refused = true
		return portError("unregister", ErrorResourceUnavailable, nil)
	}
	return s.MemoryTransport.UnregisterLocalPort(id)
}

func TestCommunicatorCloseKeepsRegistrationOnFailure(t *testing.T) {
	network := NewMemoryNetwork()
	tr := &stuckTransport{MemoryTransport: network.Transport("host.app")}
	t.Cleanup(func() { _ = tr.Close() })

	c := NewCommunicator("", tr, nil, zerolog.Nop())
	require.NoError(t, c.Initialize())

	require.ErrorIs(t, c.Close(), ErrResourceUnavailable)
	require.True(t, c.Registered())
	live, err := tr.CheckRemotePort(context.Background(), "host.app", DefaultLocalPort)
	require.NoError(t, err)
	require.True(t, live)

	require.NoError(t, c.Close())
	require.False(t, c.Registered())
	live, err = tr.CheckRemotePort(context.Background(), "host.app", DefaultLocalPort)
	require.NoError(t, err)
	require.False(t, live)
}

func TestCommunicatorInitializeLogsRegistrationError(t *testing.T) {
	var buf bytes.Buffer
	c := NewCommunicator("", failingTransport{code: ErrorIO}, nil, zerolog.New(&buf))

	err := c.Initialize()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIO)
	require.False(t, c.Registered())
	require.Equal(t, DefaultLocalPort, c.LocalPort())
	require.Contains(t, buf.String(), "port register error: -5")

	require.NoError(t, c.Close())
}

func TestCommunicatorSendAndReceive(t *testing.T) {
	network := NewMemoryNetwork()
	hostT := network.Transport("host.app")
	peerT := network.Transport("peer.app")
	t.Cleanup(func() {
		_ = hostT.Close()
		_ = peerT.Close()
	})

	fromHost := make(chan Message, 1)
	peer := NewCommunicator("peer_port", peerT, func(msg Message) {
		fromHost <- Message{RemoteAppID: msg.RemoteAppID, RemotePort: msg.RemotePort, Bundle: msg.Bundle.Clone()}
	}, zerolog.Nop())
	require.NoError(t, peer.Initialize())

	host := NewCommunicator("", hostT, nil, zerolog.Nop())
	require.NoError(t, host.Initialize())
	require.NoError(t, host.Initialize())
	require.True(t, host.Registered())

	ready, err := host.PeerReady(context.Background(), "peer.app", "peer_port")
	require.NoError(t, err)
	require.True(t, ready)

	require.NoError(t, host.Send(context.Background(), "peer.app", "peer_port", map[string]string{"seekTo": "250"}))

	select {
	case msg := <-fromHost:
		require.Equal(t, "host.app", msg.RemoteAppID)
		require.Equal(t, DefaultLocalPort, msg.RemotePort)
		require.Equal(t, map[string]string{"seekTo": "250"}, msg.Bundle.Map())
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, peer.Close())
	require.NoError(t, peer.Close())
	require.NoError(t, host.Close())
}

func TestCommunicatorSendFailures(t *testing.T) {
	tr := NewMemoryNetwork().Transport("host.app")
	t.Cleanup(func() { _ = tr.Close() })
	c := NewCommunicator("", tr, nil, zerolog.Nop())

	tests := []struct {
		name    string
		appID   string
		port    string
		payload map[string]string
		want    error
	}{
		{name: "unreachable peer", appID: "peer.app", port: "p", payload: map[string]string{"k": "v"}, want: ErrPortNotFound},
		{name: "empty payload", appID: "peer.app", port: "p", payload: nil, want: ErrEmptyPayload},
		{name: "missing app id", appID: "", port: "p", payload: map[string]string{"k": "v"}, want: ErrInvalidParameter},
		{name: "empty key", appID: "peer.app", port: "p", payload: map[string]string{"": "v"}, want: ErrEmptyKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Send(context.Background(), tt.appID, tt.port, tt.payload)
			require.ErrorIs(t, err, tt.want)

			var se *SendError
			require.True(t, errors.As(err, &se))
			require.Equal(t, tt.appID, se.AppID)
			require.Equal(t, tt.port, se.Port)
		})
	}
}
