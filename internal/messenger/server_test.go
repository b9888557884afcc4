// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messenger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

func startServer(t *testing.T, l *Local) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "cmd.sock")
	s := NewServer(socketPath, l, zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return socketPath
}

func TestServerClientRoundTrip(t *testing.T) {
	l := NewLocal()
	l.SetMessageHandler("ch", echo)
	socketPath := startServer(t, l)

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	c := NewClient(socketPath)
	defer c.Close()

	msg := codec.NewMap(codec.Field("textureId", codec.Int64(3)), codec.Field("volume", codec.Float64(0.5)))
	for i := 0; i < 3; i++ {
		got, err := c.Call(context.Background(), "ch", msg)
		require.NoError(t, err)
		require.True(t, playerapi.ResultEnvelope(msg).Equal(got), got.String())
	}
}

func TestServerNoHandler(t *testing.T) {
	socketPath := startServer(t, NewLocal())
	c := NewClient(socketPath)
	defer c.Close()

	_, err := c.Call(context.Background(), "dev.flutter.pigeon.VideoPlayerApi.play", codec.Null())
	require.ErrorIs(t, err, ErrNoHandler)
}

func TestServerDropsConnectionOnFatalHandlerError(t *testing.T) {
	l := NewLocal()
	l.SetMessageHandler("fail", func(context.Context, codec.Value, playerapi.Reply) error {
		return errors.New("unstructured")
	})
	l.SetMessageHandler("ok", echo)
	socketPath := startServer(t, l)

	c := NewClient(socketPath)
	defer c.Close()

	_, err := c.Call(context.Background(), "fail", codec.Null())
	require.ErrorIs(t, err, ErrConnectionDropped)

	// the client reconnects on the next call
	got, err := c.Call(context.Background(), "ok", codec.Bool(true))
	require.NoError(t, err)
	require.Equal(t, `{"result":true}`, got.String())
}

func TestServerClosesOnMalformedRequest(t *testing.T) {
	socketPath := startServer(t, NewLocal())

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, WriteFrame(conn, []byte{0xff}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = ReadFrame(conn)
	require.ErrorIs(t, err, io.EOF)
}

func TestClientHonoursContextDeadline(t *testing.T) {
	l := NewLocal()
	release := make(chan struct{})
	l.SetMessageHandler("slow", func(_ context.Context, m codec.Value, reply playerapi.Reply) error {
		<-release
		reply(m)
		return nil
	})
	socketPath := startServer(t, l)
	defer close(release)

	c := NewClient(socketPath)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, "slow", codec.Null())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandleConnRejectsPeerUIDMismatch(t *testing.T) {
	restore := peerUIDMatchesCurrentUserFn
	peerUIDMatchesCurrentUserFn = func(net.Conn) (bool, error) { return false, nil }
	defer func() { peerUIDMatchesCurrentUserFn = restore }()

	l := NewLocal()
	l.SetMessageHandler("ch", func(context.Context, codec.Value, playerapi.Reply) error {
		t.Fatal("handler must not run for a rejected peer")
		return nil
	})
	s := NewServer("", l, zerolog.Nop())

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer serverConn.Close()
		s.handleConn(context.Background(), serverConn)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handleConn did not return")
	}
}

func TestFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("abc")))
	require.NoError(t, WriteFrame(&buf, nil))
	require.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c', 0, 0, 0, 0}, buf.Bytes())

	body, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), body)
	body, err = ReadFrame(&buf)
	require.NoError(t, err)
	require.Empty(t, body)
	_, err = ReadFrame(&buf)
	require.ErrorIs(t, err, io.EOF)

	_, err = ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestRequestCodec(t *testing.T) {
	body, err := EncodeRequest("ch", codec.Int32(4))
	require.NoError(t, err)
	ch, msg, err := DecodeRequest(body)
	require.NoError(t, err)
	require.Equal(t, "ch", ch)
	require.True(t, msg.Equal(codec.Int32(4)))

	bad, err := codec.Marshal(codec.List(codec.Int64(1)))
	require.NoError(t, err)
	_, _, err = DecodeRequest(bad)
	require.ErrorIs(t, err, codec.ErrMalformed)
}
