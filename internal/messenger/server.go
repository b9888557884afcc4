// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messenger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/log"
)

var peerUIDMatchesCurrentUserFn = PeerUIDMatchesCurrentUser

// Server exposes a Local messenger on a unix socket. Frames of one
// connection are handled in order; each request frame is
// Marshal(List(String(channel), message)) and gets one reply frame holding
// the marshaled envelope. An empty reply frame means no handler is bound.
// A handler failure without reply drops the connection.
type Server struct {
	socketPath string
	local      *Local
	logger     zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a socket server delivering into local.
func NewServer(socketPath string, local *Local, logger zerolog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		local:      local,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start listens on the socket path, replacing a stale socket file.
func (s *Server) Start(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(s.socketPath)
		return fmt.Errorf("setting socket permissions: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldEvent, "messenger.listening").
		Str(log.FieldPath, s.socketPath).
		Msg("command socket listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx, ln)
	}()
	return nil
}

// Stop closes the listener and every open connection, then waits for
// in-flight requests.
func (s *Server) Stop() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	if s.cancel != nil {
		s.cancel()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.wg.Wait()
	if ln != nil {
		_ = os.Remove(s.socketPath)
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return // listener closed
		}
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	ok, err := peerUIDMatchesCurrentUserFn(conn)
	if err != nil || !ok {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "messenger.peer_rejected").
			Msg("rejecting command connection from foreign user")
		return
	}

	for {
		body, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn().Err(err).Str(log.FieldEvent, "messenger.read_failed").Msg("reading command frame")
			}
			return
		}

		reply, err := s.serve(ctx, body)
		if err != nil {
			s.logger.Error().Err(err).
				Str(log.FieldEvent, "messenger.request_fatal").
				Msg("dropping command connection")
			return
		}
		if err := WriteFrame(conn, reply); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "messenger.write_failed").Msg("writing reply frame")
			return
		}
	}
}

// serve returns the reply frame body for one request frame. A nil body with
// nil error is the "no handler" reply.
func (s *Server) serve(ctx context.Context, body []byte) ([]byte, error) {
	channel, message, err := DecodeRequest(body)
	if err != nil {
		return nil, err
	}

	envelope, err := s.local.Call(ctx, channel, message)
	if errors.Is(err, ErrNoHandler) {
		s.logger.Debug().Str(log.FieldChannel, channel).Msg("no handler bound")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.Marshal(envelope)
}

// EncodeRequest builds a request frame body.
func EncodeRequest(channel string, message codec.Value) ([]byte, error) {
	return codec.Marshal(codec.List(codec.String(channel), message))
}

// DecodeRequest splits a request frame body into channel and message.
func DecodeRequest(body []byte) (string, codec.Value, error) {
	v, err := codec.Unmarshal(body)
	if err != nil {
		return "", codec.Null(), fmt.Errorf("decoding request: %w", err)
	}
	items, ok := v.AsList()
	if !ok || len(items) != 2 {
		return "", codec.Null(), fmt.Errorf("decoding request: %w: want [channel, message]", codec.ErrMalformed)
	}
	channel, ok := items[0].AsString()
	if !ok || channel == "" {
		return "", codec.Null(), fmt.Errorf("decoding request: %w: channel must be a string", codec.ErrMalformed)
	}
	return channel, items[1], nil
}
