// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messenger"
)

const (
	keyAppID  = "appId"
	keyPort   = "port"
	keyBundle = "bundle"

	defaultSendTimeout = 5 * time.Second
)

var peerTrustedFn = messenger.PeerUIDMatchesCurrentUser

// SocketTransport registers each local port as a unix socket at
// <runtimeDir>/<appID>/<port>.sock. A message is one frame holding
// Marshal({appId, port, bundle}); the receiver answers with one frame holding
// the Int32 ErrorCode of the delivery. Trusted is set on inbound messages
// whose sender runs as the same user.
type SocketTransport struct {
	runtimeDir string
	appID      string
	logger     zerolog.Logger

	mu     sync.Mutex
	byName map[string]*socketPort
	byID   map[int]*socketPort
	nextID int
	closed bool
}

var _ Transport = (*SocketTransport)(nil)

// NewSocketTransport creates a transport for appID under runtimeDir.
func NewSocketTransport(runtimeDir, appID string, logger zerolog.Logger) (*SocketTransport, error) {
	if runtimeDir == "" {
		return nil, portError("open", ErrorInvalidParameter, errors.New("runtime dir is empty"))
	}
	if !validName(appID) {
		return nil, portError("open", ErrorInvalidParameter, fmt.Errorf("invalid app id %q", appID))
	}
	return &SocketTransport{
		runtimeDir: runtimeDir,
		appID:      appID,
		logger:     logger,
		byName:     make(map[string]*socketPort),
		byID:       make(map[int]*socketPort),
	}, nil
}

// SocketPath returns the socket of port name owned by appID.
func SocketPath(runtimeDir, appID, name string) string {
	return filepath.Join(runtimeDir, appID, name+".sock")
}

type socketPort struct {
	id     int
	name   string
	path   string
	ln     net.Listener
	logger zerolog.Logger

	mu sync.Mutex // serializes callback invocations
	cb Callback

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	done   bool
	wg     sync.WaitGroup
}

func (t *SocketTransport) RegisterLocalPort(name string, cb Callback) (int, error) {
	if !validName(name) || cb == nil {
		return 0, portError("register", ErrorInvalidParameter, nil)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, portError("register", ErrorResourceUnavailable, nil)
	}
	if p, ok := t.byName[name]; ok {
		p.mu.Lock()
		p.cb = cb
		p.mu.Unlock()
		return p.id, nil
	}

	dir := filepath.Join(t.runtimeDir, t.appID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return 0, portError("register", listenCode(err), err)
	}
	path := SocketPath(t.runtimeDir, t.appID, name)
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return 0, portError("register", listenCode(err), err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return 0, portError("register", listenCode(err), err)
	}

	p := &socketPort{
		id:     t.nextID,
		name:   name,
		path:   path,
		ln:     ln,
		logger: t.logger.With().Str(log.FieldLocalPort, name).Logger(),
		cb:     cb,
		conns:  make(map[net.Conn]struct{}),
	}
	t.nextID++
	t.byName[name] = p
	t.byID[p.id] = p

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.acceptLoop()
	}()
	return p.id, nil
}

// UnregisterLocalPort closes the port and waits for in-flight deliveries.
// It must not be called from the port's own callback.
func (t *SocketTransport) UnregisterLocalPort(id int) error {
	t.mu.Lock()
	p, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
		delete(t.byName, p.name)
	}
	t.mu.Unlock()
	if !ok {
		return portError("unregister", ErrorInvalidParameter, nil)
	}
	p.stop()
	return nil
}

func (t *SocketTransport) SendMessage(ctx context.Context, remoteAppID, remotePort string, b *Bundle, localPortID int) error {
	if !validName(remoteAppID) || !validName(remotePort) || b.Len() == 0 {
		return portError("send", ErrorInvalidParameter, nil)
	}
	sender, err := t.localPortName(localPortID)
	if err != nil {
		return err
	}

	body, err := codec.Marshal(codec.NewMap(
		codec.Field(keyAppID, codec.String(t.appID)),
		codec.Field(keyPort, codec.String(sender)),
		codec.Field(keyBundle, b.ToValue()),
	))
	if err != nil {
		return portError("send", ErrorInvalidParameter, err)
	}
	if len(body) > messenger.MaxFrameSize {
		return portError("send", ErrorMaxExceeded, nil)
	}

	conn, err := t.dial(ctx, remoteAppID, remotePort)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSendTimeout)
	}
	_ = conn.SetDeadline(deadline)

	if err := messenger.WriteFrame(conn, body); err != nil {
		return portError("send", ErrorIO, ioCause(ctx, err))
	}
	ack, err := messenger.ReadFrame(conn)
	if err != nil {
		return portError("send", ErrorIO, ioCause(ctx, err))
	}
	code, err := decodeAck(ack)
	if err != nil {
		return portError("send", ErrorIO, err)
	}
	if code != ErrorNone {
		return portError("send", code, nil)
	}
	return nil
}

func (t *SocketTransport) CheckRemotePort(ctx context.Context, remoteAppID, remotePort string) (bool, error) {
	if !validName(remoteAppID) || !validName(remotePort) {
		return false, portError("check", ErrorInvalidParameter, nil)
	}
	conn, err := t.dial(ctx, remoteAppID, remotePort)
	if err != nil {
		if errors.Is(err, ErrPortNotFound) {
			return false, nil
		}
		return false, err
	}
	_ = conn.Close()
	return true, nil
}

// Close unregisters every local port.
func (t *SocketTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	ports := make([]*socketPort, 0, len(t.byID))
	for id, p := range t.byID {
		ports = append(ports, p)
		delete(t.byID, id)
		delete(t.byName, p.name)
	}
	t.mu.Unlock()

	for _, p := range ports {
		p.stop()
	}
	return nil
}

func (t *SocketTransport) dial(ctx context.Context, appID, port string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", SocketPath(t.runtimeDir, appID, port))
	if err != nil {
		return nil, portError("send", dialCode(err), err)
	}
	return conn, nil
}

func (t *SocketTransport) localPortName(id int) (string, error) {
	if id < 0 {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[id]
	if !ok {
		return "", portError("send", ErrorInvalidParameter, errors.New("unknown local port"))
	}
	return p.name, nil
}

func (p *socketPort) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return // listener closed
		}
		if !p.track(conn) {
			_ = conn.Close()
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer p.untrack(conn)
			p.handleConn(conn)
		}()
	}
}

func (p *socketPort) track(conn net.Conn) bool {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.done {
		return false
	}
	p.conns[conn] = struct{}{}
	return true
}

func (p *socketPort) untrack(conn net.Conn) {
	p.connMu.Lock()
	delete(p.conns, conn)
	p.connMu.Unlock()
	_ = conn.Close()
}

func (p *socketPort) stop() {
	p.connMu.Lock()
	p.done = true
	for c := range p.conns {
		_ = c.Close()
	}
	p.connMu.Unlock()

	_ = p.ln.Close()
	p.wg.Wait()
	_ = os.Remove(p.path)
}

func (p *socketPort) handleConn(conn net.Conn) {
	trusted, err := peerTrustedFn(conn)
	if err != nil {
		p.logger.Debug().Err(err).Msg("peer credentials unavailable, message untrusted")
		trusted = false
	}

	for {
		body, err := messenger.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				p.logger.Warn().Err(err).Str(log.FieldEvent, "port.read_failed").Msg("reading port frame")
			}
			return
		}

		msg, err := decodeMessage(body)
		if err != nil {
			p.logger.Warn().Err(err).Str(log.FieldEvent, "port.malformed").Msg("rejecting malformed port message")
			_ = writeAck(conn, ErrorInvalidParameter)
			return
		}
		msg.Trusted = trusted

		if err := writeAck(conn, ErrorNone); err != nil {
			p.logger.Warn().Err(err).Str(log.FieldEvent, "port.ack_failed").Msg("writing port ack")
			return
		}

		p.mu.Lock()
		p.cb(p.id, msg)
		p.mu.Unlock()
	}
}

func decodeMessage(body []byte) (Message, error) {
	v, err := codec.Unmarshal(body)
	if err != nil {
		return Message{}, err
	}
	appID, ok := fieldString(v, keyAppID)
	if !ok || appID == "" {
		return Message{}, fmt.Errorf("%w: missing %s", codec.ErrMalformed, keyAppID)
	}
	port, _ := fieldString(v, keyPort)
	raw, ok := v.Lookup(keyBundle)
	if !ok {
		return Message{}, fmt.Errorf("%w: missing %s", codec.ErrMalformed, keyBundle)
	}
	b, err := BundleFromValue(raw)
	if err != nil {
		return Message{}, err
	}
	return Message{RemoteAppID: appID, RemotePort: port, Bundle: b}, nil
}

func fieldString(v codec.Value, key string) (string, bool) {
	f, ok := v.Lookup(key)
	if !ok {
		return "", false
	}
	return f.AsString()
}

func writeAck(w io.Writer, code ErrorCode) error {
	body, err := codec.Marshal(codec.Int32(int32(code)))
	if err != nil {
		return err
	}
	return messenger.WriteFrame(w, body)
}

func decodeAck(body []byte) (ErrorCode, error) {
	v, err := codec.Unmarshal(body)
	if err != nil {
		return ErrorIO, fmt.Errorf("decoding ack: %w", err)
	}
	n, ok := v.AsInt()
	if !ok {
		return ErrorIO, fmt.Errorf("decoding ack: %w: want integer, got %s", codec.ErrMalformed, v.Kind())
	}
	return ErrorCode(n), nil
}

func listenCode(err error) ErrorCode {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ErrorPermissionDenied
	case errors.Is(err, syscall.EADDRINUSE):
		return ErrorResourceUnavailable
	case errors.Is(err, syscall.ENOMEM):
		return ErrorOutOfMemory
	default:
		return ErrorIO
	}
}

func dialCode(err error) ErrorCode {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ECONNREFUSED):
		return ErrorPortNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrorPermissionDenied
	default:
		return ErrorIO
	}
}

func ioCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return context.DeadlineExceeded
	}
	return err
}
