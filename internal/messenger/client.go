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
	"sync"
	"time"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

// ErrConnectionDropped means the server closed the connection instead of
// replying, which it does when a handler fails without a structured error.
var ErrConnectionDropped = errors.New("connection dropped before reply")

const defaultDialTimeout = 2 * time.Second

// Client calls channels on a Server. It keeps one connection and sends
// requests on it one at a time; a failed exchange discards the connection.
type Client struct {
	socketPath string

	mu   sync.Mutex
	conn net.Conn
}

var _ playerapi.Caller = (*Client)(nil)

// NewClient creates a client for the server at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends message on channel and returns the reply envelope.
func (c *Client) Call(ctx context.Context, channel string, message codec.Value) (codec.Value, error) {
	body, err := EncodeRequest(channel, message)
	if err != nil {
		return codec.Null(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return codec.Null(), err
	}

	reply, err := c.exchange(ctx, conn, body)
	if err != nil {
		_ = conn.Close()
		c.conn = nil
		return codec.Null(), err
	}
	if len(reply) == 0 {
		return codec.Null(), fmt.Errorf("%w: %s", ErrNoHandler, channel)
	}
	return codec.Unmarshal(reply)
}

// Close releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	d := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) exchange(ctx context.Context, conn net.Conn, body []byte) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := WriteFrame(conn, body); err != nil {
		return nil, contextError(ctx, fmt.Errorf("sending request: %w", err))
	}
	reply, err := ReadFrame(conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrConnectionDropped
		}
		return nil, contextError(ctx, fmt.Errorf("reading reply: %w", err))
	}
	return reply, nil
}

// contextError prefers the context's error when the connection deadline
// derived from it fired first.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if _, ok := ctx.Deadline(); ok {
			return context.DeadlineExceeded
		}
	}
	return err
}
