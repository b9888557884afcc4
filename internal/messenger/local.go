// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package messenger carries channel messages between the managed layer and
// the playerapi handlers, in process or over a unix socket.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ManuGH/playerbridge/internal/codec"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

var (
	// ErrNoHandler means nothing is bound to the channel.
	ErrNoHandler = errors.New("no handler registered for channel")
	// ErrNoReply means the handler returned without replying.
	ErrNoReply = errors.New("handler returned without a reply")
)

// Local is an in-process messenger. Deliveries on the same channel are
// serialized; different channels run concurrently.
type Local struct {
	mu       sync.RWMutex
	channels map[string]*channel
}

type channel struct {
	mu      sync.Mutex // held for the duration of one delivery
	handler playerapi.MessageHandler
}

// NewLocal returns an empty messenger.
func NewLocal() *Local {
	return &Local{channels: make(map[string]*channel)}
}

var (
	_ playerapi.BinaryMessenger = (*Local)(nil)
	_ playerapi.Caller          = (*Local)(nil)
)

// SetMessageHandler binds h to name; a nil h removes the binding.
func (l *Local) SetMessageHandler(name string, h playerapi.MessageHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == nil {
		delete(l.channels, name)
		return
	}
	if ch, ok := l.channels[name]; ok {
		ch.handler = h
		return
	}
	l.channels[name] = &channel{handler: h}
}

// Channels returns the number of bound channels.
func (l *Local) Channels() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.channels)
}

// Call delivers message on name and returns the reply envelope. Handler
// errors are returned as-is; they mean no reply was produced.
func (l *Local) Call(ctx context.Context, name string, message codec.Value) (codec.Value, error) {
	l.mu.RLock()
	ch, ok := l.channels[name]
	var h playerapi.MessageHandler
	if ok {
		h = ch.handler
	}
	l.mu.RUnlock()
	if !ok {
		return codec.Null(), fmt.Errorf("%w: %s", ErrNoHandler, name)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	var (
		reply   codec.Value
		replied bool
	)
	err := h(ctx, message, func(v codec.Value) {
		// first reply wins
		if !replied {
			reply, replied = v, true
		}
	})
	if err != nil {
		return codec.Null(), err
	}
	if !replied {
		return codec.Null(), fmt.Errorf("%w: %s", ErrNoReply, name)
	}
	return reply, nil
}
