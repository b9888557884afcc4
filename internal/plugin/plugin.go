// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package plugin implements the video player operations on top of the
// message port bridge to the companion application.
//
// All mutable state (options, the player table, the peer status) is owned by
// one goroutine. Command handlers and the message port callback post
// closures to it and never touch the state directly.
package plugin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playerbridge/internal/applaunch"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/messageport"
	"github.com/ManuGH/playerbridge/internal/playerapi"
)

// ErrClosed is returned by operations on a closed plugin.
var ErrClosed = errors.New("plugin closed")

// Error codes of structured operation failures.
const (
	CodeUnknownTexture = "unknown_texture"
	CodeInvalidAsset   = "invalid_asset"
)

// Defaults for PeerConfig.
const (
	DefaultLaunchKey      = "launch_intent"
	DefaultLaunchValue    = "player_companion"
	DefaultPeerPort       = "web_widget_port"
	DefaultLaunchTimeout  = 5 * time.Second
	DefaultNotifyTimeout  = 3 * time.Second
	DefaultNotifyInterval = 100 * time.Millisecond
)

const inboxSize = 16

// Options are the player options set by the managed layer.
type Options struct {
	MixWithOthers bool
}

// PeerConfig addresses the companion application.
type PeerConfig struct {
	AppID          string // empty disables launching and notifications
	Port           string
	LaunchKey      string
	LaunchValue    string
	LaunchTimeout  time.Duration
	NotifyTimeout  time.Duration
	NotifyInterval time.Duration
}

// Config configures a Plugin.
type Config struct {
	LocalPort   string
	ResourceDir string
	Peer        PeerConfig
}

func (c *Config) applyDefaults() {
	if c.LocalPort == "" {
		c.LocalPort = messageport.DefaultLocalPort
	}
	p := &c.Peer
	if p.Port == "" {
		p.Port = DefaultPeerPort
	}
	if p.LaunchKey == "" {
		p.LaunchKey = DefaultLaunchKey
		if p.LaunchValue == "" {
			p.LaunchValue = DefaultLaunchValue
		}
	}
	if p.LaunchTimeout <= 0 {
		p.LaunchTimeout = DefaultLaunchTimeout
	}
	if p.NotifyTimeout <= 0 {
		p.NotifyTimeout = DefaultNotifyTimeout
	}
	if p.NotifyInterval <= 0 {
		p.NotifyInterval = DefaultNotifyInterval
	}
}

// Launcher starts the companion application.
type Launcher interface {
	Launch(ctx context.Context, appID string, mode applaunch.LaunchMode, extra map[string]string) (applaunch.Outcome, error)
}

type player struct {
	id       int64
	uri      string
	looping  bool
	volume   float64
	speed    float64
	playing  bool
	position int64
}

type state struct {
	options   Options
	players   map[int64]*player
	nextID    int64
	peerReady bool   // the companion has messaged us
	peerPort  string // its reply port, when it sent one
}

// Plugin implements playerapi.VideoPlayerAPI.
type Plugin struct {
	cfg      Config
	logger   zerolog.Logger
	endpoint *messageport.Communicator
	launcher Launcher

	inbox chan func(*state)
	quit  chan struct{}
	done  chan struct{}

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	closeOnce sync.Once
}

var _ playerapi.VideoPlayerAPI = (*Plugin)(nil)

// New creates a plugin and starts its state goroutine. The local port is
// registered on transport by Initialize.
func New(cfg Config, transport messageport.Transport, launcher Launcher, logger zerolog.Logger) *Plugin {
	cfg.applyDefaults()
	bgCtx, bgCancel := context.WithCancel(context.Background())
	p := &Plugin{
		cfg:      cfg,
		logger:   logger,
		launcher: launcher,
		inbox:    make(chan func(*state), inboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}
	p.endpoint = messageport.NewCommunicator(cfg.LocalPort, transport, p.onPeerMessage,
		logger.With().Str(log.FieldComponent, "messageport").Logger())
	go p.run()
	return p
}

func (p *Plugin) run() {
	defer close(p.done)
	s := &state{players: make(map[int64]*player)}
	for {
		select {
		case fn := <-p.inbox:
			fn(s)
		case <-p.quit:
			return
		}
	}
}

// do runs fn on the state goroutine and returns its error.
func (p *Plugin) do(ctx context.Context, fn func(*state) error) error {
	result := make(chan error, 1)
	task := func(s *state) { result <- fn(s) }

	select {
	case p.inbox <- task:
	case <-p.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting for it. It gives up once the plugin closes.
func (p *Plugin) post(fn func(*state)) {
	select {
	case p.inbox <- fn:
	case <-p.quit:
	}
}

// Options returns the current player options.
func (p *Plugin) Options(ctx context.Context) (Options, error) {
	var out Options
	err := p.do(ctx, func(s *state) error {
		out = s.options
		return nil
	})
	return out, err
}

// Ready reports whether the local port is registered.
func (p *Plugin) Ready() bool {
	return p.endpoint.Registered()
}

// PeerReady reports whether the companion has announced itself.
func (p *Plugin) PeerReady(ctx context.Context) (bool, error) {
	var ready bool
	err := p.do(ctx, func(s *state) error {
		ready = s.peerReady
		return nil
	})
	return ready, err
}

// Close stops pending peer notifications, the state goroutine and
// unregisters the local port. It is safe to call more than once.
func (p *Plugin) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.bgCancel()
		waited := make(chan struct{})
		go func() {
			p.bg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			err = ctx.Err()
		}

		close(p.quit)
		<-p.done
		if cerr := p.endpoint.Close(); cerr != nil && err == nil {
			err = cerr
		}
		p.logger.Info().Str(log.FieldEvent, "plugin.closed").Msg("plugin closed")
	})
	return err
}
