// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/playerbridge/internal/metrics"
	"github.com/ManuGH/playerbridge/internal/platform/httpx"
	platformnet "github.com/ManuGH/playerbridge/internal/platform/net"
	"github.com/ManuGH/playerbridge/internal/resilience"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultSinkTimeout = 2 * time.Second
	defaultSinkQueue   = 256
	defaultSinkRate    = 50
	defaultSinkBurst   = 100
	sinkBreakerName    = "log_sink"
)

// SinkConfig configures the remote telemetry sink.
type SinkConfig struct {
	URL           string
	Level         zerolog.Level // events below this level are not forwarded
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	QueueSize     int
	Client        *http.Client // optional, defaults to httpx.NewClient(Timeout)
	// Consecutive failed posts before the sink pauses, and the pause.
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Sink forwards log events to an append-only HTTP endpoint as
// {"message": ..., "level": ..., "component": ...}.
//
// Delivery is best-effort: events are queued, rate limited and posted by a
// single worker. Failures never reach the writer; they only show up in the
// sink metrics. While the endpoint keeps failing, events are dropped without
// a request.
type Sink struct {
	url     string
	level   zerolog.Level
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker

	mu     sync.RWMutex
	closed bool
	queue  chan []byte
	done   chan struct{}
}

// NewSink validates cfg and starts the delivery worker.
func NewSink(cfg SinkConfig) (*Sink, error) {
	target, err := platformnet.ValidateSinkURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSinkTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultSinkQueue
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultSinkRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultSinkBurst
	}
	client := cfg.Client
	if client == nil {
		client = httpx.NewClient(cfg.Timeout)
	}

	s := &Sink{
		url:     target,
		level:   cfg.Level,
		timeout: cfg.Timeout,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: resilience.NewCircuitBreaker(sinkBreakerName, cfg.BreakerThreshold, cfg.BreakerReset),
		queue:   make(chan []byte, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Write implements io.Writer for events without a level.
func (s *Sink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter. It never returns an error.
func (s *Sink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level != zerolog.NoLevel && level < s.level {
		return len(p), nil
	}
	if !s.limiter.Allow() {
		metrics.IncLogSink("rate_limited")
		return len(p), nil
	}

	line := append([]byte(nil), p...)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.IncLogSink("closed")
		return len(p), nil
	}
	select {
	case s.queue <- line:
	default:
		metrics.IncLogSink("queue_full")
	}
	return len(p), nil
}

// Close stops accepting events and waits for queued events to be posted
// or for ctx to expire.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for line := range s.queue {
		err := s.breaker.Execute(func() error { return s.post(line) })
		if errors.Is(err, resilience.ErrCircuitOpen) {
			metrics.IncLogSink("circuit_open")
			continue
		}
		if err != nil {
			metrics.IncLogSink("failed")
			continue
		}
		metrics.IncLogSink("sent")
	}
}

func (s *Sink) post(line []byte) error {
	body, err := sinkBody(line)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sink responded %d", resp.StatusCode)
	}
	return nil
}

type sinkEvent struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Component string `json:"component,omitempty"`
	Event     string `json:"event,omitempty"`
}

// sinkBody reduces a zerolog JSON line to the sink's message shape. Lines
// that are not JSON are forwarded verbatim as the message.
func sinkBody(line []byte) ([]byte, error) {
	line = bytes.TrimSpace(line)
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return json.Marshal(sinkEvent{Message: string(line)})
	}
	ev := sinkEvent{
		Message:   stringField(fields, zerolog.MessageFieldName),
		Level:     stringField(fields, zerolog.LevelFieldName),
		Component: stringField(fields, FieldComponent),
		Event:     stringField(fields, FieldEvent),
	}
	if ev.Message == "" {
		ev.Message = ev.Event
	}
	return json.Marshal(ev)
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

var _ zerolog.LevelWriter = (*Sink)(nil)
