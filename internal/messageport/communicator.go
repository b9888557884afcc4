// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/metrics"
	"github.com/ManuGH/playerbridge/internal/telemetry"
)

// DefaultLocalPort is the port name the plugin registers for its peer.
const DefaultLocalPort = "web_widget_local_port"

const tracerName = "github.com/ManuGH/playerbridge/internal/messageport"

// ErrEmptyPayload is returned by Send for a payload without entries.
var ErrEmptyPayload = errors.New("payload has no entries")

// Communicator owns one local port: it registers it, forwards inbound
// messages to a handler and sends bundles built from plain maps.
type Communicator struct {
	localPort string
	transport Transport
	onMessage func(Message)
	logger    zerolog.Logger
	tracer    trace.Tracer

	mu         sync.Mutex
	portID     int
	registered bool
}

// NewCommunicator creates an unregistered communicator for localPort. A nil
// onMessage only logs inbound messages.
func NewCommunicator(localPort string, t Transport, onMessage func(Message), logger zerolog.Logger) *Communicator {
	if localPort == "" {
		localPort = DefaultLocalPort
	}
	return &Communicator{
		localPort: localPort,
		transport: t,
		onMessage: onMessage,
		logger:    logger.With().Str(log.FieldLocalPort, localPort).Logger(),
		tracer:    telemetry.Tracer(tracerName),
	}
}

// Initialize registers the local port. A registration failure is logged and
// returned as *PortError; calling Initialize on a registered communicator
// does nothing.
func (c *Communicator) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return nil
	}

	id, err := c.transport.RegisterLocalPort(c.localPort, c.receive)
	if err != nil {
		code := CodeOf(err)
		metrics.IncPortRegistration(code.String())
		c.logger.Error().Err(err).
			Str(log.FieldEvent, "port.register_failed").
			Int(log.FieldResultCode, int(code)).
			Msgf("port register error: %d", int(code))
		return err
	}

	c.portID = id
	c.registered = true
	metrics.IncPortRegistration(metrics.OutcomeOK)
	c.logger.Info().
		Str(log.FieldEvent, "port.registered").
		Int(log.FieldPortID, id).
		Msg("local port registered")
	return nil
}

// Registered reports whether the local port is registered.
func (c *Communicator) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// LocalPort returns the local port name.
func (c *Communicator) LocalPort() string { return c.localPort }

// Close unregisters the local port. It is a no-op when not registered. The
// port stays registered when the transport refuses to unregister it.
func (c *Communicator) Close() error {
	c.mu.Lock()
	if !c.registered {
		c.mu.Unlock()
		return nil
	}
	id := c.portID
	c.mu.Unlock()

	// SocketTransport waits for running callbacks, which may call Send.
	if err := c.transport.UnregisterLocalPort(id); err != nil {
		c.logger.Warn().Err(err).Str(log.FieldEvent, "port.unregister_failed").Msg("unregistering local port")
		return err
	}

	c.mu.Lock()
	if c.portID == id {
		c.registered = false
	}
	c.mu.Unlock()
	c.logger.Info().Str(log.FieldEvent, "port.unregistered").Msg("local port unregistered")
	return nil
}

func (c *Communicator) receive(_ int, msg Message) {
	metrics.IncPortMessage(msg.Trusted)
	c.logger.Info().
		Str(log.FieldEvent, "port.message").
		Str(log.FieldRemoteApp, msg.RemoteAppID).
		Str(log.FieldRemotePort, msg.RemotePort).
		Bool("trusted", msg.Trusted).
		Int("entries", msg.Bundle.Len()).
		Msg("On message received.")
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// Send builds a bundle from payload and hands it to the transport. When
// the local port is registered it is named as the reply port. Failures are
// returned as *SendError.
func (c *Communicator) Send(ctx context.Context, peerAppID, peerPort string, payload map[string]string) (err error) {
	ctx, span := c.tracer.Start(ctx, "messageport.Send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(telemetry.PortAttributes(c.localPort, peerAppID, peerPort)...),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fail := func(cause error) error {
		metrics.IncPortSend(CodeOf(cause).String())
		return &SendError{AppID: peerAppID, Port: peerPort, Err: cause}
	}

	if peerAppID == "" || peerPort == "" {
		return fail(portError("send", ErrorInvalidParameter, errors.New("peer app id and port are required")))
	}
	if len(payload) == 0 {
		return fail(portError("send", ErrorInvalidParameter, ErrEmptyPayload))
	}
	b, err := BundleFromMap(payload)
	if err != nil {
		return fail(portError("send", ErrorInvalidParameter, err))
	}

	local := NoLocalPort
	c.mu.Lock()
	if c.registered {
		local = c.portID
	}
	c.mu.Unlock()

	if err := c.transport.SendMessage(ctx, peerAppID, peerPort, b, local); err != nil {
		return fail(err)
	}
	metrics.IncPortSend(metrics.OutcomeOK)
	logger := log.WithContext(ctx, c.logger)
	logger.Debug().
		Str(log.FieldEvent, "port.sent").
		Str(log.FieldRemoteApp, peerAppID).
		Str(log.FieldRemotePort, peerPort).
		Int("entries", b.Len()).
		Msg("message sent")
	return nil
}

// PeerReady reports whether the peer's port is registered.
func (c *Communicator) PeerReady(ctx context.Context, peerAppID, peerPort string) (bool, error) {
	return c.transport.CheckRemotePort(ctx, peerAppID, peerPort)
}
