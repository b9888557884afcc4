// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package messageport delivers string bundles between processes through
// named ports. A process registers local ports and receives messages on
// them through a callback; it sends to a remote port addressed by the peer's
// application id and port name.
package messageport

import (
	"context"
	"strings"
)

// Message is one inbound delivery. Bundle is owned by the transport and is
// only valid for the duration of the callback; clone it to keep it.
type Message struct {
	RemoteAppID string
	RemotePort  string // sender's local port, empty when none was given
	Trusted     bool   // sender runs as the same user
	Bundle      *Bundle
}

// Callback receives messages for a registered local port. Calls for one port
// never overlap.
type Callback func(localPortID int, msg Message)

// Transport registers local ports and sends bundles to remote ports.
// Failures are reported as *PortError.
type Transport interface {
	// RegisterLocalPort binds name to cb and returns the port id. Registering
	// a name again replaces its callback and returns the same id.
	RegisterLocalPort(name string, cb Callback) (int, error)
	UnregisterLocalPort(id int) error
	// SendMessage delivers b to the remote port. localPortID, when not
	// negative, names the sender's port so the peer can answer.
	SendMessage(ctx context.Context, remoteAppID, remotePort string, b *Bundle, localPortID int) error
	// CheckRemotePort reports whether the remote port is currently registered.
	CheckRemotePort(ctx context.Context, remoteAppID, remotePort string) (bool, error)
}

// NoLocalPort is passed to SendMessage when the sender has no reply port.
const NoLocalPort = -1

func validName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, "/\\\x00") &&
		!strings.HasPrefix(name, ".")
}
