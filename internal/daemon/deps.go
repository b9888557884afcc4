// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 5 * time.Second

// CommandServer serves the command channels. *messenger.Server implements it.
type CommandServer interface {
	Start(ctx context.Context) error
	Stop()
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// CommandServer serves the command socket.
	CommandServer CommandServer

	// AdminAddr is the admin HTTP listen address. Empty disables it.
	AdminAddr string

	// AdminHandler serves /healthz, /readyz and /metrics.
	AdminHandler http.Handler

	// ShutdownTimeout bounds Shutdown, hooks included.
	ShutdownTimeout time.Duration
}

// Validate checks that all required dependencies are present.
func (d *Deps) Validate() error {
	if d.CommandServer == nil {
		return ErrMissingCommandServer
	}
	if d.AdminAddr != "" && d.AdminHandler == nil {
		return ErrMissingAdminHandler
	}
	return nil
}
