// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

// Dependency errors from Deps.Validate and NewApp.
var (
	ErrMissingCommandServer = errors.New("command server is required")
	ErrMissingAdminHandler  = errors.New("admin handler is required when an admin address is set")
	ErrMissingManager       = errors.New("manager is required")
)

// Lifecycle errors. Start wraps ErrServerStartFailed together with the
// listener error.
var (
	ErrServerStartFailed = errors.New("server failed to start")
	ErrManagerNotStarted = errors.New("manager not started")
)
