// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldVersion       = "version"
	FieldCorrelationID = "correlation_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Command channel fields
	FieldChannel   = "channel"
	FieldOperation = "operation"
	FieldOutcome   = "outcome"
	FieldTextureID = "texture_id"

	// Message port fields
	FieldLocalPort  = "local_port"
	FieldPortID     = "port_id"
	FieldRemoteApp  = "remote_app_id"
	FieldRemotePort = "remote_port"
	FieldResultCode = "result_code"
	FieldLaunchMode = "launch_mode"

	// Path fields
	FieldPath = "path"
)
