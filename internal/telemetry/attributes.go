// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Command attributes
	CommandChannelKey   = "command.channel"
	CommandOperationKey = "command.operation"
	CommandOutcomeKey   = "command.outcome"
	CommandErrorCodeKey = "command.error_code"
	PlayerTextureIDKey  = "player.texture_id"

	// Message port attributes
	PortLocalKey      = "port.local"
	PortRemoteAppKey  = "port.remote_app_id"
	PortRemoteNameKey = "port.remote_port"
	PortTrustedKey    = "port.trusted"

	// Launch attributes
	LaunchAppIDKey  = "launch.app_id"
	LaunchModeKey   = "launch.mode"
	LaunchResultKey = "launch.result"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CommandAttributes creates span attributes for one dispatched command.
func CommandAttributes(channel, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CommandChannelKey, channel),
		attribute.String(CommandOperationKey, operation),
	}
}

// PortAttributes creates message port span attributes. Empty values are omitted.
func PortAttributes(localPort, remoteApp, remotePort string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if localPort != "" {
		attrs = append(attrs, attribute.String(PortLocalKey, localPort))
	}
	if remoteApp != "" {
		attrs = append(attrs, attribute.String(PortRemoteAppKey, remoteApp))
	}
	if remotePort != "" {
		attrs = append(attrs, attribute.String(PortRemoteNameKey, remotePort))
	}
	return attrs
}

// LaunchAttributes creates peer launch span attributes.
func LaunchAttributes(appID, mode, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LaunchAppIDKey, appID),
		attribute.String(LaunchModeKey, mode),
		attribute.String(LaunchResultKey, result),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
