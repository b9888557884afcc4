// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playerapi

import (
	"errors"
	"fmt"

	"github.com/ManuGH/playerbridge/internal/codec"
)

// Envelope keys.
const (
	KeyResult  = "result"
	KeyError   = "error"
	KeyMessage = "message"
	KeyCode    = "code"
	KeyDetails = "details"
)

// ErrMalformedReply is returned when a reply is neither a result nor an
// error envelope.
var ErrMalformedReply = errors.New("malformed reply envelope")

// Error is the structured failure an operation returns to have it reported
// to the caller as an error envelope. Code and Message are sent as-is.
type Error struct {
	Code    string
	Message string
}

// NewError returns a structured failure.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WrapError builds the error payload {message, code, details: null}. details
// is always present and always null.
func WrapError(code, message string) codec.Value {
	return codec.NewMap(
		codec.Field(KeyMessage, codec.String(message)),
		codec.Field(KeyCode, codec.String(code)),
		codec.Field(KeyDetails, codec.Null()),
	)
}

// ResultEnvelope wraps a success value. Void operations pass codec.Null().
func ResultEnvelope(v codec.Value) codec.Value {
	return codec.NewMap(codec.Field(KeyResult, v))
}

// ErrorEnvelope wraps a structured failure.
func ErrorEnvelope(err *Error) codec.Value {
	return codec.NewMap(codec.Field(KeyError, WrapError(err.Code, err.Message)))
}

// DecodeReply splits an envelope into its result or its *Error.
func DecodeReply(envelope codec.Value) (codec.Value, error) {
	if errVal, ok := envelope.Lookup(KeyError); ok {
		f := codec.Lenient(errVal)
		return codec.Null(), &Error{Code: f.String(KeyCode), Message: f.String(KeyMessage)}
	}
	if result, ok := envelope.Lookup(KeyResult); ok {
		return result, nil
	}
	return codec.Null(), fmt.Errorf("%w: %s", ErrMalformedReply, envelope)
}
