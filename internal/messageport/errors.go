// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"errors"
	"fmt"
)

// ErrorCode is the negative status a transport reports for a failed port
// operation. Zero means success.
type ErrorCode int

const errorBase = -0x01130000

const (
	ErrorNone                ErrorCode = 0
	ErrorIO                  ErrorCode = -5
	ErrorOutOfMemory         ErrorCode = -12
	ErrorPermissionDenied    ErrorCode = -13
	ErrorInvalidParameter    ErrorCode = -22
	ErrorPortNotFound        ErrorCode = errorBase | 0x01
	ErrorCertificateMismatch ErrorCode = errorBase | 0x02
	ErrorMaxExceeded         ErrorCode = errorBase | 0x03
	ErrorResourceUnavailable ErrorCode = errorBase | 0x04
)

// Sentinels matched by PortError.Is.
var (
	ErrIO                  = errors.New("port i/o error")
	ErrOutOfMemory         = errors.New("out of memory")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrPortNotFound        = errors.New("port not found")
	ErrCertificateMismatch = errors.New("certificate mismatch")
	ErrMaxExceeded         = errors.New("maximum message size exceeded")
	ErrResourceUnavailable = errors.New("resource unavailable")
)

var codeSentinels = map[ErrorCode]error{
	ErrorIO:                  ErrIO,
	ErrorOutOfMemory:         ErrOutOfMemory,
	ErrorPermissionDenied:    ErrPermissionDenied,
	ErrorInvalidParameter:    ErrInvalidParameter,
	ErrorPortNotFound:        ErrPortNotFound,
	ErrorCertificateMismatch: ErrCertificateMismatch,
	ErrorMaxExceeded:         ErrMaxExceeded,
	ErrorResourceUnavailable: ErrResourceUnavailable,
}

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "none"
	case ErrorIO:
		return "io_error"
	case ErrorOutOfMemory:
		return "out_of_memory"
	case ErrorPermissionDenied:
		return "permission_denied"
	case ErrorInvalidParameter:
		return "invalid_parameter"
	case ErrorPortNotFound:
		return "port_not_found"
	case ErrorCertificateMismatch:
		return "certificate_mismatch"
	case ErrorMaxExceeded:
		return "max_exceeded"
	case ErrorResourceUnavailable:
		return "resource_unavailable"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// PortError is a failed transport operation.
type PortError struct {
	Op   string
	Code ErrorCode
	Err  error // underlying cause, may be nil
}

func portError(op string, code ErrorCode, err error) *PortError {
	return &PortError{Op: op, Code: code, Err: err}
}

func (e *PortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%d): %v", e.Op, e.Code, int(e.Code), e.Err)
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, int(e.Code))
}

func (e *PortError) Unwrap() error { return e.Err }

// Is matches the sentinel belonging to the error code.
func (e *PortError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// CodeOf returns the ErrorCode carried by err, ErrorNone for nil and
// ErrorIO for errors that are not port errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorNone
	}
	var pe *PortError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrorIO
}

// SendError is returned when an outbound message could not be delivered.
type SendError struct {
	AppID string
	Port  string
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending to %s/%s: %v", e.AppID, e.Port, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
