// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package applaunch

import "fmt"

// LaunchMode hints how the platform should place the launched application.
type LaunchMode int

const (
	// LaunchModeSingle starts the application as its own top-level instance.
	LaunchModeSingle LaunchMode = iota
	// LaunchModeGroup attaches the application to the caller's group.
	LaunchModeGroup
)

func (m LaunchMode) String() string {
	switch m {
	case LaunchModeSingle:
		return "single"
	case LaunchModeGroup:
		return "group"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m LaunchMode) Valid() bool {
	return m == LaunchModeSingle || m == LaunchModeGroup
}

// ParseLaunchMode parses "single" or "group".
func ParseLaunchMode(s string) (LaunchMode, error) {
	switch s {
	case "single":
		return LaunchModeSingle, nil
	case "group":
		return LaunchModeGroup, nil
	default:
		return 0, fmt.Errorf("unknown launch mode %q", s)
	}
}

// ResultCode is the numeric status a platform returns for a launch request.
type ResultCode int

const applicationClass = -0x01100000

const (
	ResultNone             ResultCode = 0
	ResultOutOfMemory      ResultCode = -12
	ResultPermissionDenied ResultCode = -13
	ResultInvalidParameter ResultCode = -22
	ResultAppNotFound      ResultCode = applicationClass | 0x21
	ResultLaunchRejected   ResultCode = applicationClass | 0x26
	ResultLaunchFailed     ResultCode = applicationClass | 0x27
	ResultTimedOut         ResultCode = -0x3FFFFFFF
)

func (c ResultCode) String() string {
	switch c {
	case ResultNone:
		return "APP_CONTROL_ERROR_NONE"
	case ResultOutOfMemory:
		return "APP_CONTROL_ERROR_OUT_OF_MEMORY"
	case ResultPermissionDenied:
		return "APP_CONTROL_ERROR_PERMISSION_DENIED"
	case ResultInvalidParameter:
		return "APP_CONTROL_ERROR_INVALID_PARAMETER"
	case ResultAppNotFound:
		return "APP_CONTROL_ERROR_APP_NOT_FOUND"
	case ResultLaunchRejected:
		return "APP_CONTROL_ERROR_LAUNCH_REJECTED"
	case ResultLaunchFailed:
		return "APP_CONTROL_ERROR_LAUNCH_FAILED"
	case ResultTimedOut:
		return "APP_CONTROL_ERROR_TIMED_OUT"
	default:
		return fmt.Sprintf("APP_CONTROL_ERROR(%d)", int(c))
	}
}

// Outcome is the classified result of a launch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePermissionDenied
	OutcomeInvalidParameter
	OutcomeOutOfMemory
	OutcomeAppNotFound
	OutcomeLaunchRejected
	OutcomeLaunchFailed
	OutcomeTimedOut
	OutcomeUnknownFailure
)

var outcomeNames = [...]string{
	OutcomeSuccess:          "success",
	OutcomePermissionDenied: "permission_denied",
	OutcomeInvalidParameter: "invalid_parameter",
	OutcomeOutOfMemory:      "out_of_memory",
	OutcomeAppNotFound:      "app_not_found",
	OutcomeLaunchRejected:   "launch_rejected",
	OutcomeLaunchFailed:     "launch_failed",
	OutcomeTimedOut:         "timed_out",
	OutcomeUnknownFailure:   "unknown_failure",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Classify maps a platform result code to its outcome. Codes outside the
// known set are OutcomeUnknownFailure.
func Classify(code ResultCode) Outcome {
	switch code {
	case ResultNone:
		return OutcomeSuccess
	case ResultPermissionDenied:
		return OutcomePermissionDenied
	case ResultInvalidParameter:
		return OutcomeInvalidParameter
	case ResultOutOfMemory:
		return OutcomeOutOfMemory
	case ResultAppNotFound:
		return OutcomeAppNotFound
	case ResultLaunchRejected:
		return OutcomeLaunchRejected
	case ResultLaunchFailed:
		return OutcomeLaunchFailed
	case ResultTimedOut:
		return OutcomeTimedOut
	default:
		return OutcomeUnknownFailure
	}
}
