// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus instruments of the bridge.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeFatal  = "fatal"
	OutcomeDecode = "decode_error"

	labelUnknown = "unknown"
)

var knownOperations = map[string]struct{}{
	"initialize":       {},
	"create":           {},
	"dispose":          {},
	"setLooping":       {},
	"setVolume":        {},
	"setPlaybackSpeed": {},
	"play":             {},
	"pause":            {},
	"position":         {},
	"seekTo":           {},
	"setMixWithOthers": {},
}

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_commands_total",
		Help: "Video player commands handled by operation and outcome",
	}, []string{"operation", "outcome"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playerbridge_command_duration_seconds",
		Help:    "Time from decoded request to sent reply",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"})
)

// RecordCommand counts one handled command. Unknown operations collapse into
// a single label value.
func RecordCommand(operation, outcome string, d time.Duration) {
	op := normalizeOperationLabel(operation)
	commandsTotal.WithLabelValues(op, normalizeOutcomeLabel(outcome)).Inc()
	commandDuration.WithLabelValues(op).Observe(d.Seconds())
}

func normalizeOperationLabel(op string) string {
	op = strings.TrimSpace(op)
	if _, ok := knownOperations[op]; ok {
		return op
	}
	return labelUnknown
}

func normalizeOutcomeLabel(outcome string) string {
	switch outcome {
	case OutcomeOK, OutcomeError, OutcomeFatal, OutcomeDecode:
		return outcome
	default:
		return labelUnknown
	}
}
