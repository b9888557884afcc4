// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	launchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_launches_total",
		Help: "Peer application launch requests by mode and outcome",
	}, []string{"mode", "outcome"})

	launchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playerbridge_launch_duration_seconds",
		Help:    "Time from launch request to classified result",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
	}, []string{"mode"})

	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_proc_terminate_total",
		Help: "Signals sent to launched process groups by signal and result",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_proc_wait_total",
		Help: "Exit observations of launched process groups",
	}, []string{"result"})
)

// RecordLaunch counts one classified launch and its latency.
func RecordLaunch(mode, outcome string, d time.Duration) {
	mode = nonEmpty(mode)
	launchesTotal.WithLabelValues(mode, nonEmpty(outcome)).Inc()
	launchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// IncProcTerminate records a termination signal attempt.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(nonEmpty(signal), nonEmpty(result)).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(result string) {
	procWaitTotal.WithLabelValues(nonEmpty(result)).Inc()
}
