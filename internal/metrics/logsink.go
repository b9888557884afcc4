// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var logSinkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playerbridge_log_sink_events_total",
	Help: "Log events handled by the remote sink by result",
}, []string{"result"})

// IncLogSink records a remote log sink result (sent, failed, queue_full, rate_limited, closed).
func IncLogSink(result string) {
	logSinkTotal.WithLabelValues(nonEmpty(result)).Inc()
}

var configReloadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playerbridge_config_reload_total",
	Help: "Configuration reload attempts by result",
}, []string{"result"})

// IncConfigReload records a configuration reload result.
func IncConfigReload(result string) {
	configReloadTotal.WithLabelValues(nonEmpty(result)).Inc()
}

var circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "playerbridge_circuit_breaker_state",
	Help: "Circuit breaker state (1 for the current state) by breaker",
}, []string{"breaker", "state"})

var circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playerbridge_circuit_breaker_trips_total",
	Help: "Circuit breaker trips by breaker and reason",
}, []string{"breaker", "reason"})

var breakerStates = []string{"closed", "open", "half-open"}

// SetCircuitBreakerState marks state as the current state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitBreakerState.WithLabelValues(nonEmpty(breaker), s).Set(v)
	}
}

// RecordCircuitBreakerTrip records a breaker opening.
func RecordCircuitBreakerTrip(breaker, reason string) {
	circuitBreakerTrips.WithLabelValues(nonEmpty(breaker), nonEmpty(reason)).Inc()
}
