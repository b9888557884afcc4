// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	portMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_port_messages_total",
		Help: "Messages delivered to registered local ports",
	}, []string{"trusted"})

	portRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_port_registrations_total",
		Help: "Local port registration attempts by result",
	}, []string{"result"})

	portSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_port_sends_total",
		Help: "Bundles sent to remote ports by result",
	}, []string{"result"})

	// BusDroppedTotal counts in-memory transport deliveries dropped by port and reason.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playerbridge_bus_dropped_total",
		Help: "In-memory port deliveries dropped by port and reason",
	}, []string{"port", "reason"})
)

// IncPortMessage records one message received on a local port.
func IncPortMessage(trusted bool) {
	label := "false"
	if trusted {
		label = "true"
	}
	portMessagesTotal.WithLabelValues(label).Inc()
}

// IncPortRegistration records a registration result ("ok" or a port error code).
func IncPortRegistration(result string) {
	portRegistrationsTotal.WithLabelValues(nonEmpty(result)).Inc()
}

// IncPortSend records a send result ("ok" or a port error code).
func IncPortSend(result string) {
	portSendsTotal.WithLabelValues(nonEmpty(result)).Inc()
}

// IncBusDrop records a dropped in-memory delivery for the given port.
func IncBusDrop(port string) {
	IncBusDropReason(port, "full")
}

// IncBusDropReason records a dropped in-memory delivery with a concrete reason.
func IncBusDropReason(port, reason string) {
	BusDroppedTotal.WithLabelValues(nonEmpty(port), nonEmpty(reason)).Inc()
}

func nonEmpty(v string) string {
	if v == "" {
		return labelUnknown
	}
	return v
}
