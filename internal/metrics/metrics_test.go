// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counterVec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, hist prometheus.Observer) uint64 {
	t.Helper()
	h, ok := hist.(prometheus.Histogram)
	require.True(t, ok, "observer is not a prometheus.Histogram")
	metric := &dto.Metric{}
	require.NoError(t, h.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestRecordCommandNormalizesLabels(t *testing.T) {
	before := getCounterVecValue(t, commandsTotal, "play", OutcomeOK)
	histBefore := getHistogramCount(t, commandDuration.WithLabelValues("play"))
	RecordCommand("play", OutcomeOK, 2*time.Millisecond)
	require.Equal(t, before+1, getCounterVecValue(t, commandsTotal, "play", OutcomeOK))
	require.Equal(t, histBefore+1, getHistogramCount(t, commandDuration.WithLabelValues("play")))

	unknownBefore := getCounterVecValue(t, commandsTotal, labelUnknown, labelUnknown)
	RecordCommand("rewind", "weird", time.Millisecond)
	require.Equal(t, unknownBefore+1, getCounterVecValue(t, commandsTotal, labelUnknown, labelUnknown))
}

func TestPortCounters(t *testing.T) {
	before := getCounterVecValue(t, portMessagesTotal, "true")
	IncPortMessage(true)
	require.Equal(t, before+1, getCounterVecValue(t, portMessagesTotal, "true"))

	regBefore := getCounterVecValue(t, portRegistrationsTotal, labelUnknown)
	IncPortRegistration("")
	require.Equal(t, regBefore+1, getCounterVecValue(t, portRegistrationsTotal, labelUnknown))

	dropBefore := getCounterVecValue(t, BusDroppedTotal, "p", "full")
	IncBusDrop("p")
	require.Equal(t, dropBefore+1, getCounterVecValue(t, BusDroppedTotal, "p", "full"))
}

func TestRecordLaunch(t *testing.T) {
	before := getCounterVecValue(t, launchesTotal, "group", "success")
	RecordLaunch("group", "success", 30*time.Millisecond)
	require.Equal(t, before+1, getCounterVecValue(t, launchesTotal, "group", "success"))

	termBefore := getCounterVecValue(t, procTerminateTotal, "SIGTERM", "sent")
	IncProcTerminate("SIGTERM", "sent")
	require.Equal(t, termBefore+1, getCounterVecValue(t, procTerminateTotal, "SIGTERM", "sent"))
}
