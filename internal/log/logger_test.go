// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	levels []zerolog.Level
	lines  [][]byte
}

func (r *recordingSink) Write(p []byte) (int, error) {
	return r.WriteLevel(zerolog.NoLevel, p)
}

func (r *recordingSink) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	r.levels = append(r.levels, l)
	r.lines = append(r.lines, append([]byte(nil), p...))
	return len(p), nil
}

func TestConfigureDefaults(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	L().Info().Msg("hello")
	entry := decodeLine(t, &buf)
	require.Equal(t, "playerbridge", entry[FieldService])
	require.Equal(t, "hello", entry[zerolog.MessageFieldName])
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	L().Info().Msg("dropped")
	require.Zero(t, buf.Len())

	require.NoError(t, SetLevel("debug"))
	L().Debug().Msg("kept")
	require.NotZero(t, buf.Len())

	require.Error(t, SetLevel("loud"))
}

func TestConfigureSinkReceivesEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingSink{}
	Configure(Config{Level: "debug", Output: &buf, Sink: sink})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("plugin")
	logger.Warn().Msg("slow")

	require.Len(t, sink.lines, 1)
	require.Equal(t, zerolog.WarnLevel, sink.levels[0])
	require.Contains(t, string(sink.lines[0]), `"component":"plugin"`)
	require.NotZero(t, buf.Len())
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Derive(func(c *zerolog.Context) { *c = c.Str("custom_field", "v") })
	l.Info().Msg("x")
	require.Equal(t, "v", decodeLine(t, &buf)["custom_field"])

	require.NotPanics(t, func() {
		plain := Derive(nil)
		plain.Info().Msg("nil builder")
	})
}
