// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestHolder(t *testing.T, body string) (*Holder, string) {
	t.Helper()
	isolate(t)
	path := writeConfig(t, body)
	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(cfg, loader)
	h.debounce = 20 * time.Millisecond
	t.Cleanup(func() { _ = log.SetLevel(DefaultLogLevel) })
	return h, path
}

func TestHolderReloadAppliesLogLevel(t *testing.T) {
	h, path := newTestHolder(t, "logLevel: info\n")
	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	require.Equal(t, "debug", h.Get().LogLevel)
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	select {
	case cfg := <-updates:
		require.Equal(t, "debug", cfg.LogLevel)
	default:
		t.Fatal("listener not notified")
	}
}

func TestHolderReloadKeepsConfigOnError(t *testing.T) {
	h, path := newTestHolder(t, "logLevel: warn\n")

	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	require.Equal(t, "warn", h.Get().LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("unknownKey: 1\n"), 0o600))
	err := h.Reload(context.Background())
	require.ErrorIs(t, err, ErrUnknownConfigField)
	require.Equal(t, "warn", h.Get().LogLevel)
}

func TestHolderListenerDoesNotBlock(t *testing.T) {
	h, _ := newTestHolder(t, "logLevel: info\n")
	full := make(chan AppConfig)
	h.RegisterListener(full)

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestHolderWatcherReloadsOnWrite(t *testing.T) {
	h, path := newTestHolder(t, "logLevel: info\n")
	updates := make(chan AppConfig, 1)
	h.RegisterListener(updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("logLevel: error\n"), 0o600))

	select {
	case cfg := <-updates:
		require.Equal(t, "error", cfg.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	require.Equal(t, "error", h.Get().LogLevel)
}

func TestHolderWatcherDisabledWithoutFile(t *testing.T) {
	isolate(t)
	loader := NewLoader("", "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader)
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
