// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/metrics"
	platformnet "github.com/ManuGH/playerbridge/internal/platform/net"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
//
// Only the log level is applied live. Other changes are logged and take
// effect on restart.
type Holder struct {
	mu       sync.RWMutex
	current  AppConfig
	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a holder with an already loaded configuration.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   log.WithComponent("config"),
		debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates the configuration again. On failure the
// previous configuration stays in place.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		metrics.IncConfigReload("failed")
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	if oldCfg.LogLevel != newCfg.LogLevel {
		if err := log.SetLevel(newCfg.LogLevel); err != nil {
			h.logger.Warn().Err(err).Str("level", newCfg.LogLevel).Msg("log level not applied")
		}
	}

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)
	metrics.IncConfigReload("ok")

	h.logger.Info().
		Str(log.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file for changes until ctx is done or
// Stop is called. Without a config file this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(log.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watching the directory survives editors that replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.watchMu.Lock()
	h.watcher = watcher
	h.done = make(chan struct{})
	h.watchMu.Unlock()

	h.logger.Info().
		Str(log.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.stopTimer()
			_ = watcher.Close()
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				h.stopTimer()
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				h.logger.Debug().
					Str(log.FieldEvent, "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")
				h.schedule(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				h.stopTimer()
				return
			}
			h.logger.Error().
				Err(err).
				Str(log.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// schedule debounces reloads for bursts of file events.
func (h *Holder) schedule(ctx context.Context) {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := h.Reload(ctx); err != nil {
			h.logger.Error().
				Err(err).
				Str(log.FieldEvent, "config.auto_reload_failed").
				Msg("automatic config reload failed")
		}
	})
}

func (h *Holder) stopTimer() {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Stop stops the watcher (if running) and waits for its loop to exit.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	watcher, done := h.watcher, h.done
	h.watcher = nil
	h.watchMu.Unlock()
	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done
}

// RegisterListener registers a channel to receive the new configuration
// after every successful reload. Sends never block.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(log.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: logLevel")
	}
	if old.LogSink.URL != newCfg.LogSink.URL {
		h.logger.Info().
			Str("old", platformnet.SanitizeURL(old.LogSink.URL)).
			Str("new", platformnet.SanitizeURL(newCfg.LogSink.URL)).
			Msg("config changed: log.sink.url (restart required)")
	}
	if old.Bridge != newCfg.Bridge {
		h.logger.Warn().Msg("config changed: bridge (restart required)")
	}
	if old.Peer != newCfg.Peer {
		h.logger.Warn().
			Str("old", old.Peer.AppID).
			Str("new", newCfg.Peer.AppID).
			Msg("config changed: peer (restart required)")
	}
	if old.Metrics.ListenAddr != newCfg.Metrics.ListenAddr {
		h.logger.Warn().
			Str("old", old.Metrics.ListenAddr).
			Str("new", newCfg.Metrics.ListenAddr).
			Msg("config changed: metrics.listenAddr (restart required)")
	}
}
