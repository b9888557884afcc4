// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ManuGH/playerbridge/internal/config"
	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the daemon starts
// listening.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkRuntimeDir(logger, cfg.MessagePort.RuntimeDir); err != nil {
		return fmt.Errorf("runtime directory check failed: %w", err)
	}

	if err := checkApps(logger, cfg); err != nil {
		return fmt.Errorf("application check failed: %w", err)
	}

	if cfg.Resources.Dir == "" {
		logger.Warn().Msg("resources.dir not configured; asset sources cannot be resolved")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkRuntimeDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	if info.Mode().Perm()&0o077 != 0 {
		logger.Warn().
			Str(log.FieldPath, path).
			Str("mode", info.Mode().Perm().String()).
			Msg("runtime directory is accessible to other users")
	}

	logger.Info().Str(log.FieldPath, path).Msg("runtime directory is writable")
	return nil
}

// checkApps verifies that every launchable application resolves to an
// executable. A peer without an apps entry is allowed; its launches report
// AppNotFound.
func checkApps(logger zerolog.Logger, cfg config.AppConfig) error {
	ids := make([]string, 0, len(cfg.Apps))
	for id := range cfg.Apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		command := strings.TrimSpace(cfg.Apps[id].Command)
		if _, err := exec.LookPath(command); err != nil {
			return fmt.Errorf("app %s: command %q not found: %w", id, command, err)
		}
	}

	if cfg.Peer.AppID != "" {
		if _, ok := cfg.Apps[cfg.Peer.AppID]; !ok {
			logger.Warn().
				Str(log.FieldRemoteApp, cfg.Peer.AppID).
				Msg("peer application has no apps entry; launches will report app not found")
		}
	}
	logger.Info().Int("count", len(ids)).Msg("applications validated")
	return nil
}
