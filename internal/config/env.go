// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/playerbridge/internal/log"
)

var errInvalidBool = errors.New("invalid boolean")

// lookupEnv returns the parsed value of key, or def when the variable is
// unset, empty or unparsable. The chosen source is logged at debug level;
// unparsable values are logged as warnings.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")

	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logger.Debug().
			Str("key", key).
			Str("default", fmt.Sprint(def)).
			Str("source", "default").
			Bool("empty", ok).
			Msg("using default value")
		return def
	}

	shown := raw
	if isSensitiveKey(key) {
		shown = "***"
	}

	v, err := parse(raw)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("key", key).
			Str("value", shown).
			Str("default", fmt.Sprint(def)).
			Msg("invalid environment variable, using default")
		return def
	}

	logger.Debug().
		Str("key", key).
		Str("value", shown).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	return lookupEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from the environment or returns defaultValue.
func ParseInt(key string, defaultValue int) int {
	return lookupEnv(key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a Go duration ("5s", "250ms") from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return lookupEnv(key, defaultValue, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return lookupEnv(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, errInvalidBool
	})
}

func ParseFloat(key string, defaultValue float64) float64 {
	return lookupEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// expandEnv expands ${VAR} and $VAR references in file values.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// isSensitiveKey reports whether the value of key must not be logged. Sink
// URLs may carry credentials in their userinfo or query.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret", "sink_url"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
