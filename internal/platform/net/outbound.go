// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidSinkURL indicates the telemetry sink URL is unusable.
var ErrInvalidSinkURL = errors.New("invalid sink url")

// NormalizeHost validates and normalizes a host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	}
	if strings.Contains(host, "/") {
		return "", fmt.Errorf("host must not include path: %s", raw)
	}
	if strings.Contains(host, "@") {
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// ValidateSinkURL checks a log sink endpoint and returns it normalized.
// Private and loopback addresses are allowed: the sink usually lives on the
// developer's LAN.
func ValidateSinkURL(raw string) (string, error) {
	u, ok := ParseDirectHTTPURL(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q must be an http(s) url without credentials or fragment", ErrInvalidSinkURL, SanitizeURL(raw))
	}
	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSinkURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = joinHostPort(host, u.Port())
	return u.String(), nil
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
