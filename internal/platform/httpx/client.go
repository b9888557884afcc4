// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the outbound HTTP clients of the daemon. Nothing in
// the module uses http.DefaultClient.
package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// Config tunes a client. Zero values select the defaults.
type Config struct {
	Timeout time.Duration
	// MaxIdleConnsPerHost bounds kept-alive connections per host.
	MaxIdleConnsPerHost int
	// NoProxy ignores HTTP_PROXY and friends, for loopback probes.
	NoProxy bool
}

// New returns a client whose dial and header timeouts never exceed the
// overall timeout.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	perHost := cfg.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = defaultMaxIdleConnsPerHost
	}

	dialTimeout := min(timeout, defaultDialTimeout)
	t := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          max(defaultMaxIdleConns, perHost),
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: min(timeout, defaultResponseHeaderTimeout),
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if !cfg.NoProxy {
		t.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// NewClient returns the client used by the log sink.
func NewClient(timeout time.Duration) *http.Client {
	return New(Config{Timeout: timeout})
}
