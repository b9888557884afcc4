// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func transportOf(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok, "transport type = %T", c.Transport)
	return tr
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(0)
	require.Equal(t, defaultClientTimeout, client.Timeout)

	tr := transportOf(t, client)
	require.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	require.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	require.Equal(t, defaultIdleConnTimeout, tr.IdleConnTimeout)
	require.NotNil(t, tr.Proxy)
}

func TestNewCapsDialAndHeaderTimeouts(t *testing.T) {
	tr := transportOf(t, New(Config{Timeout: 10 * time.Second}))
	require.Equal(t, defaultDialTimeout, tr.TLSHandshakeTimeout)
	require.Equal(t, defaultResponseHeaderTimeout, tr.ResponseHeaderTimeout)
}

func TestNewUsesShortTimeoutAsProvided(t *testing.T) {
	want := 1500 * time.Millisecond
	client := New(Config{Timeout: want})
	tr := transportOf(t, client)
	require.Equal(t, want, client.Timeout)
	require.Equal(t, want, tr.TLSHandshakeTimeout)
	require.Equal(t, want, tr.ResponseHeaderTimeout)
}

func TestNewNoProxyAndIdleLimits(t *testing.T) {
	tr := transportOf(t, New(Config{NoProxy: true, MaxIdleConnsPerHost: 32}))
	require.Nil(t, tr.Proxy)
	require.Equal(t, 32, tr.MaxIdleConnsPerHost)
	require.Equal(t, 32, tr.MaxIdleConns)
}
