// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"net/url"
	"strings"
)

// SanitizeURL strips user info and the query for logging.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// ParseDirectHTTPURL parses s as an http(s) URL with a host and neither
// credentials nor a fragment.
func ParseDirectHTTPURL(s string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, false
	}
	if u.Host == "" || u.User != nil || u.Fragment != "" {
		return nil, false
	}
	return u, true
}
