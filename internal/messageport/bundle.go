// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ManuGH/playerbridge/internal/codec"
)

var (
	// ErrDuplicateKey is returned when a key is added to a bundle twice.
	ErrDuplicateKey = errors.New("duplicate bundle key")
	// ErrEmptyKey is returned for an empty bundle key.
	ErrEmptyKey = errors.New("empty bundle key")
)

// Bundle is the string-to-string payload of one port message. Entries keep
// their insertion order.
type Bundle struct {
	keys   []string
	values map[string]string
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{values: make(map[string]string)}
}

// BundleFromMap builds a bundle from payload, adding keys in sorted order.
func BundleFromMap(payload map[string]string) (*Bundle, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewBundle()
	for _, k := range keys {
		if err := b.Add(k, payload[k]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add appends key with value.
func (b *Bundle) Add(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, ok := b.values[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	b.keys = append(b.keys, key)
	b.values[key] = value
	return nil
}

// Get returns the value stored under key.
func (b *Bundle) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Keys returns the keys in insertion order.
func (b *Bundle) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Map returns a copy of the entries.
func (b *Bundle) Map() map[string]string {
	out := make(map[string]string, b.Len())
	if b == nil {
		return out
	}
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of b.
func (b *Bundle) Clone() *Bundle {
	c := NewBundle()
	if b == nil {
		return c
	}
	c.keys = append(c.keys, b.keys...)
	for k, v := range b.values {
		c.values[k] = v
	}
	return c
}

// ToValue encodes the bundle as an ordered map of strings.
func (b *Bundle) ToValue() codec.Value {
	entries := make([]codec.Entry, 0, b.Len())
	if b != nil {
		for _, k := range b.keys {
			entries = append(entries, codec.Field(k, codec.String(b.values[k])))
		}
	}
	return codec.NewMap(entries...)
}

// BundleFromValue decodes a map of strings. Unlike the command records this
// decoder is strict: any non-string key or value is malformed.
func BundleFromValue(v codec.Value) (*Bundle, error) {
	entries, ok := v.Entries()
	if !ok {
		return nil, fmt.Errorf("%w: bundle must be a map, got %s", codec.ErrMalformed, v.Kind())
	}
	b := NewBundle()
	for _, e := range entries {
		key, ok := e.Key.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: bundle key must be a string", codec.ErrMalformed)
		}
		value, ok := e.Value.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: bundle value for %q must be a string", codec.ErrMalformed, key)
		}
		if err := b.Add(key, value); err != nil {
			return nil, err
		}
	}
	return b, nil
}
